package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prevura-jpg/AI-assistant/internal/config"
	"github.com/prevura-jpg/AI-assistant/internal/engine"
	"github.com/prevura-jpg/AI-assistant/internal/logging"
	"github.com/prevura-jpg/AI-assistant/internal/models"
	"github.com/prevura-jpg/AI-assistant/internal/notify"
	"github.com/prevura-jpg/AI-assistant/internal/scheduler"
	"github.com/prevura-jpg/AI-assistant/internal/state"
)

const (
	chanParser    = "C-PARSER"
	chanWixez     = "C-WIXEZ"
	chanProxy     = "C-PROXY"
	chanReports   = "C-REPORTS"
	chanManager   = "C-MANAGER"
	chanWarehouse = "C-WAREHOUSE"
)

type call struct {
	channel string
	message string
	text    string
}

type fakeChat struct {
	mu        sync.Mutex
	comments  []call
	reactions []call
}

func (f *fakeChat) PostMessage(_ context.Context, channelID, text, threadParentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, call{channel: channelID, message: threadParentID, text: text})
	return nil
}

func (f *fakeChat) AddReaction(_ context.Context, channelID, messageID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, call{channel: channelID, message: messageID, text: name})
	return nil
}

func (f *fakeChat) FetchHistory(context.Context, string, time.Time, time.Time, int) ([]models.Event, error) {
	return nil, nil
}

func (f *fakeChat) BotID(context.Context) (string, error) { return "B-SELF", nil }

func newTestService(t *testing.T) (*Service, *fakeChat) {
	t.Helper()
	var cfg config.Config
	cfg.Slack.Channels = config.Channels{
		ManagerAlerts: chanManager,
		ParserOrders:  chanParser,
		Wixez:         chanWixez,
		HarixxReports: chanReports,
		ProxyAlerts:   chanProxy,
		Warehouse:     chanWarehouse,
	}
	cfg.Slack.Mentions = config.Mentions{
		ParserDev:  "UDEV",
		ReportsDev: "UREP",
		ProxyDev:   "UPROXY",
		Owner:      "UOWN",
		Manager:    "UMGR",
	}
	cfg.Monitor.QueueSize = 16
	cfg.Monitor.RepeatWindow = 10 * time.Second
	cfg.Monitor.EscalationCooldown = 5 * time.Minute
	cfg.Monitor.StateTTL = 24 * time.Hour
	cfg.Monitor.TroubleThreshold = 7.0
	cfg.Monitor.DeviationThreshold = -3.0

	chat := &fakeChat{}
	logger := logging.NewNop()
	notifier := notify.New(chat, logger, nil)
	store := state.New(cfg.Monitor.StateTTL)
	sched := scheduler.New(logger, notifier)
	svc := New(cfg, logger, store, engine.New(cfg), notifier, sched)
	return svc, chat
}

func event(channel, messageID, text string) models.Event {
	return models.Event{Text: text, ChannelID: channel, MessageID: messageID}
}

func TestDuplicateMessageHandledOnce(t *testing.T) {
	svc, chat := newTestService(t)
	ev := event(chanWixez, "100.1", "Supplier Formula Deleted for shop 42")

	svc.handleEvent(ev)
	svc.handleEvent(ev)

	assert.Len(t, chat.reactions, 1)
	assert.Len(t, chat.comments, 1)
}

func TestMalformedEventDropped(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(models.Event{ChannelID: chanParser, MessageID: "1.1"})
	svc.handleEvent(models.Event{Text: "hello", MessageID: "1.2"})

	assert.Empty(t, chat.reactions)
	assert.Empty(t, chat.comments)
}

func TestOwnMessagesIgnored(t *testing.T) {
	svc, chat := newTestService(t)
	svc.ResolveSelf(context.Background(), chat)

	ev := event(chanWixez, "2.1", "Supplier Formula Deleted")
	ev.BotID = "B-SELF"
	svc.handleEvent(ev)

	assert.Empty(t, chat.reactions)
}

func TestUnwatchedChannelIgnored(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(event("C-RANDOM", "3.1", "Supplier Formula Deleted"))

	assert.Empty(t, chat.reactions)
	assert.Empty(t, chat.comments)
}

func TestCriticalAlertEscalatesImmediately(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(event(chanParser, "4.1", "ERROR: connection refused by host db-1"))

	require.Len(t, chat.reactions, 1)
	assert.Equal(t, models.ReactionUrgent, chat.reactions[0].text)
	require.Len(t, chat.comments, 1)
	assert.Contains(t, chat.comments[0].text, "<@UDEV>")
	assert.Equal(t, "4.1", chat.comments[0].message)
}

func TestRepeatingAlertEscalatesOnRepeatWithinWindow(t *testing.T) {
	svc, chat := newTestService(t)
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	// First sighting is only acknowledged.
	svc.handleEvent(event(chanParser, "5.1", "worker queue stalled"))
	require.Len(t, chat.reactions, 1)
	assert.Equal(t, models.ReactionAck, chat.reactions[0].text)
	assert.Empty(t, chat.comments)

	// A repeat 5s later escalates in the thread of the repeat.
	svc.now = func() time.Time { return base.Add(5 * time.Second) }
	svc.handleEvent(event(chanParser, "5.2", "worker queue stalled"))
	require.Len(t, chat.comments, 1)
	assert.Contains(t, chat.comments[0].text, "keeps repeating")
	assert.Equal(t, "5.2", chat.comments[0].message)

	// Further repeats inside the cooldown stay quiet.
	svc.now = func() time.Time { return base.Add(8 * time.Second) }
	svc.handleEvent(event(chanParser, "5.3", "worker queue stalled"))
	assert.Len(t, chat.comments, 1)
}

func TestRepeatingAlertsKeyedByNormalizedText(t *testing.T) {
	svc, chat := newTestService(t)
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	svc.handleEvent(event(chanParser, "6.1", "Worker   queue stalled"))
	svc.now = func() time.Time { return base.Add(3 * time.Second) }
	svc.handleEvent(event(chanParser, "6.2", "worker queue STALLED"))

	// Same signal despite casing and spacing, so the repeat escalates.
	require.Len(t, chat.comments, 1)
}

func TestSupplierFormulaAlert(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(event(chanWixez, "7.1", "Supplier Formula Deleted by user X"))
	svc.handleEvent(event(chanWixez, "7.2", "unrelated chatter"))

	require.Len(t, chat.reactions, 1)
	assert.Equal(t, models.ReactionUrgent, chat.reactions[0].text)
	require.Len(t, chat.comments, 1)
	assert.Contains(t, chat.comments[0].text, "<@UOWN>")
}

func TestProxyFailureAlert(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(event(chanProxy, "8.1", "Failed Proxies Alert: 14 proxies down"))

	require.Len(t, chat.reactions, 1)
	assert.Equal(t, models.ReactionSiren, chat.reactions[0].text)
	require.Len(t, chat.comments, 1)
	assert.Contains(t, chat.comments[0].text, "<@UPROXY>")
}

func TestSummaryReportMarksCheckAndAcks(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(event(chanReports, "9.1", "Summary report\n| 2024-06-01 | 120 | 3.4 |"))

	assert.True(t, svc.sched.Received(CheckSummaryReport))
	require.Len(t, chat.reactions, 1)
	assert.Equal(t, models.ReactionAck, chat.reactions[0].text)
	assert.Empty(t, chat.comments)
}

func TestSummaryReportEscalatesAboveThreshold(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(event(chanReports, "10.1", "Summary report\n| 2024-06-01 | 120 | 8.2 |"))

	assert.True(t, svc.sched.Received(CheckSummaryReport))
	require.Len(t, chat.reactions, 1)
	assert.Equal(t, models.ReactionUrgent, chat.reactions[0].text)
	require.Len(t, chat.comments, 1)
	assert.Contains(t, chat.comments[0].text, "8.2")
}

func TestShopAndBusinessReportsMarkChecks(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(event(chanReports, "11.1", "Report by shop: all fine"))
	svc.handleEvent(event(chanReports, "11.2", "Business performance overview"))

	assert.True(t, svc.sched.Received(CheckShopReport))
	assert.True(t, svc.sched.Received(CheckBusinessReport))
	assert.Empty(t, chat.reactions)
}

func TestManagerReportWithDeviations(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(event(chanManager, "12.1",
		"ActToDayBfr comparison:\n2024-06-01, Shop Alpha, -5.2%\n2024-06-01, Shop Beta, -1.0%"))

	assert.True(t, svc.sched.Received(CheckManagerReport))
	require.Len(t, chat.reactions, 1)
	assert.Equal(t, models.ReactionUrgent, chat.reactions[0].text)
	require.Len(t, chat.comments, 1)
	assert.Contains(t, chat.comments[0].text, "Shop Alpha, -5.2%")
	assert.NotContains(t, chat.comments[0].text, "Shop Beta")
}

// A bare report token with no data rows means the generator produced an
// empty report, which is itself an incident.
func TestManagerEmptyReportAlert(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(event(chanManager, "13.1", "ActToDayBfr"))

	assert.True(t, svc.sched.Received(CheckManagerReport))
	require.Len(t, chat.reactions, 1)
	assert.Equal(t, models.ReactionUrgent, chat.reactions[0].text)
	require.Len(t, chat.comments, 1)
	assert.Contains(t, chat.comments[0].text, "empty")
}

func TestManagerCleanReportAcked(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(event(chanManager, "14.1", "ActToDayBfr comparison: no changes today"))

	require.Len(t, chat.reactions, 1)
	assert.Equal(t, models.ReactionAck, chat.reactions[0].text)
	assert.Empty(t, chat.comments)
}

func TestManagerChannelIgnoresOtherMessages(t *testing.T) {
	svc, chat := newTestService(t)

	svc.handleEvent(event(chanManager, "15.1", "lunch anyone?"))

	assert.False(t, svc.sched.Received(CheckManagerReport))
	assert.Empty(t, chat.reactions)
}

func TestWarehouseReportAcked(t *testing.T) {
	svc, chat := newTestService(t)

	ev := event(chanWarehouse, "16.1", "Warehouse Statistics for 2024-06-01")
	ev.Subtype = "bot_message"
	svc.handleEvent(ev)

	assert.True(t, svc.sched.Received(CheckWarehouse))
	require.Len(t, chat.reactions, 1)
	assert.Equal(t, models.ReactionAck, chat.reactions[0].text)
}

func TestWarehouseChannelFiltersSubtypes(t *testing.T) {
	svc, chat := newTestService(t)

	ev := event(chanWarehouse, "17.1", "Warehouse Statistics for 2024-06-01")
	ev.Subtype = "channel_join"
	svc.handleEvent(ev)

	assert.False(t, svc.sched.Received(CheckWarehouse))
	assert.Empty(t, chat.reactions)
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	svc, _ := newTestService(t)

	// Worker not started, so the channel fills up and further submits
	// must not block.
	for i := 0; i < 32; i++ {
		svc.Submit(event(chanParser, "18.1", "x"))
	}
}
