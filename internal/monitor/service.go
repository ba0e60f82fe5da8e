// Package monitor wires the ingest pipeline: inbound events are dispatched
// by channel to a handler that classifies the message, consults the alert
// state store, asks the engine for a decision and hands the resulting
// actions to the notifier.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/prevura-jpg/AI-assistant/internal/classify"
	"github.com/prevura-jpg/AI-assistant/internal/config"
	"github.com/prevura-jpg/AI-assistant/internal/engine"
	"github.com/prevura-jpg/AI-assistant/internal/logging"
	"github.com/prevura-jpg/AI-assistant/internal/match"
	"github.com/prevura-jpg/AI-assistant/internal/models"
	"github.com/prevura-jpg/AI-assistant/internal/notify"
	"github.com/prevura-jpg/AI-assistant/internal/scheduler"
	"github.com/prevura-jpg/AI-assistant/internal/state"
)

// Daily check identifiers shared between the ingest path and the scheduler.
const (
	CheckSummaryReport  = "summary_report"
	CheckShopReport     = "shop_report"
	CheckBusinessReport = "business_report"
	CheckManagerReport  = "manager_report"
	CheckWarehouse      = "warehouse_report"
)

// Phrases that trigger single-phrase alert handlers.
const (
	SupplierFormulaPhrase = "Supplier Formula Deleted"
	FailedProxiesPhrase   = "Failed Proxies Alert"
	WarehousePhrase       = "warehouse statistics"
)

// Service consumes inbound chat events and runs them through the monitoring
// core.
type Service struct {
	cfg      config.Config
	logger   *logging.Logger
	store    *state.Store
	engine   *engine.Engine
	notifier *notify.Notifier
	sched    *scheduler.Scheduler

	events   chan models.Event
	handlers map[string]func(context.Context, models.Event)
	botID    string

	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
	now    func() time.Time
}

// New constructs the monitor Service and registers a handler per configured
// channel. Channels with no ID configured are simply not watched.
func New(cfg config.Config, logger *logging.Logger, store *state.Store, eng *engine.Engine,
	notifier *notify.Notifier, sched *scheduler.Scheduler) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		engine:   eng,
		notifier: notifier,
		sched:    sched,
		events:   make(chan models.Event, cfg.Monitor.QueueSize),
		handlers: make(map[string]func(context.Context, models.Event)),
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}

	ch := cfg.Slack.Channels
	register := func(id string, h func(context.Context, models.Event)) {
		if id != "" {
			s.handlers[id] = h
		}
	}
	register(ch.ParserOrders, s.handleParserAlert)
	register(ch.Wixez, s.handleWixezAlert)
	register(ch.ProxyAlerts, s.handleProxyAlert)
	register(ch.HarixxReports, s.handleReport)
	register(ch.ManagerAlerts, s.handleManagerReport)
	register(ch.Warehouse, s.handleWarehouseReport)

	return s
}

// ResolveSelf looks up the bot's own identity so its messages can be
// filtered out of the ingest path. A failure is logged, not fatal.
func (s *Service) ResolveSelf(ctx context.Context, chat notify.ChatClient) {
	id, err := chat.BotID(ctx)
	if err != nil {
		s.logger.Errorf("failed to resolve bot identity: %v", err)
		return
	}
	s.botID = id
	s.logger.Infof("resolved bot identity: %s", id)
}

// Start launches the event worker.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	wg.Add(1)
	go s.worker()
}

// Stop cancels the worker context.
func (s *Service) Stop() {
	s.cancel()
}

// Submit enqueues an inbound event for processing. A full queue drops the
// event with a log line rather than blocking the transport.
func (s *Service) Submit(ev models.Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Errorf("event queue full, dropping message %s", ev.MessageID)
	}
}

func (s *Service) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("monitor worker stopped")
			return
		case ev := <-s.events:
			s.handleEvent(ev)
		}
	}
}

// handleEvent validates, filters and dispatches one inbound event.
func (s *Service) handleEvent(ev models.Event) {
	if !ev.Valid() {
		s.logger.Warnf("dropping malformed event (missing text, channel or id)")
		return
	}
	if ev.BotID != "" && ev.BotID == s.botID {
		s.logger.Debug("ignoring message from self")
		return
	}
	handler, ok := s.handlers[ev.ChannelID]
	if !ok {
		s.logger.Debugf("no handler for channel %s", ev.ChannelID)
		return
	}
	if !s.store.MarkProcessed(ev.MessageID) {
		s.logger.Debugf("message %s already processed, skipping", ev.MessageID)
		return
	}
	handler(s.ctx, ev)
}

// handleParserAlert classifies parser-channel noise and applies the
// per-kind escalation policy. Only the repeating kind carries state.
func (s *Service) handleParserAlert(ctx context.Context, ev models.Event) {
	kind := classify.Classify(ev.Text)
	s.logger.Infof("processing %s alert in %s", kind, ev.ChannelID)

	key := match.NormalizeText(ev.Text)
	st := s.store.Signal(key)
	updated, acts := s.engine.DecideSignal(kind, st, s.now())
	if kind == models.KindRepeating {
		// State is committed before any outward call so a failed
		// notification never blocks future decisions.
		s.store.SetSignal(key, updated)
	}
	s.notifier.Apply(ctx, ev, acts)
}

func (s *Service) handleWixezAlert(ctx context.Context, ev models.Event) {
	if !match.ContainsPhrase(ev, SupplierFormulaPhrase) {
		s.logger.Debugf("message %s does not match supplier formula alert", ev.MessageID)
		return
	}
	s.logger.Info("supplier formula deletion detected")
	s.notifier.Apply(ctx, ev, s.engine.SupplierFormulaActions())
}

func (s *Service) handleProxyAlert(ctx context.Context, ev models.Event) {
	if !match.ContainsPhrase(ev, FailedProxiesPhrase) {
		s.logger.Debugf("message %s does not match failed proxies alert", ev.MessageID)
		return
	}
	s.logger.Info("failed proxies alert detected")
	s.notifier.Apply(ctx, ev, s.engine.ProxyFailureActions())
}

// handleReport classifies report-channel messages, marks the matching daily
// check as received and applies the threshold policy to summary reports.
func (s *Service) handleReport(ctx context.Context, ev models.Event) {
	switch classify.ClassifyReport(ev) {
	case models.ReportSummary:
		s.logger.Info("summary report received")
		s.sched.MarkReceived(CheckSummaryReport)
		s.notifier.Apply(ctx, ev, s.engine.DecideSummaryReport(ev.Text))
	case models.ReportByShop:
		s.logger.Info("shop report received")
		s.sched.MarkReceived(CheckShopReport)
	case models.ReportByBusiness:
		s.logger.Info("business report received")
		s.sched.MarkReceived(CheckBusinessReport)
	default:
		s.logger.Debug("message matches no known report type")
	}
}

// handleManagerReport applies the deviation policy to the daily manager
// report.
func (s *Service) handleManagerReport(ctx context.Context, ev models.Event) {
	// Skip messages quoting the bot itself (its own thread replies).
	if s.botID != "" && match.ContainsPhrase(ev, "<@"+s.botID+">") {
		return
	}
	if !engine.IsDeviationReport(ev.Text) {
		return
	}
	s.logger.Info("manager deviation report received")
	s.sched.MarkReceived(CheckManagerReport)
	s.notifier.Apply(ctx, ev, s.engine.DecideDeviationReport(ev.Text))
}

// handleWarehouseReport acknowledges the warehouse statistics report and
// marks its daily check. Bot-posted reports count too.
func (s *Service) handleWarehouseReport(ctx context.Context, ev models.Event) {
	if ev.Subtype != "" && ev.Subtype != "bot_message" {
		return
	}
	if !match.ContainsPhrase(ev, WarehousePhrase) {
		return
	}
	s.logger.Info("warehouse report received")
	s.sched.MarkReceived(CheckWarehouse)
	s.notifier.Apply(ctx, ev, models.Actions{Reaction: models.ReactionAck})
}
