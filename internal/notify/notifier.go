// Package notify performs all outward communication decided by the engine.
// Delivery is at-least-once: failures are logged and swallowed, duplicate
// reactions are suppressed, and tracking state is always mutated before a
// call leaves the process.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/prevura-jpg/AI-assistant/internal/logging"
	"github.com/prevura-jpg/AI-assistant/internal/models"
)

// ErrAlreadyReacted is returned by a ChatClient when the reaction is already
// present on the message. It is the one collaborator error that is expected
// and treated as a no-op.
var ErrAlreadyReacted = errors.New("already reacted")

// ChatClient is the chat-platform collaborator contract the monitoring core
// requires.
type ChatClient interface {
	PostMessage(ctx context.Context, channelID, text, threadParentID string) error
	AddReaction(ctx context.Context, channelID, messageID, name string) error
	FetchHistory(ctx context.Context, channelID string, oldest, latest time.Time, limit int) ([]models.Event, error)
	BotID(ctx context.Context) (string, error)
}

// Sink receives a record of every outward call, e.g. for audit storage or
// live dashboards. Sink failures never affect delivery.
type Sink interface {
	Record(ctx context.Context, rec models.NotificationRecord)
}

// Notifier applies engine decisions against the chat platform.
type Notifier struct {
	chat   ChatClient
	logger *logging.Logger
	sinks  []Sink
	mirror *TelegramMirror // optional, may be nil
}

// New constructs a Notifier. mirror may be nil.
func New(chat ChatClient, logger *logging.Logger, mirror *TelegramMirror, sinks ...Sink) *Notifier {
	return &Notifier{chat: chat, logger: logger, sinks: sinks, mirror: mirror}
}

// Apply performs the reaction and threaded comment an Actions value asks
// for, against the event that triggered the decision.
func (n *Notifier) Apply(ctx context.Context, ev models.Event, acts models.Actions) {
	if acts.Reaction != "" {
		err := n.chat.AddReaction(ctx, ev.ChannelID, ev.MessageID, acts.Reaction)
		switch {
		case errors.Is(err, ErrAlreadyReacted):
			n.logger.Debugf("already reacted with %s on %s", acts.Reaction, ev.MessageID)
		case err != nil:
			n.logger.Errorf("add reaction %s failed: %v", acts.Reaction, err)
			n.record(ctx, "reaction", ev.ChannelID, ev.MessageID, acts.Reaction, "", err)
		default:
			n.logger.Infof("added %s reaction to %s", acts.Reaction, ev.MessageID)
			n.record(ctx, "reaction", ev.ChannelID, ev.MessageID, acts.Reaction, "", nil)
		}
	}

	if acts.Comment != "" {
		err := n.chat.PostMessage(ctx, ev.ChannelID, acts.Comment, ev.MessageID)
		if err != nil {
			n.logger.Errorf("post thread comment failed: %v", err)
		} else {
			n.logger.Infof("comment added to thread %s", ev.MessageID)
		}
		n.record(ctx, "comment", ev.ChannelID, ev.MessageID, "", acts.Comment, err)

		// Urgent escalations are also forwarded to the on-call chat.
		if acts.Reaction == models.ReactionUrgent || acts.Reaction == models.ReactionSiren {
			n.mirrorText(ctx, acts.Comment)
		}
	}
}

// Post sends a standalone channel message (used by the daily checks).
func (n *Notifier) Post(ctx context.Context, channelID, text string) {
	err := n.chat.PostMessage(ctx, channelID, text, "")
	if err != nil {
		n.logger.Errorf("post message to %s failed: %v", channelID, err)
	} else {
		n.logger.Infof("posted message to %s", channelID)
	}
	n.record(ctx, "post", channelID, "", "", text, err)
	n.mirrorText(ctx, text)
}

// FetchHistory exposes the collaborator's history call to the scheduler.
func (n *Notifier) FetchHistory(ctx context.Context, channelID string, oldest, latest time.Time, limit int) ([]models.Event, error) {
	return n.chat.FetchHistory(ctx, channelID, oldest, latest, limit)
}

func (n *Notifier) mirrorText(ctx context.Context, text string) {
	if n.mirror == nil {
		return
	}
	if err := n.mirror.Send(ctx, text); err != nil {
		n.logger.Errorf("telegram mirror failed: %v", err)
	}
}

func (n *Notifier) record(ctx context.Context, kind, channelID, messageID, reaction, text string, sendErr error) {
	rec := models.NotificationRecord{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Kind:      kind,
		ChannelID: channelID,
		MessageID: messageID,
		Reaction:  reaction,
		Text:      text,
		Status:    "sent",
	}
	if sendErr != nil {
		rec.Status = "failed"
		rec.Error = sendErr.Error()
	}
	for _, sink := range n.sinks {
		sink.Record(ctx, rec)
	}
}
