// Package engine holds the escalation decision logic. Every function here
// is pure: given the current tracking state and an observation it returns
// the updated state and the actions to perform, and never touches I/O.
package engine

import (
	"fmt"
	"time"

	"github.com/prevura-jpg/AI-assistant/internal/config"
	"github.com/prevura-jpg/AI-assistant/internal/models"
)

// Reaction names used across all policies, shared with the notifier.
const (
	ReactionUrgent = models.ReactionUrgent
	ReactionAck    = models.ReactionAck
	ReactionSiren  = models.ReactionSiren
)

// Engine evaluates escalation policies.
type Engine struct {
	repeatWindow       time.Duration
	escalationCooldown time.Duration
	troubleThreshold   float64
	deviationThreshold float64
	mentions           config.Mentions
}

// New constructs an Engine from the monitor configuration.
func New(cfg config.Config) *Engine {
	return &Engine{
		repeatWindow:       cfg.Monitor.RepeatWindow,
		escalationCooldown: cfg.Monitor.EscalationCooldown,
		troubleThreshold:   cfg.Monitor.TroubleThreshold,
		deviationThreshold: cfg.Monitor.DeviationThreshold,
		mentions:           cfg.Slack.Mentions,
	}
}

// DecideSignal applies the policy for the given kind. Critical and legacy
// kinds are stateless; the repeating kind reads and updates tracking state.
func (e *Engine) DecideSignal(kind models.Kind, st models.SignalState, now time.Time) (models.SignalState, models.Actions) {
	switch kind {
	case models.KindCritical:
		return st, models.Actions{
			Reaction: ReactionUrgent,
			Comment: fmt.Sprintf("<@%s> Critical alert! Please check immediately. <@%s> FYI.",
				e.mentions.ParserDev, e.mentions.Owner),
		}
	case models.KindLegacyParser:
		return st, models.Actions{
			Reaction: ReactionUrgent,
			Comment: fmt.Sprintf("<@%s> The legacy parser found new orders that are missing from notifications. Please check. <@%s> FYI.",
				e.mentions.ParserDev, e.mentions.Owner),
		}
	default:
		return e.decideRepeating(st, now)
	}
}

// decideRepeating implements the stateful repeat/cooldown policy: the first
// sighting of a signal is acknowledged; a repeat inside the repeat window
// escalates once per cooldown; a gap longer than the window arms the signal
// for a fresh escalation.
func (e *Engine) decideRepeating(st models.SignalState, now time.Time) (models.SignalState, models.Actions) {
	var acts models.Actions

	if st.LastSeenAt.IsZero() {
		acts.Reaction = ReactionAck
	}

	sinceSeen := now.Sub(st.LastSeenAt)
	sinceEscalation := now.Sub(st.LastEscalatedAt)

	if !st.LastSeenAt.IsZero() && sinceSeen <= e.repeatWindow &&
		!st.Escalated && sinceEscalation >= e.escalationCooldown {
		acts.Comment = fmt.Sprintf("<@%s> This alert keeps repeating every few seconds, please check that everything is OK. <@%s> FYI.",
			e.mentions.ParserDev, e.mentions.Owner)
		st.Escalated = true
		st.LastEscalatedAt = now
	} else if sinceSeen > e.repeatWindow {
		// The gap broke the repeat pattern; a fresh repeat cycle may
		// escalate again.
		st.Escalated = false
	}

	st.LastSeenAt = now
	st.OccurrenceCount++
	return st, acts
}

// SupplierFormulaActions is the decision for a deleted supplier formula
// notification.
func (e *Engine) SupplierFormulaActions() models.Actions {
	return models.Actions{
		Reaction: ReactionUrgent,
		Comment: fmt.Sprintf("<@%s> A supplier formula was deleted, please verify everything is correct.",
			e.mentions.Owner),
	}
}

// ProxyFailureActions is the decision for a failed-proxies alert.
func (e *Engine) ProxyFailureActions() models.Actions {
	return models.Actions{
		Reaction: ReactionSiren,
		Comment: fmt.Sprintf("<@%s> There is a problem with the proxies, please check that everything is working. FYI: <@%s> <@%s>",
			e.mentions.ProxyDev, e.mentions.Manager, e.mentions.Owner),
	}
}

// MissingReportMessage builds the standalone notification posted when a
// daily report did not arrive by its deadline.
func (e *Engine) MissingReportMessage(reportName string) string {
	return fmt.Sprintf("<@%s> The %s report did not arrive, please check why. FYI: <@%s> <@%s>",
		e.mentions.ReportsDev, reportName, e.mentions.Owner, e.mentions.Manager)
}

// MissingWarehouseMessage is the notification for a missed warehouse
// statistics report.
func (e *Engine) MissingWarehouseMessage(deadline string) string {
	return fmt.Sprintf("<@%s> The Warehouse Statistics report did not arrive by %s, please check why.",
		e.mentions.Owner, deadline)
}
