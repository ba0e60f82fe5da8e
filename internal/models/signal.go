package models

import "time"

// Kind is the classification of an inbound alert message.
type Kind int

const (
	// KindRepeating is the fallback for otherwise-unclassified recurring noise.
	KindRepeating Kind = iota
	// KindCritical marks hard failures that need immediate attention.
	KindCritical
	// KindLegacyParser marks notifications emitted by the legacy order parser.
	KindLegacyParser
)

func (k Kind) String() string {
	switch k {
	case KindCritical:
		return "critical"
	case KindLegacyParser:
		return "legacy_parser"
	default:
		return "repeating"
	}
}

// ReportType identifies which recurring report a message carries.
type ReportType int

const (
	ReportNone ReportType = iota
	ReportSummary
	ReportByShop
	ReportByBusiness
)

func (r ReportType) String() string {
	switch r {
	case ReportSummary:
		return "summary"
	case ReportByShop:
		return "by_shop"
	case ReportByBusiness:
		return "by_business"
	default:
		return "none"
	}
}

// SignalState tracks one recurring signal across time. The zero value means
// the signal has never been seen.
type SignalState struct {
	SignalKey       string
	LastSeenAt      time.Time
	Escalated       bool
	LastEscalatedAt time.Time
	OccurrenceCount int
}

// Reaction names the engine's policies attach to messages.
const (
	ReactionUrgent = "exclamation"
	ReactionAck    = "thumbsup"
	ReactionSiren  = "rotating_light"
)

// Actions is the outcome of one engine decision. Empty fields mean "do
// nothing" for that dimension; the engine never performs I/O itself.
type Actions struct {
	Reaction string // emoji name to add to the triggering message
	Comment  string // threaded reply under the triggering message
}

// IsZero reports whether the decision requires no outward communication.
func (a Actions) IsZero() bool {
	return a.Reaction == "" && a.Comment == ""
}
