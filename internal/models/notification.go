package models

import "time"

// NotificationRecord is the audit trail of one outward call the bot made.
// Records are write-only from the engine's point of view: decision logic
// never reads them back.
type NotificationRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Kind      string    `json:"kind"` // "reaction", "comment" or "post"
	ChannelID string    `json:"channel_id"`
	MessageID string    `json:"message_id,omitempty"`
	Reaction  string    `json:"reaction,omitempty"`
	Text      string    `json:"text,omitempty"`
	Status    string    `json:"status"` // "sent" or "failed"
	Error     string    `json:"error,omitempty"`
}
