package models

import "encoding/json"

// Event is a single inbound chat message, already deserialized from whatever
// transport delivered it. Immutable once received.
type Event struct {
	Text           string
	ChannelID      string
	MessageID      string // Slack message timestamp, opaque but ordered
	ThreadParentID string
	BotID          string
	Subtype        string
	Blocks         []Block
}

// Valid reports whether the event carries the fields every handler needs.
func (e Event) Valid() bool {
	return e.Text != "" && e.ChannelID != "" && e.MessageID != ""
}

// Block is one node of a Slack block tree. Rich-text leaves carry their text
// in PlainText; section blocks carry a text object which is flattened into
// PlainText as well, so consumers only ever look at Type, PlainText and
// Elements.
type Block struct {
	Type      string
	PlainText string
	Elements  []Block
}

// blockText matches the object form of a block "text" field
// ({"type":"mrkdwn","text":"..."}).
type blockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UnmarshalJSON handles the two shapes Slack uses for the "text" field:
// a bare string on rich-text leaves and an object on section blocks.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     string          `json:"type"`
		Text     json.RawMessage `json:"text"`
		Elements []Block         `json:"elements"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Type = raw.Type
	b.Elements = raw.Elements
	if len(raw.Text) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Text, &s); err == nil {
		b.PlainText = s
		return nil
	}
	var obj blockText
	if err := json.Unmarshal(raw.Text, &obj); err == nil {
		b.PlainText = obj.Text
	}
	return nil
}
