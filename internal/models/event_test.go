package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockUnmarshalRichText(t *testing.T) {
	raw := `{
		"type": "rich_text",
		"elements": [{
			"type": "rich_text_section",
			"elements": [{"type": "text", "text": "hello world"}]
		}]
	}`

	var b Block
	require.NoError(t, json.Unmarshal([]byte(raw), &b))

	assert.Equal(t, "rich_text", b.Type)
	require.Len(t, b.Elements, 1)
	require.Len(t, b.Elements[0].Elements, 1)
	leaf := b.Elements[0].Elements[0]
	assert.Equal(t, "text", leaf.Type)
	assert.Equal(t, "hello world", leaf.PlainText)
}

func TestBlockUnmarshalSection(t *testing.T) {
	raw := `{"type": "section", "text": {"type": "mrkdwn", "text": "Warehouse Statistics"}}`

	var b Block
	require.NoError(t, json.Unmarshal([]byte(raw), &b))

	assert.Equal(t, "section", b.Type)
	assert.Equal(t, "Warehouse Statistics", b.PlainText)
}

func TestBlockUnmarshalNoText(t *testing.T) {
	var b Block
	require.NoError(t, json.Unmarshal([]byte(`{"type": "divider"}`), &b))
	assert.Equal(t, "divider", b.Type)
	assert.Empty(t, b.PlainText)
}

func TestEventValid(t *testing.T) {
	assert.True(t, Event{Text: "x", ChannelID: "C1", MessageID: "1.2"}.Valid())
	assert.False(t, Event{ChannelID: "C1", MessageID: "1.2"}.Valid())
	assert.False(t, Event{Text: "x", MessageID: "1.2"}.Valid())
	assert.False(t, Event{Text: "x", ChannelID: "C1"}.Valid())
}
