// Package slack adapts the slack-go client to the chat collaborator
// contract the monitoring core consumes.
package slack

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/slack-go/slack"

	"github.com/prevura-jpg/AI-assistant/internal/models"
	"github.com/prevura-jpg/AI-assistant/internal/notify"
)

// Client wraps a Slack Web API client.
type Client struct {
	api *slack.Client
}

// NewClient builds a Client from a bot token.
func NewClient(token string) *Client {
	return &Client{api: slack.New(token)}
}

// PostMessage posts text to a channel, threaded under threadParentID when
// set. Link unfurling is always disabled.
func (c *Client) PostMessage(ctx context.Context, channelID, text, threadParentID string) error {
	opts := []slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	}
	if threadParentID != "" {
		opts = append(opts, slack.MsgOptionTS(threadParentID))
	}
	if _, _, err := c.api.PostMessageContext(ctx, channelID, opts...); err != nil {
		return fmt.Errorf("post message to %s failed: %w", channelID, err)
	}
	return nil
}

// AddReaction adds an emoji reaction to a message. A reaction that is
// already present maps to notify.ErrAlreadyReacted.
func (c *Client) AddReaction(ctx context.Context, channelID, messageID, name string) error {
	err := c.api.AddReactionContext(ctx, name, slack.ItemRef{
		Channel:   channelID,
		Timestamp: messageID,
	})
	if err != nil {
		if err.Error() == "already_reacted" {
			return notify.ErrAlreadyReacted
		}
		return fmt.Errorf("add reaction %s failed: %w", name, err)
	}
	return nil
}

// FetchHistory returns channel messages between oldest and latest, newest
// first, mapped to core events. A zero latest means "now".
func (c *Client) FetchHistory(ctx context.Context, channelID string, oldest, latest time.Time, limit int) ([]models.Event, error) {
	params := &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Oldest:    slackTimestamp(oldest),
		Inclusive: true,
		Limit:     limit,
	}
	if !latest.IsZero() {
		params.Latest = slackTimestamp(latest)
	}

	resp, err := c.api.GetConversationHistoryContext(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s failed: %w", channelID, err)
	}

	events := make([]models.Event, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		events = append(events, models.Event{
			Text:           msg.Text,
			ChannelID:      channelID,
			MessageID:      msg.Timestamp,
			ThreadParentID: msg.ThreadTimestamp,
			BotID:          msg.BotID,
			Subtype:        msg.SubType,
		})
	}
	return events, nil
}

// BotID resolves the bot's own identity so the monitor can filter out its
// own messages.
func (c *Client) BotID(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth test failed: %w", err)
	}
	return resp.BotID, nil
}

func slackTimestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
