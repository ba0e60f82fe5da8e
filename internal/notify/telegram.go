package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"

	"github.com/prevura-jpg/AI-assistant/internal/logging"
	"github.com/prevura-jpg/AI-assistant/internal/utils"
)

// TelegramMirror forwards escalation text to an on-call Telegram chat so
// urgent alerts are visible outside Slack.
type TelegramMirror struct {
	bot    *bot.Bot
	chatID int64
	logger *logging.Logger
}

// NewTelegramMirror builds a mirror, or returns nil when no token is
// configured (mirroring is optional).
func NewTelegramMirror(token string, chatID int64, logger *logging.Logger) (*TelegramMirror, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return &TelegramMirror{bot: b, chatID: chatID, logger: logger}, nil
}

// Send delivers text to the on-call chat, retrying transient failures.
func (m *TelegramMirror) Send(ctx context.Context, text string) error {
	return utils.Retry(m.logger, 3, time.Second, func() error {
		_, err := m.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: m.chatID,
			Text:   text,
		})
		if err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", m.chatID, err)
		}
		return nil
	})
}
