package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prevura-jpg/AI-assistant/internal/config"
	"github.com/prevura-jpg/AI-assistant/internal/db"
	"github.com/prevura-jpg/AI-assistant/internal/logging"
	"github.com/prevura-jpg/AI-assistant/internal/models"
	"github.com/prevura-jpg/AI-assistant/internal/monitor"
)

// Handler serves the webhook and REST endpoints.
type Handler struct {
	svc    *monitor.Service
	db     *db.DB // nil when no audit store is configured
	logger *logging.Logger
	config config.Config
}

func NewHandler(svc *monitor.Service, store *db.DB, logger *logging.Logger, cfg config.Config) *Handler {
	return &Handler{svc: svc, db: store, logger: logger, config: cfg}
}

// slackMessage mirrors the fields of a Slack message event this service
// cares about.
type slackMessage struct {
	Type        string `json:"type"`
	Subtype     string `json:"subtype"`
	BotID       string `json:"bot_id"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
	Ts          string `json:"ts"`
	ThreadTs    string `json:"thread_ts"`
	Attachments []struct {
		Text     string `json:"text"`
		Fallback string `json:"fallback"`
	} `json:"attachments"`
	Blocks []models.Block `json:"blocks"`
}

// slackPayload is the envelope of a Slack Events API request.
type slackPayload struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge"`
	Event     json.RawMessage `json:"event"`
}

// allowedSubtypes are the only message subtypes that reach the monitor;
// everything else (joins, topic changes, ...) is system noise.
var allowedSubtypes = map[string]bool{
	"bot_message":      true,
	"slackbot_message": true,
	"message_changed":  true,
}

// SlackEvents handles the Slack Events API webhook: URL verification
// challenges are echoed, message events are normalized and submitted to the
// monitor. The response is always 200 so Slack does not retry forever.
func (h *Handler) SlackEvents(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Errorf("failed to read events body: %v", err)
		c.String(http.StatusOK, "OK")
		return
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Errorf("failed to decode events payload: %v", err)
		c.String(http.StatusOK, "OK")
		return
	}

	if payload.Type == "url_verification" {
		c.JSON(http.StatusOK, gin.H{"challenge": payload.Challenge})
		return
	}

	var msg slackMessage
	switch {
	case payload.Type == "event_callback" && len(payload.Event) > 0:
		if err := json.Unmarshal(payload.Event, &msg); err != nil {
			h.logger.Errorf("failed to decode inner event: %v", err)
			c.String(http.StatusOK, "OK")
			return
		}
	case payload.Type == "message":
		if err := json.Unmarshal(body, &msg); err != nil {
			h.logger.Errorf("failed to decode bare message: %v", err)
			c.String(http.StatusOK, "OK")
			return
		}
	default:
		h.logger.Debugf("ignored payload type: %s", payload.Type)
		c.String(http.StatusOK, "OK")
		return
	}

	if ev, ok := h.normalizeMessage(msg); ok {
		h.svc.Submit(ev)
	}
	c.String(http.StatusOK, "OK")
}

// normalizeMessage applies the subtype filter and the text-extraction
// fallback chain (text field, first attachment, section blocks).
func (h *Handler) normalizeMessage(msg slackMessage) (models.Event, bool) {
	if msg.Subtype != "" && !allowedSubtypes[msg.Subtype] {
		h.logger.Debugf("ignoring message with subtype %s", msg.Subtype)
		return models.Event{}, false
	}

	text := msg.Text
	if text == "" && len(msg.Attachments) > 0 {
		text = msg.Attachments[0].Text
		if text == "" {
			text = msg.Attachments[0].Fallback
		}
	}
	if text == "" && len(msg.Blocks) > 0 {
		var parts []string
		for _, b := range msg.Blocks {
			if b.Type == "section" && b.PlainText != "" {
				parts = append(parts, b.PlainText)
			}
		}
		text = strings.Join(parts, " ")
	}

	ev := models.Event{
		Text:           text,
		ChannelID:      msg.Channel,
		MessageID:      msg.Ts,
		ThreadParentID: msg.ThreadTs,
		BotID:          msg.BotID,
		Subtype:        msg.Subtype,
		Blocks:         msg.Blocks,
	}
	if !ev.Valid() {
		h.logger.Debugf("ignoring event missing text, channel or ts (subtype %q)", msg.Subtype)
		return models.Event{}, false
	}
	return ev, true
}

// SlackCommands acknowledges slash commands with an in-channel echo.
func (h *Handler) SlackCommands(c *gin.Context) {
	command := c.PostForm("command")
	text := c.PostForm("text")
	userID := c.PostForm("user_id")
	h.logger.Infof("slash command %s from %s: %s", command, userID, text)

	c.JSON(http.StatusOK, gin.H{
		"response_type": "in_channel",
		"text":          fmt.Sprintf("Hi <@%s>, you sent: %s", userID, text),
	})
}

// GetNotifications returns recent audit records, newest first.
func (h *Handler) GetNotifications(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit store not configured"})
		return
	}
	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	records, err := h.db.RecentNotifications(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorf("get notifications failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
