// Package kafka is the secondary event source: chat events mirrored onto a
// Kafka topic are decoded and fed into the same monitor ingest pipeline the
// webhook uses.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/prevura-jpg/AI-assistant/internal/config"
	"github.com/prevura-jpg/AI-assistant/internal/logging"
	"github.com/prevura-jpg/AI-assistant/internal/models"
	"github.com/prevura-jpg/AI-assistant/internal/monitor"
)

type Consumer struct {
	reader *kafka.Reader
	svc    *monitor.Service
	logger *logging.Logger
}

func NewConsumer(cfg config.Config, svc *monitor.Service, logger *logging.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{cfg.Kafka.Broker},
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Consumer{reader: r, svc: svc, logger: logger}
}

func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Info("Kafka consumer started")

		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					c.logger.Info("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				continue
			}

			var event struct {
				Text     string `json:"text"`
				Channel  string `json:"channel"`
				Ts       string `json:"ts"`
				ThreadTs string `json:"thread_ts"`
				BotID    string `json:"bot_id"`
				Subtype  string `json:"subtype"`
			}
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				c.logger.Errorf("Unmarshal message failed: %v", err)
				continue
			}

			if event.Text == "" || event.Channel == "" || event.Ts == "" {
				c.logger.Error("Invalid message: missing text, channel, or ts")
				continue
			}

			c.svc.Submit(models.Event{
				Text:           event.Text,
				ChannelID:      event.Channel,
				MessageID:      event.Ts,
				ThreadParentID: event.ThreadTs,
				BotID:          event.BotID,
				Subtype:        event.Subtype,
			})
			c.logger.Debugf("Processed Kafka message %s", event.Ts)
		}
	}()
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}
