package db

import (
	"context"
	"fmt"

	"github.com/prevura-jpg/AI-assistant/internal/logging"
	"github.com/prevura-jpg/AI-assistant/internal/models"
)

// CreateNotification inserts one audit record of an outward call.
func (d *DB) CreateNotification(ctx context.Context, rec models.NotificationRecord) error {
	query := `
        INSERT INTO notifications (
            id, created_at, kind, channel_id, message_id, reaction, text, status, error
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := d.Pool.Exec(ctx, query,
		rec.ID, rec.CreatedAt, rec.Kind, rec.ChannelID, rec.MessageID,
		rec.Reaction, rec.Text, rec.Status, rec.Error)
	if err != nil {
		return fmt.Errorf("failed to create notification record: %w", err)
	}
	return nil
}

// RecentNotifications returns the newest audit records, newest first.
func (d *DB) RecentNotifications(ctx context.Context, limit int) ([]models.NotificationRecord, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT id, created_at, kind, channel_id, message_id, reaction, text, status, error
        FROM notifications
        ORDER BY created_at DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		var rec models.NotificationRecord
		if err := rows.Scan(
			&rec.ID, &rec.CreatedAt, &rec.Kind, &rec.ChannelID, &rec.MessageID,
			&rec.Reaction, &rec.Text, &rec.Status, &rec.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Sink adapts the audit store to the notifier's Sink interface. Storage
// failures are logged and never affect delivery.
type Sink struct {
	db     *DB
	logger *logging.Logger
}

func NewSink(db *DB, logger *logging.Logger) *Sink {
	return &Sink{db: db, logger: logger}
}

func (s *Sink) Record(ctx context.Context, rec models.NotificationRecord) {
	if err := s.db.CreateNotification(ctx, rec); err != nil {
		s.logger.Errorf("audit record failed: %v", err)
	}
}
