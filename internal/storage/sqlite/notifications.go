package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/famsplit/internal/models"
)

// AppendNotificationLog appends an audit row. Rows are never updated.
func (s *SQLiteStore) AppendNotificationLog(ctx context.Context, entry *models.NotificationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.SentAt == 0 {
		entry.SentAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_logs (id, user_id, bill_id, message, sent_at, seq)
		 VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM notification_logs))`,
		entry.ID, nullString(entry.UserID), nullString(entry.BillID), entry.Message, entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append notification log: %w", err)
	}
	return nil
}

// ListNotificationLogs returns the rows written for a bill in write order.
// An empty billID lists rows not tied to a bill, such as invitations.
func (s *SQLiteStore) ListNotificationLogs(ctx context.Context, billID string) ([]*models.NotificationLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, bill_id, message, sent_at
		 FROM notification_logs WHERE bill_id IS ? ORDER BY seq`,
		nullString(billID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.NotificationLog
	for rows.Next() {
		entry := &models.NotificationLog{}
		var userID, bID sql.NullString
		if err := rows.Scan(&entry.ID, &userID, &bID, &entry.Message, &entry.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification log: %w", err)
		}
		entry.UserID = userID.String
		entry.BillID = bID.String
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification logs: %w", err)
	}
	return logs, nil
}
