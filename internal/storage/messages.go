package storage

import (
	"context"
	"fmt"
	"time"
)

// UsedMessages returns the reward messages shown since the last reset.
func (q *Queries) UsedMessages(ctx context.Context) (map[string]bool, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT message FROM used_messages`)
	if err != nil {
		return nil, fmt.Errorf("failed to get used messages: %w", err)
	}
	defer rows.Close()

	used := make(map[string]bool)
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan used message: %w", err)
		}
		used[m] = true
	}
	return used, rows.Err()
}

// MarkMessageUsed records that a message has been shown.
func (q *Queries) MarkMessageUsed(ctx context.Context, message string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO used_messages (message, used_at) VALUES (?, ?)
	`, message, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to mark message used: %w", err)
	}
	return nil
}

// ResetUsedMessages forgets every shown message.
func (q *Queries) ResetUsedMessages(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM used_messages`); err != nil {
		return fmt.Errorf("failed to reset used messages: %w", err)
	}
	return nil
}
