package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/conorfennell/dailyquiz/internal/domain"
)

// AddScore adds delta to the score recorded for day.
func (q *Queries) AddScore(ctx context.Context, day domain.Date, delta int) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO scores (day, score) VALUES (?, ?)
		ON CONFLICT(day) DO UPDATE SET score = scores.score + excluded.score
	`, day.String(), delta)
	if err != nil {
		return fmt.Errorf("failed to add score for %s: %w", day, err)
	}
	return nil
}

// RecentScores returns up to limit ledger entries, newest first.
func (q *Queries) RecentScores(ctx context.Context, limit int) ([]domain.ScoreEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT day, score FROM scores
		ORDER BY day DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent scores: %w", err)
	}
	defer rows.Close()

	var entries []domain.ScoreEntry
	for rows.Next() {
		var (
			day   string
			score int
		)
		if err := rows.Scan(&day, &score); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		d, err := domain.ParseDate(day)
		if err != nil {
			slog.Warn("Skipping score with malformed day", "day", day, "error", err)
			continue
		}
		entries = append(entries, domain.ScoreEntry{Date: d, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get recent scores: %w", err)
	}
	return entries, nil
}
