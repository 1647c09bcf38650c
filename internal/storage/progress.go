package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/dailyquiz/internal/domain"
)

// UpsertProgress inserts or replaces the progress record for one question.
func (q *Queries) UpsertProgress(ctx context.Context, p domain.Progress) error {
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	nextReview := ""
	if p.Status == domain.StatusWrong {
		nextReview = p.NextReview.String()
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO progress (question_id, status, next_review, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(question_id) DO UPDATE SET
			status = excluded.status,
			next_review = excluded.next_review,
			updated_at = excluded.updated_at
	`, p.QuestionID, string(p.Status), nextReview, updated.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to upsert progress for question %s: %w", p.QuestionID, err)
	}
	return nil
}

// GetProgress returns the progress for a question, or nil if it was never
// attempted or its stored record is unreadable.
func (q *Queries) GetProgress(ctx context.Context, questionID string) (*domain.Progress, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT question_id, status, next_review, updated_at
		FROM progress WHERE question_id = ?
	`, questionID)

	var r progressRow
	if err := row.Scan(&r.questionID, &r.status, &r.nextReview, &r.updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get progress for question %s: %w", questionID, err)
	}
	p, ok := r.decode()
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ListProgress returns every readable progress record keyed by question id.
func (q *Queries) ListProgress(ctx context.Context) (map[string]domain.Progress, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT question_id, status, next_review, updated_at
		FROM progress
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Progress)
	for rows.Next() {
		var r progressRow
		if err := rows.Scan(&r.questionID, &r.status, &r.nextReview, &r.updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		if p, ok := r.decode(); ok {
			out[p.QuestionID] = p
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return out, nil
}

type progressRow struct {
	questionID string
	status     string
	nextReview string
	updatedAt  string
}

// decode converts a raw row. Records that fail to parse are treated as if
// the question had never been attempted.
func (r progressRow) decode() (domain.Progress, bool) {
	p := domain.Progress{QuestionID: r.questionID, Status: domain.Status(r.status)}
	if !p.Status.Valid() {
		slog.Warn("Ignoring progress with unknown status", "question", r.questionID, "status", r.status)
		return domain.Progress{}, false
	}
	if p.Status == domain.StatusWrong {
		d, err := domain.ParseDate(r.nextReview)
		if err != nil {
			slog.Warn("Ignoring progress with malformed next review date", "question", r.questionID, "next_review", r.nextReview, "error", err)
			return domain.Progress{}, false
		}
		p.NextReview = d
	}
	if t, err := time.Parse(timeLayout, r.updatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p, true
}
