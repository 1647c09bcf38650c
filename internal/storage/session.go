package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/conorfennell/dailyquiz/internal/domain"
)

// SaveSession writes the full session state for its period.
func (q *Queries) SaveSession(ctx context.Context, s *domain.Session) error {
	selected, err := json.Marshal(s.Selected)
	if err != nil {
		return fmt.Errorf("failed to encode selected questions: %w", err)
	}
	attemptedIDs := make([]string, 0, len(s.Attempted))
	for id, ok := range s.Attempted {
		if ok {
			attemptedIDs = append(attemptedIDs, id)
		}
	}
	slices.Sort(attemptedIDs)
	attempted, err := json.Marshal(attemptedIDs)
	if err != nil {
		return fmt.Errorf("failed to encode attempted questions: %w", err)
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO sessions (period_key, id, selected, cursor, first_try_correct, total_correct, attempted, flushed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(period_key) DO UPDATE SET
			id = excluded.id,
			selected = excluded.selected,
			cursor = excluded.cursor,
			first_try_correct = excluded.first_try_correct,
			total_correct = excluded.total_correct,
			attempted = excluded.attempted,
			flushed = excluded.flushed
	`,
		s.Period.String(),
		s.ID,
		string(selected),
		s.Cursor,
		s.FirstTryCorrect,
		s.TotalCorrect,
		string(attempted),
		s.Flushed,
		created.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save session for period %s: %w", s.Period, err)
	}
	return nil
}

// LoadSession returns the session stored for key, or nil if there is none.
// A row whose JSON columns cannot be decoded is treated as absent so that a
// fresh session is started instead, unless its score was already flushed:
// then an empty, finished session is returned so the period is not scored
// twice.
func (q *Queries) LoadSession(ctx context.Context, key domain.PeriodKey) (*domain.Session, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, selected, cursor, first_try_correct, total_correct, attempted, flushed, created_at
		FROM sessions WHERE period_key = ?
	`, key.String())

	var (
		s                   domain.Session
		selected, attempted string
		createdAt           string
	)
	err := row.Scan(&s.ID, &selected, &s.Cursor, &s.FirstTryCorrect, &s.TotalCorrect, &attempted, &s.Flushed, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session for period %s: %w", key, err)
	}

	s.Period = key

	var attemptedIDs []string
	err = json.Unmarshal([]byte(selected), &s.Selected)
	if err == nil {
		err = json.Unmarshal([]byte(attempted), &attemptedIDs)
	}
	if err != nil {
		if !s.Flushed {
			slog.Warn("Ignoring malformed session", "period", key.String(), "error", err)
			return nil, nil
		}
		slog.Warn("Malformed session was already scored, keeping the period finished", "period", key.String(), "error", err)
		s.Selected, s.Cursor = nil, 0
		s.Attempted = map[string]bool{}
		return &s, nil
	}

	s.Attempted = make(map[string]bool, len(attemptedIDs))
	for _, id := range attemptedIDs {
		s.Attempted[id] = true
	}
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		s.CreatedAt = t
	}
	return &s, nil
}
