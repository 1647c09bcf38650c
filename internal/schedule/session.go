package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/conorfennell/dailyquiz/internal/domain"
	"github.com/google/uuid"
)

// ProgressStore persists per-question progress.
type ProgressStore interface {
	UpsertProgress(ctx context.Context, p domain.Progress) error
}

// ScoreLedger accumulates first-try scores per day.
type ScoreLedger interface {
	AddScore(ctx context.Context, day domain.Date, delta int) error
}

// StartPeriod draws size distinct questions uniformly at random from pool and
// returns a fresh session for key. It returns ErrInsufficientPool rather than
// a partial session when the pool is too small. A nil rng uses the global
// source.
func StartPeriod(pool []domain.Question, key domain.PeriodKey, size int, rng *rand.Rand) (*domain.Session, error) {
	if size <= 0 {
		return nil, fmt.Errorf("session size must be positive, got %d", size)
	}
	if len(pool) < size {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientPool, len(pool), size)
	}

	var perm []int
	if rng != nil {
		perm = rng.Perm(len(pool))
	} else {
		perm = rand.Perm(len(pool))
	}

	selected := make([]string, size)
	for i := range size {
		selected[i] = pool[perm[i]].ID
	}

	return &domain.Session{
		ID:        uuid.NewString(),
		Period:    key,
		Selected:  selected,
		Attempted: make(map[string]bool),
	}, nil
}

// Outcome describes the result of one submitted answer.
type Outcome struct {
	QuestionID string
	Correct    bool
	FirstTry   bool
	// NextReview is set when the answer was wrong.
	NextReview domain.Date
	// Complete is true when this answer finished the session.
	Complete bool
}

// Tracker applies answers to a session and records progress.
type Tracker struct {
	params *Params
	store  ProgressStore
	now    func() time.Time

	// OnCorrect, when set, runs after every correct answer has been recorded.
	OnCorrect func(isFirstTry bool)
}

// NewTracker returns a Tracker writing progress to store.
func NewTracker(params *Params, store ProgressStore) *Tracker {
	return &Tracker{params: params, store: store, now: time.Now}
}

// WithClock replaces the clock used to stamp progress records.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// SubmitAnswer grades chosen against q, which must be the session's current
// question. A correct answer retires the question and advances the cursor. A
// wrong answer leaves the cursor in place and pushes the question's next
// review to today plus the cooldown, counting from this miss.
//
// Progress is written before the session is modified, so a store failure
// leaves the session untouched.
func (t *Tracker) SubmitAnswer(ctx context.Context, s *domain.Session, q domain.Question, chosen string, today domain.Date) (Outcome, error) {
	if s.Complete() {
		return Outcome{}, ErrSessionComplete
	}
	if current := s.Current(); current != q.ID {
		return Outcome{}, fmt.Errorf("%w: got %q, current is %q", ErrQuestionMismatch, q.ID, current)
	}

	firstTry := !s.Attempted[q.ID]
	out := Outcome{QuestionID: q.ID, FirstTry: firstTry}

	p := domain.Progress{QuestionID: q.ID, UpdatedAt: t.now()}
	if q.IsCorrect(chosen) {
		out.Correct = true
		p.Status = domain.StatusCorrect
	} else {
		p.Status = domain.StatusWrong
		p.NextReview = today.AddDays(t.params.CooldownDays)
		out.NextReview = p.NextReview
	}

	if err := t.store.UpsertProgress(ctx, p); err != nil {
		return Outcome{}, fmt.Errorf("failed to record progress for question %s: %w", q.ID, err)
	}

	if s.Attempted == nil {
		s.Attempted = make(map[string]bool)
	}
	s.Attempted[q.ID] = true

	if !out.Correct {
		slog.Debug("wrong answer", "question", q.ID, "next_review", p.NextReview.String())
		return out, nil
	}

	if firstTry {
		s.FirstTryCorrect++
	}
	s.TotalCorrect++
	s.Cursor++
	out.Complete = s.Complete()

	if t.OnCorrect != nil {
		t.OnCorrect(firstTry)
	}
	return out, nil
}

// IsPeriodComplete reports whether the session has run out of questions.
func IsPeriodComplete(s *domain.Session) bool {
	return s.Complete()
}

// Flush adds the session's first-try score to the ledger under today the
// first time the session is seen complete. An evening session finished after
// midnight scores on the new calendar day. It reports whether anything was
// written; later calls are no-ops. The caller must persist the session
// afterwards so the Flushed mark survives.
func Flush(ctx context.Context, s *domain.Session, ledger ScoreLedger, today domain.Date) (bool, error) {
	if !s.Complete() || s.Flushed {
		return false, nil
	}
	if err := ledger.AddScore(ctx, today, s.FirstTryCorrect); err != nil {
		return false, fmt.Errorf("failed to flush score for period %s: %w", s.Period, err)
	}
	s.Flushed = true
	return true, nil
}
