// Package quiz runs one user turn at a time against the scheduler: it
// resolves the current period, resumes or starts that period's session,
// grades answers and flushes the day's score when a session completes.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/conorfennell/dailyquiz/internal/domain"
	"github.com/conorfennell/dailyquiz/internal/reward"
	"github.com/conorfennell/dailyquiz/internal/schedule"
	"github.com/conorfennell/dailyquiz/internal/storage"
)

// State says what the presentation layer should show.
type State string

const (
	StateClosed    State = "closed"    // no slot is active right now
	StateExhausted State = "exhausted" // too few eligible questions to start
	StateActive    State = "active"    // a question is waiting for an answer
	StateDone      State = "done"      // the period's session is finished
)

// View is a read-only snapshot of the current period.
type View struct {
	State           State
	Period          domain.PeriodKey
	Question        *domain.Question
	Number          int // 1-based position of Question in the session
	Total           int
	FirstTryCorrect int
	TotalCorrect    int
	Eligible        int // size of the eligible pool, set when exhausted
}

// AnswerResult is the outcome of one submitted answer and the view to show next.
type AnswerResult struct {
	Outcome schedule.Outcome
	// Reward is the congratulation for a correct answer, if any.
	Reward string
	// Stale is set when the answer was for a question that is no longer
	// current and was ignored.
	Stale bool
	View  *View
}

// Options configures a Service.
type Options struct {
	Params    *schedule.Params
	Questions []domain.Question
	Rewards   *reward.Pool
	// Strict rejects answers for a question other than the current one
	// with schedule.ErrQuestionMismatch instead of ignoring them.
	Strict bool
	Now    func() time.Time
	Rand   *rand.Rand
}

// Service serialises turns against the database.
type Service struct {
	mu        sync.Mutex
	db        *storage.DB
	params    *schedule.Params
	questions []domain.Question
	byID      map[string]domain.Question
	rewards   *reward.Pool
	strict    bool
	now       func() time.Time
	rng       *rand.Rand
}

// NewService wires a Service around db.
func NewService(db *storage.DB, opts Options) *Service {
	params := opts.Params
	if params == nil {
		params = schedule.DefaultParams()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	byID := make(map[string]domain.Question, len(opts.Questions))
	for _, q := range opts.Questions {
		if _, ok := byID[q.ID]; !ok {
			byID[q.ID] = q
		}
	}

	return &Service{
		db:        db,
		params:    params,
		questions: opts.Questions,
		byID:      byID,
		rewards:   opts.Rewards,
		strict:    opts.Strict,
		now:       now,
		rng:       opts.Rand,
	}
}

// Current returns the view for the present moment, starting a session if
// the period has none yet.
func (s *Service) Current(ctx context.Context) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key, err := s.params.ResolvePeriod(now)
	if errors.Is(err, schedule.ErrNoActiveSlot) {
		return &View{State: StateClosed}, nil
	}
	if err != nil {
		return nil, err
	}

	var view *View
	err = s.db.WithTx(ctx, func(q *storage.Queries) error {
		sess, exhausted, err := s.loadOrStart(ctx, q, key, now)
		if err != nil {
			return err
		}
		if exhausted != nil {
			view = exhausted
			return nil
		}
		if err := s.settle(ctx, q, sess, s.params.Today(now)); err != nil {
			return err
		}
		view = s.viewOf(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Answer grades choice for questionID, which should be the question the
// user was shown.
func (s *Service) Answer(ctx context.Context, questionID, choice string) (*AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key, err := s.params.ResolvePeriod(now)
	if errors.Is(err, schedule.ErrNoActiveSlot) {
		return &AnswerResult{Stale: true, View: &View{State: StateClosed}}, nil
	}
	if err != nil {
		return nil, err
	}

	var (
		res       = &AnswerResult{}
		today     = s.params.Today(now)
		rewardDue bool
	)
	err = s.db.WithTx(ctx, func(q *storage.Queries) error {
		sess, exhausted, err := s.loadOrStart(ctx, q, key, now)
		if err != nil {
			return err
		}
		if exhausted != nil {
			res.Stale = true
			res.View = exhausted
			return nil
		}
		if err := s.settle(ctx, q, sess, today); err != nil {
			return err
		}

		question, known := s.byID[questionID]
		if !known || sess.Complete() || sess.Current() != questionID {
			mismatch := fmt.Errorf("%w: got %q, current is %q", schedule.ErrQuestionMismatch, questionID, sess.Current())
			if s.strict {
				return mismatch
			}
			slog.Warn("Ignoring answer for a question that is not current", "period", key.String(), "error", mismatch)
			res.Stale = true
			res.View = s.viewOf(sess)
			return nil
		}

		tracker := schedule.NewTracker(s.params, q).WithClock(s.now)
		tracker.OnCorrect = func(bool) { rewardDue = true }

		outcome, err := tracker.SubmitAnswer(ctx, sess, question, choice, today)
		if err != nil {
			return err
		}
		res.Outcome = outcome

		if err := s.settle(ctx, q, sess, today); err != nil {
			return err
		}
		if err := q.SaveSession(ctx, sess); err != nil {
			return err
		}
		res.View = s.viewOf(sess)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Answer recorded",
		"period", key.String(),
		"question", res.Outcome.QuestionID,
		"correct", res.Outcome.Correct,
		"first_try", res.Outcome.FirstTry,
		"stale", res.Stale,
	)

	if rewardDue {
		res.Reward = s.nextReward(ctx)
	}
	return res, nil
}

// nextReward picks a message after the turn has committed. A failure here
// never fails the answer.
func (s *Service) nextReward(ctx context.Context) string {
	if s.rewards == nil {
		return ""
	}
	msg, err := s.rewards.Next(ctx)
	if err != nil {
		if !errors.Is(err, reward.ErrNoMessages) {
			slog.Warn("Failed to pick reward message", "error", err)
		}
		return ""
	}
	return msg
}

// loadOrStart returns the stored session for key, or draws and stores a new
// one. When the eligible pool is too small it returns an exhausted view
// instead and stores nothing.
func (s *Service) loadOrStart(ctx context.Context, q *storage.Queries, key domain.PeriodKey, now time.Time) (*domain.Session, *View, error) {
	sess, err := q.LoadSession(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if sess != nil {
		return sess, nil, nil
	}

	progress, err := q.ListProgress(ctx)
	if err != nil {
		return nil, nil, err
	}
	pool := schedule.BuildEligiblePool(s.questions, progress, s.params.Today(now))

	sess, err = schedule.StartPeriod(pool, key, s.params.SessionSize, s.rng)
	if errors.Is(err, schedule.ErrInsufficientPool) {
		slog.Info("Not enough questions to start a session", "period", key.String(), "eligible", len(pool), "size", s.params.SessionSize)
		return nil, &View{State: StateExhausted, Period: key, Eligible: len(pool), Total: s.params.SessionSize}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	sess.CreatedAt = now

	if err := q.SaveSession(ctx, sess); err != nil {
		return nil, nil, err
	}
	slog.Info("Started session", "period", key.String(), "session", sess.ID, "questions", len(sess.Selected), "eligible", len(pool))
	return sess, nil, nil
}

// settle moves the cursor past questions that have disappeared from the
// bank since the session was drawn, and flushes the score under today once
// the session is complete. The session is saved if either changed it.
func (s *Service) settle(ctx context.Context, q *storage.Queries, sess *domain.Session, today domain.Date) error {
	changed := false
	for !sess.Complete() {
		if _, ok := s.byID[sess.Current()]; ok {
			break
		}
		slog.Warn("Skipping question missing from the bank", "question", sess.Current(), "period", sess.Period.String())
		sess.Cursor++
		changed = true
	}

	flushed, err := schedule.Flush(ctx, sess, q, today)
	if err != nil {
		return err
	}
	if flushed {
		slog.Info("Session complete", "period", sess.Period.String(), "first_try_correct", sess.FirstTryCorrect, "total_correct", sess.TotalCorrect)
		changed = true
	}

	if changed {
		return q.SaveSession(ctx, sess)
	}
	return nil
}

func (s *Service) viewOf(sess *domain.Session) *View {
	v := &View{
		State:           StateDone,
		Period:          sess.Period,
		Total:           len(sess.Selected),
		FirstTryCorrect: sess.FirstTryCorrect,
		TotalCorrect:    sess.TotalCorrect,
	}
	if !schedule.IsPeriodComplete(sess) {
		q := s.byID[sess.Current()]
		v.State = StateActive
		v.Question = &q
		v.Number = sess.Cursor + 1
	}
	return v
}
