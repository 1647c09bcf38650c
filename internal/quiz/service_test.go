package quiz

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/dailyquiz/internal/domain"
	"github.com/conorfennell/dailyquiz/internal/reward"
	"github.com/conorfennell/dailyquiz/internal/schedule"
	"github.com/conorfennell/dailyquiz/internal/storage"
)

type fixture struct {
	svc       *Service
	db        *storage.DB
	now       time.Time
	questions map[string]domain.Question
}

func newFixture(t *testing.T, n, size int, mutate func(*Options)) *fixture {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "quiz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	qs := make([]domain.Question, n)
	byID := map[string]domain.Question{}
	for i := range qs {
		qs[i] = domain.Question{
			ID:      fmt.Sprintf("q%d", i+1),
			Prompt:  fmt.Sprintf("Question %d?", i+1),
			Choices: []string{"yes", "no"},
			Correct: "yes",
		}
		byID[qs[i].ID] = qs[i]
	}

	params := schedule.DefaultParams()
	params.SessionSize = size

	f := &fixture{
		db:        db,
		now:       time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
		questions: byID,
	}
	opts := Options{
		Params:    params,
		Questions: qs,
		Now:       func() time.Time { return f.now },
		Rand:      rand.New(rand.NewPCG(7, 11)),
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.svc = NewService(db, opts)
	return f
}

func (f *fixture) answer(t *testing.T, correct bool) *AnswerResult {
	t.Helper()
	v, err := f.svc.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateActive, v.State)

	choice := "no"
	if correct {
		choice = f.questions[v.Question.ID].Correct
	}
	res, err := f.svc.Answer(context.Background(), v.Question.ID, choice)
	require.NoError(t, err)
	return res
}

func TestFullSessionFlushesOnce(t *testing.T) {
	f := newFixture(t, 5, 5, nil)
	ctx := context.Background()

	v, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateActive, v.State)
	assert.Equal(t, "2024-01-01_morning", v.Period.String())
	assert.Equal(t, 1, v.Number)
	assert.Equal(t, 5, v.Total)

	for i := range 5 {
		res := f.answer(t, true)
		assert.True(t, res.Outcome.Correct)
		assert.True(t, res.Outcome.FirstTry)
		assert.Equal(t, i == 4, res.Outcome.Complete)
	}

	for range 3 {
		v, err = f.svc.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, StateDone, v.State)
		assert.Equal(t, 5, v.FirstTryCorrect)
	}

	scores, err := f.db.RecentScores(ctx, 7)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, domain.ScoreEntry{Date: domain.MustParseDate("2024-01-01"), Score: 5}, scores[0])
}

func TestRetryLoopScoring(t *testing.T) {
	f := newFixture(t, 3, 2, nil)
	ctx := context.Background()

	first := f.answer(t, false)
	assert.False(t, first.Outcome.Correct)
	assert.True(t, first.Outcome.FirstTry)
	assert.Equal(t, 1, first.View.Number, "cursor stays on a wrong answer")
	missed := first.Outcome.QuestionID

	second := f.answer(t, false)
	assert.Equal(t, missed, second.Outcome.QuestionID)
	assert.False(t, second.Outcome.FirstTry)

	third := f.answer(t, true)
	assert.Equal(t, missed, third.Outcome.QuestionID)
	assert.True(t, third.Outcome.Correct)
	assert.False(t, third.Outcome.FirstTry)
	assert.Equal(t, 2, third.View.Number)
	assert.Equal(t, 0, third.View.FirstTryCorrect)
	assert.Equal(t, 1, third.View.TotalCorrect)

	last := f.answer(t, true)
	assert.True(t, last.Outcome.Complete)
	assert.Equal(t, StateDone, last.View.State)
	assert.Equal(t, 1, last.View.FirstTryCorrect)

	p, err := f.db.GetProgress(ctx, missed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCorrect, p.Status)
}

func TestInsufficientPoolStartsNothing(t *testing.T) {
	f := newFixture(t, 4, 5, nil)
	ctx := context.Background()

	v, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, v.State)
	assert.Equal(t, 4, v.Eligible)

	sess, err := f.db.LoadSession(ctx, v.Period)
	require.NoError(t, err)
	assert.Nil(t, sess)

	res, err := f.svc.Answer(ctx, "q1", "yes")
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, StateExhausted, res.View.State)
}

func TestClosedOutsideSlots(t *testing.T) {
	f := newFixture(t, 5, 2, func(o *Options) { o.Params.WrapOvernight = false })
	f.now = time.Date(2024, time.January, 2, 3, 0, 0, 0, time.UTC)

	v, err := f.svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateClosed, v.State)

	res, err := f.svc.Answer(context.Background(), "q1", "yes")
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, StateClosed, res.View.State)
}

func TestMismatchedAnswer(t *testing.T) {
	t.Run("lenient ignores it", func(t *testing.T) {
		f := newFixture(t, 5, 2, nil)
		v, err := f.svc.Current(context.Background())
		require.NoError(t, err)

		res, err := f.svc.Answer(context.Background(), "not-a-question", "yes")
		require.NoError(t, err)
		assert.True(t, res.Stale)
		assert.Equal(t, v.Question.ID, res.View.Question.ID)
		assert.Equal(t, 1, res.View.Number)
	})

	t.Run("strict rejects it", func(t *testing.T) {
		f := newFixture(t, 5, 2, func(o *Options) { o.Strict = true })
		_, err := f.svc.Current(context.Background())
		require.NoError(t, err)

		_, err = f.svc.Answer(context.Background(), "not-a-question", "yes")
		assert.ErrorIs(t, err, schedule.ErrQuestionMismatch)
	})
}

func TestNewPeriodDrawsFromRemainingPool(t *testing.T) {
	f := newFixture(t, 6, 3, nil)
	ctx := context.Background()

	morning := map[string]bool{}
	for range 3 {
		res := f.answer(t, true)
		morning[res.Outcome.QuestionID] = true
	}

	// Evening: only the three unanswered questions are left.
	f.now = time.Date(2024, time.January, 1, 20, 30, 0, 0, time.UTC)
	v, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01_evening", v.Period.String())

	evening, err := f.db.LoadSession(ctx, v.Period)
	require.NoError(t, err)
	for _, id := range evening.Selected {
		assert.False(t, morning[id], "mastered question %s drawn again", id)
	}

	// Next morning everything is mastered.
	for range 3 {
		f.answer(t, true)
	}
	f.now = time.Date(2024, time.January, 2, 8, 0, 0, 0, time.UTC)
	v, err = f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, v.State)
	assert.Equal(t, 0, v.Eligible)

	scores, err := f.db.RecentScores(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []domain.ScoreEntry{{Date: domain.MustParseDate("2024-01-01"), Score: 6}}, scores)
}

func TestMissThenCorrectRetiresQuestion(t *testing.T) {
	f := newFixture(t, 1, 1, nil)
	ctx := context.Background()

	res := f.answer(t, false)
	assert.Equal(t, domain.MustParseDate("2024-01-03"), res.Outcome.NextReview)
	f.answer(t, true)

	p, err := f.db.GetProgress(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCorrect, p.Status, "eventually correct retires the question")

	f.now = time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC)
	v, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateExhausted, v.State)
}

func TestCooldownAcrossPeriods(t *testing.T) {
	f := newFixture(t, 2, 1, nil)
	ctx := context.Background()

	// Miss one question, then abandon the session.
	first := f.answer(t, false)
	missed := first.Outcome.QuestionID

	for _, tc := range []struct {
		when     time.Time
		eligible bool
	}{
		{time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC), false},
		{time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC), true},
	} {
		f.now = tc.when
		progress, err := f.db.ListProgress(ctx)
		require.NoError(t, err)
		pool := schedule.BuildEligiblePool([]domain.Question{f.questions[missed]}, progress, domain.DateOf(tc.when))
		assert.Equal(t, tc.eligible, len(pool) == 1, tc.when.String())
	}
}

func TestMissAfterMidnightCoolsDownFromCalendarDay(t *testing.T) {
	f := newFixture(t, 2, 1, nil)
	ctx := context.Background()
	f.now = time.Date(2024, time.January, 2, 1, 30, 0, 0, time.UTC)

	v, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01_evening", v.Period.String())

	res := f.answer(t, false)
	missed := res.Outcome.QuestionID
	assert.Equal(t, domain.MustParseDate("2024-01-04"), res.Outcome.NextReview)

	p, err := f.db.GetProgress(ctx, missed)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, domain.MustParseDate("2024-01-04"), p.NextReview)

	// The next morning only the other question is eligible.
	f.now = time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC)
	v, err = f.svc.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, StateActive, v.State)
	assert.NotEqual(t, missed, v.Question.ID)
}

func TestScoreAfterMidnightGoesToCalendarDay(t *testing.T) {
	f := newFixture(t, 1, 1, nil)
	ctx := context.Background()
	f.now = time.Date(2024, time.January, 2, 0, 15, 0, 0, time.UTC)

	res := f.answer(t, true)
	require.Equal(t, StateDone, res.View.State)
	assert.Equal(t, "2024-01-01_evening", res.View.Period.String())

	scores, err := f.db.RecentScores(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []domain.ScoreEntry{{Date: domain.MustParseDate("2024-01-02"), Score: 1}}, scores)
}

func TestRewardOnCorrectAnswer(t *testing.T) {
	f := newFixture(t, 3, 3, nil)
	f.svc.rewards = reward.NewPool([]string{"Harika!"}, f.db)

	wrong := f.answer(t, false)
	assert.Empty(t, wrong.Reward)

	right := f.answer(t, true)
	assert.Equal(t, "Harika!", right.Reward)

	// The single message is reused once the pool has been exhausted.
	again := f.answer(t, true)
	assert.Equal(t, "Harika!", again.Reward)
}

func TestSummary(t *testing.T) {
	f := newFixture(t, 4, 2, nil)
	ctx := context.Background()

	f.answer(t, false)
	f.answer(t, true)
	f.answer(t, true)

	sum, err := f.svc.Summary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.Mastered)
	assert.Equal(t, 0, sum.CoolingDown)
	assert.Equal(t, 2, sum.New)
	require.Len(t, sum.Scores, 1)
	assert.Equal(t, 1, sum.Scores[0].Score)

	// Miss in a new period and look again the next day.
	f.now = time.Date(2024, time.January, 1, 21, 0, 0, 0, time.UTC)
	f.answer(t, false)

	sum, err = f.svc.Summary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.CoolingDown)
	assert.Equal(t, 1, sum.New)

	f.now = time.Date(2024, time.January, 3, 9, 0, 0, 0, time.UTC)
	sum, err = f.svc.Summary(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Due)
	assert.Equal(t, 0, sum.CoolingDown)
}

func TestSessionSkipsQuestionsRemovedFromBank(t *testing.T) {
	f := newFixture(t, 3, 3, nil)
	ctx := context.Background()

	v, err := f.svc.Current(ctx)
	require.NoError(t, err)
	sess, err := f.db.LoadSession(ctx, v.Period)
	require.NoError(t, err)

	// Restart with the first drawn question gone from the bank.
	var kept []domain.Question
	for _, id := range sess.Selected[1:] {
		kept = append(kept, f.questions[id])
	}
	f.svc = NewService(f.db, Options{Params: f.svc.params, Questions: kept, Now: func() time.Time { return f.now }})

	v, err = f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateActive, v.State)
	assert.Equal(t, sess.Selected[1], v.Question.ID)
	assert.Equal(t, 2, v.Number)
}
