package quiz

import (
	"context"

	"github.com/conorfennell/dailyquiz/internal/domain"
	"github.com/conorfennell/dailyquiz/internal/schedule"
)

// Summary counts where every question in the bank stands.
type Summary struct {
	Today       domain.Date
	Total       int
	Mastered    int // answered correctly, retired for good
	CoolingDown int // answered wrong, not yet due again
	Due         int // answered wrong, cooldown over
	New         int // never attempted
	Scores      []domain.ScoreEntry
}

// Summary reports progress across the bank and the last days of the score
// ledger, newest first.
func (s *Service) Summary(ctx context.Context, days int) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	progress, err := s.db.ListProgress(ctx)
	if err != nil {
		return nil, err
	}
	scores, err := s.db.RecentScores(ctx, days)
	if err != nil {
		return nil, err
	}

	today := s.params.Today(s.now())
	sum := &Summary{Today: today, Total: len(s.byID), Scores: scores}
	for id := range s.byID {
		p, ok := progress[id]
		switch {
		case !ok:
			sum.New++
		case p.Status == domain.StatusCorrect:
			sum.Mastered++
		case schedule.Eligible(&p, today):
			sum.Due++
		default:
			sum.CoolingDown++
		}
	}
	return sum, nil
}
