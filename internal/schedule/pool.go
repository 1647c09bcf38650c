package schedule

import "github.com/conorfennell/dailyquiz/internal/domain"

// Eligible reports whether a question with the given progress may be asked on
// today. A nil progress means the question was never attempted.
func Eligible(p *domain.Progress, today domain.Date) bool {
	if p == nil {
		return true
	}
	switch p.Status {
	case domain.StatusCorrect:
		return false
	case domain.StatusWrong:
		return !today.Before(p.NextReview)
	default:
		return true
	}
}

// BuildEligiblePool filters questions down to the ones that may appear in a
// session starting on today. Mastered questions never come back; missed ones
// come back once their cooldown has elapsed. The result is unique by id.
func BuildEligiblePool(questions []domain.Question, progress map[string]domain.Progress, today domain.Date) []domain.Question {
	seen := make(map[string]bool, len(questions))
	pool := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if seen[q.ID] {
			continue
		}
		seen[q.ID] = true

		var pp *domain.Progress
		if p, ok := progress[q.ID]; ok {
			pp = &p
		}
		if Eligible(pp, today) {
			pool = append(pool, q)
		}
	}
	return pool
}
