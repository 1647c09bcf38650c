package domain

import "time"

// Status is the mastery state of a question that has been attempted at least once.
// A question that was never attempted has no Progress record at all.
type Status string

const (
	StatusCorrect Status = "correct"
	StatusWrong   Status = "wrong"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusCorrect || s == StatusWrong
}

// Progress records what happened the last time a question was answered.
type Progress struct {
	QuestionID string
	Status     Status
	// NextReview is only meaningful when Status is StatusWrong.
	NextReview Date
	UpdatedAt  time.Time
}
