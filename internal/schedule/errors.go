package schedule

import "errors"

var (
	// ErrNoActiveSlot means the current time falls in neither slot.
	ErrNoActiveSlot = errors.New("no active slot")
	// ErrInsufficientPool means fewer questions are eligible than a session needs.
	ErrInsufficientPool = errors.New("not enough eligible questions")
	// ErrQuestionMismatch means an answer was submitted for a question that is
	// not the session's current one.
	ErrQuestionMismatch = errors.New("answer does not match current question")
	// ErrSessionComplete means an answer was submitted after the last question.
	ErrSessionComplete = errors.New("session already complete")
)
