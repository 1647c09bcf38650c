package domain

import "time"

// Session is the state of one period's quiz: the questions drawn at the start
// of the period and how far the user got through them.
//
// Selected never changes after the session is created. Cursor only moves
// forward, and only on a correct answer.
type Session struct {
	ID              string
	Period          PeriodKey
	Selected        []string
	Cursor          int
	FirstTryCorrect int
	TotalCorrect    int
	Attempted       map[string]bool
	// Flushed is set once FirstTryCorrect has been added to the score ledger.
	Flushed   bool
	CreatedAt time.Time
}

// Current returns the id of the question being asked, or "" when the
// session is complete.
func (s *Session) Current() string {
	if s.Complete() {
		return ""
	}
	return s.Selected[s.Cursor]
}

// Complete reports whether every selected question has been answered correctly.
func (s *Session) Complete() bool {
	return s.Cursor >= len(s.Selected)
}

// Remaining is the number of questions still to be answered.
func (s *Session) Remaining() int {
	if s.Complete() {
		return 0
	}
	return len(s.Selected) - s.Cursor
}

// ScoreEntry is one day of the score ledger.
type ScoreEntry struct {
	Date  Date
	Score int
}
