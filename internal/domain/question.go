package domain

// Question is a single multiple-choice entry from the question bank.
// Questions are read-only once loaded.
type Question struct {
	ID      string   `validate:"required"`
	Prompt  string   `validate:"required"`
	Choices []string `validate:"min=2,unique,dive,required"`
	Correct string   `validate:"required"`
}

// IsCorrect reports whether choice is the accepted answer.
// Comparison is exact: no trimming or case folding.
func (q Question) IsCorrect(choice string) bool {
	return choice == q.Correct
}

// HasChoice reports whether choice is one of the question's options.
func (q Question) HasChoice(choice string) bool {
	for _, c := range q.Choices {
		if c == choice {
			return true
		}
	}
	return false
}
