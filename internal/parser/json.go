package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/conorfennell/dailyquiz/internal/domain"
)

// record is the on-disk shape of a question. The Turkish keys are the
// legacy bank format; the English ones are accepted as aliases.
type record struct {
	ID         any      `json:"id" yaml:"id"`
	Soru       string   `json:"soru" yaml:"soru"`
	Secenekler []string `json:"secenekler" yaml:"secenekler"`
	Dogru      string   `json:"dogru" yaml:"dogru"`

	Question string   `json:"question" yaml:"question"`
	Choices  []string `json:"choices" yaml:"choices"`
	Answer   string   `json:"answer" yaml:"answer"`
}

func (r record) toQuestion() domain.Question {
	q := domain.Question{
		ID:      idString(r.ID),
		Prompt:  r.Soru,
		Choices: r.Secenekler,
		Correct: r.Dogru,
	}
	if q.Prompt == "" {
		q.Prompt = r.Question
	}
	if len(q.Choices) == 0 {
		q.Choices = r.Choices
	}
	if q.Correct == "" {
		q.Correct = r.Answer
	}
	return q
}

// idString normalises integer and string ids to one string form, so 7 and
// "7" name the same question.
func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprint(id)
	}
}

// ParseJSON reads a JSON array of questions.
func ParseJSON(r io.Reader) ([]domain.Question, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}

	questions := make([]domain.Question, 0, len(records))
	for _, rec := range records {
		questions = append(questions, rec.toQuestion())
	}
	return questions, nil
}
