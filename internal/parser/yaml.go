package parser

import (
	"errors"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/conorfennell/dailyquiz/internal/domain"
)

// ParseYAML reads a YAML sequence of questions using the same keys as ParseJSON.
func ParseYAML(r io.Reader) ([]domain.Question, error) {
	var records []record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}

	questions := make([]domain.Question, 0, len(records))
	for _, rec := range records {
		questions = append(questions, rec.toQuestion())
	}
	return questions, nil
}
