package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/dailyquiz/internal/domain"
)

const (
	idPrefix       = "ID:"
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	choicePrefix   = "- "
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingChoices
)

// ParseFile reads a question bank file, picking the format from its extension.
func ParseFile(path string) ([]domain.Question, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(file)
	case ".yaml", ".yml":
		return ParseYAML(file)
	case ".md":
		return Parse(file)
	default:
		return nil, fmt.Errorf("unsupported question file type %q", filepath.Ext(path))
	}
}

// Supported reports whether ParseFile understands the file's extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".md":
		return true
	}
	return false
}

// Parse reads questions in the markdown format:
//
//	ID: capital-fr
//	Q: What is the capital of France?
//	- Paris
//	- Lyon
//	A: Paris
//
// The ID line is optional. A question ends at "---", at the next ID or Q
// line, or at the end of input. Question text may span several lines.
func Parse(r io.Reader) ([]domain.Question, error) {
	scanner := bufio.NewScanner(r)
	var questions []domain.Question
	var current domain.Question
	var promptLines []string
	currentState := seeking

	finishQuestion := func() {
		if len(promptLines) > 0 {
			current.Prompt = strings.TrimSpace(strings.Join(promptLines, "\n"))
			promptLines = nil
		}
		if current.Prompt != "" {
			questions = append(questions, current)
		}
		current = domain.Question{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "---":
			finishQuestion()

		case strings.HasPrefix(line, idPrefix):
			if currentState != seeking || current.ID != "" {
				finishQuestion()
			}
			current.ID = trimPrefix(line, idPrefix)

		case strings.HasPrefix(line, questionPrefix):
			if currentState != seeking {
				finishQuestion()
			}
			currentState = readingQuestion
			promptLines = append(promptLines, trimPrefix(line, questionPrefix))

		case strings.HasPrefix(line, choicePrefix) && currentState != seeking:
			if currentState == readingQuestion {
				current.Prompt = strings.TrimSpace(strings.Join(promptLines, "\n"))
				promptLines = nil
				currentState = readingChoices
			}
			current.Choices = append(current.Choices, strings.TrimSpace(line[len(choicePrefix):]))

		case strings.HasPrefix(line, answerPrefix) && currentState != seeking:
			if currentState == readingQuestion {
				current.Prompt = strings.TrimSpace(strings.Join(promptLines, "\n"))
				promptLines = nil
				currentState = readingChoices
			}
			current.Correct = trimPrefix(line, answerPrefix)

		case currentState == readingQuestion:
			promptLines = append(promptLines, line)
		}
	}

	finishQuestion() // Finish the very last question in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return questions, nil
}

func trimPrefix(line, prefix string) string {
	return strings.TrimSpace(line[len(prefix):])
}
