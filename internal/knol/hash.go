package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/dailyquiz/internal/domain"
)

// hashLength is how many hex characters of the digest form an id.
const hashLength = 16

// Normalize concatenates the question's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them. Choices keep their order.
func Normalize(q domain.Question) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	parts := make([]string, 0, len(q.Choices)+2)
	parts = append(parts, normalizePart(q.Prompt))
	for _, c := range q.Choices {
		parts = append(parts, normalizePart(c))
	}
	parts = append(parts, normalizePart(q.Correct))

	// Fields are joined with a newline so "ab"+"c" and "a"+"bc" differ.
	return strings.Join(parts, "\n")
}

// Hash returns a short hex id derived from the question's normalized content.
// It is used for questions whose source gives no explicit id, so the same
// question keeps its progress across reloads.
func Hash(q domain.Question) string {
	sum := sha256.Sum256([]byte(Normalize(q)))
	return fmt.Sprintf("%x", sum)[:hashLength]
}
