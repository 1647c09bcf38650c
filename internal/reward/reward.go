// Package reward picks congratulatory messages without repeating one until
// every message has been shown.
package reward

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
)

// ErrNoMessages is returned by Next when the pool is empty.
var ErrNoMessages = errors.New("no reward messages configured")

// Store remembers which messages have been shown.
type Store interface {
	UsedMessages(ctx context.Context) (map[string]bool, error)
	MarkMessageUsed(ctx context.Context, message string) error
	ResetUsedMessages(ctx context.Context) error
}

// Pool hands out reward messages.
type Pool struct {
	messages []string
	store    Store
	pick     func(n int) int
}

// NewPool returns a pool over messages. Blank and repeated messages are dropped.
func NewPool(messages []string, store Store) *Pool {
	seen := make(map[string]bool, len(messages))
	var clean []string
	for _, m := range messages {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		clean = append(clean, m)
	}
	return &Pool{messages: clean, store: store, pick: rand.IntN}
}

// Len is the number of distinct messages in the pool.
func (p *Pool) Len() int {
	return len(p.messages)
}

// Next returns a random message that has not been shown since the last
// reset and marks it shown. Once every message has been used the pool is
// reset and starts over.
func (p *Pool) Next(ctx context.Context) (string, error) {
	if len(p.messages) == 0 {
		return "", ErrNoMessages
	}

	used, err := p.store.UsedMessages(ctx)
	if err != nil {
		return "", err
	}

	available := p.available(used)
	if len(available) == 0 {
		slog.Info("All reward messages used, starting over", "messages", len(p.messages))
		if err := p.store.ResetUsedMessages(ctx); err != nil {
			return "", err
		}
		available = p.messages
	}

	msg := available[p.pick(len(available))]
	if err := p.store.MarkMessageUsed(ctx, msg); err != nil {
		return "", err
	}
	return msg, nil
}

func (p *Pool) available(used map[string]bool) []string {
	var out []string
	for _, m := range p.messages {
		if !used[m] {
			out = append(out, m)
		}
	}
	return out
}

// LoadMessages reads a JSON array of strings. A missing file yields no
// messages rather than an error.
func LoadMessages(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("Reward message file not found", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read messages %s: %w", path, err)
	}
	var messages []string
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages %s: %w", path, err)
	}
	return messages, nil
}
