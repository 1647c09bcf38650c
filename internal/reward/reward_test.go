package reward

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	used   map[string]bool
	resets int
}

func (m *memStore) UsedMessages(context.Context) (map[string]bool, error) {
	out := make(map[string]bool, len(m.used))
	for k, v := range m.used {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) MarkMessageUsed(_ context.Context, msg string) error {
	m.used[msg] = true
	return nil
}

func (m *memStore) ResetUsedMessages(context.Context) error {
	m.used = map[string]bool{}
	m.resets++
	return nil
}

func TestNextDoesNotRepeatUntilExhausted(t *testing.T) {
	store := &memStore{used: map[string]bool{}}
	pool := NewPool([]string{"one", "two", " three ", "two", ""}, store)
	require.Equal(t, 3, pool.Len())

	ctx := context.Background()
	seen := map[string]bool{}
	for range 3 {
		msg, err := pool.Next(ctx)
		require.NoError(t, err)
		assert.False(t, seen[msg], "message %q repeated before exhaustion", msg)
		seen[msg] = true
	}
	assert.Equal(t, map[string]bool{"one": true, "two": true, "three": true}, seen)
	assert.Zero(t, store.resets)

	msg, err := pool.Next(ctx)
	require.NoError(t, err)
	assert.Contains(t, seen, msg)
	assert.Equal(t, 1, store.resets)
	assert.Equal(t, map[string]bool{msg: true}, store.used)
}

func TestNextEmptyPool(t *testing.T) {
	_, err := NewPool(nil, &memStore{used: map[string]bool{}}).Next(context.Background())
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestLoadMessages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.json")
	require.NoError(t, os.WriteFile(path, []byte(`["Harika!", "Süpersin"]`), 0o644))

	msgs, err := LoadMessages(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Harika!", "Süpersin"}, msgs)

	msgs, err = LoadMessages(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, os.WriteFile(path, []byte(`{"not": "a list"}`), 0o644))
	_, err = LoadMessages(path)
	assert.Error(t, err)
}
