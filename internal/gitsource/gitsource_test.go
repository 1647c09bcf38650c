package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPath(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://github.com/someone/questions.git", want: filepath.Join("repos", "github.com", "someone", "questions")},
		{url: "ssh://git@example.org/team/bank", want: filepath.Join("repos", "example.org", "team", "bank")},
		{url: "git@github.com:someone/questions.git", want: filepath.Join("repos", "github.com", "someone", "questions")},
		{url: "/srv/git/bank.git", want: filepath.Join("repos", "local", "bank")},
		{url: "https://github.com/", wantErr: true},
		{url: "not a url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := LocalPath("repos", tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestSyncClonesThenPulls(t *testing.T) {
	upstreamDir := t.TempDir()
	upstream, err := git.PlainInit(upstreamDir, false)
	require.NoError(t, err)
	commitFile(t, upstream, upstreamDir, "bank.md", "Q: One?\n- a\n- b\nA: a\n")

	checkout := filepath.Join(t.TempDir(), "checkout")
	ctx := context.Background()
	repo := Repo{URL: upstreamDir}

	require.NoError(t, Sync(ctx, repo, checkout, nil))
	assert.FileExists(t, filepath.Join(checkout, "bank.md"))

	// Nothing new upstream: pulling is a no-op, not an error.
	require.NoError(t, Sync(ctx, repo, checkout, nil))

	commitFile(t, upstream, upstreamDir, "more.md", "Q: Two?\n- a\n- b\nA: b\n")
	require.NoError(t, Sync(ctx, repo, checkout, nil))
	assert.FileExists(t, filepath.Join(checkout, "more.md"))
}
