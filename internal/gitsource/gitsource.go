package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repo describes a git-hosted question bank.
type Repo struct {
	URL    string `koanf:"url" validate:"required"`
	Branch string `koanf:"branch"`
}

// Sync clones a git repository if it doesn't exist at localPath,
// or pulls the latest changes if it does. Progress output goes to progress,
// which may be nil.
func Sync(ctx context.Context, repo Repo, localPath string, progress io.Writer) error {
	var ref plumbing.ReferenceName
	if repo.Branch != "" {
		ref = plumbing.NewBranchReferenceName(repo.Branch)
	}

	_, err := os.Stat(localPath)
	if os.IsNotExist(err) {
		slog.Info("Cloning question repository", "url", repo.URL, "path", localPath)
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:           repo.URL,
			ReferenceName: ref,
			SingleBranch:  ref != "",
			Progress:      progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repo.URL, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	slog.Info("Pulling question repository", "path", localPath)
	r, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
	}

	worktree, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
	}

	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName:    "origin",
		ReferenceName: ref,
		SingleBranch:  ref != "",
		Progress:      progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
	}
	return nil
}

// LocalPath maps a repository URL to a checkout directory under baseDir.
// It understands https URLs, scp-style "git@host:owner/repo.git" and plain
// filesystem paths.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err == nil && (parsedURL.Scheme == "https" || parsedURL.Scheme == "http" || parsedURL.Scheme == "ssh") {
		sanitizedPath := strings.TrimSuffix(strings.Trim(parsedURL.Path, "/"), ".git")
		if sanitizedPath == "" {
			return "", fmt.Errorf("could not parse git URL: %s", repoURL)
		}
		return filepath.Join(baseDir, parsedURL.Hostname(), sanitizedPath), nil
	}

	if strings.Contains(repoURL, "@") {
		hostPart, repoPath, ok := strings.Cut(repoURL, ":")
		if ok {
			if _, host, ok := strings.Cut(hostPart, "@"); ok && host != "" {
				return filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git")), nil
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	if filepath.IsAbs(repoURL) || strings.HasPrefix(repoURL, ".") {
		name := strings.TrimSuffix(filepath.Base(filepath.Clean(repoURL)), ".git")
		return filepath.Join(baseDir, "local", name), nil
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
