// Package bank loads the question pool from local files and git repositories.
package bank

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/dailyquiz/internal/domain"
	"github.com/conorfennell/dailyquiz/internal/gitsource"
	"github.com/conorfennell/dailyquiz/internal/knol"
	"github.com/conorfennell/dailyquiz/internal/parser"
)

// Options selects where questions come from.
type Options struct {
	Paths    []string         // files or directories
	Repos    []gitsource.Repo // git-hosted banks, checked out under ReposDir
	ReposDir string
}

// Result is the outcome of a load. Problems lists every file or question
// that was skipped; they do not stop the load.
type Result struct {
	Questions []domain.Question
	Problems  []error
}

// Loader reads and validates question banks.
type Loader struct {
	validate *validator.Validate
	// syncRepo is swapped out in tests.
	syncRepo func(ctx context.Context, repo gitsource.Repo, localPath string) error
}

// NewLoader returns a Loader that syncs git repositories with go-git.
func NewLoader() *Loader {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateAnswer, domain.Question{})
	return &Loader{
		validate: v,
		syncRepo: func(ctx context.Context, repo gitsource.Repo, localPath string) error {
			return gitsource.Sync(ctx, repo, localPath, nil)
		},
	}
}

func validateAnswer(sl validator.StructLevel) {
	q := sl.Current().Interface().(domain.Question)
	if q.Correct != "" && !q.HasChoice(q.Correct) {
		sl.ReportError(q.Correct, "Correct", "Correct", "oneofchoices", "")
	}
}

// Load reads every configured source. Git repositories are cloned or pulled
// first; a failed sync falls back to whatever checkout is already on disk.
func (l *Loader) Load(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}
	seen := make(map[string]string)

	for _, path := range opts.Paths {
		if err := l.loadPath(path, res, seen); err != nil {
			return nil, err
		}
	}

	for _, repo := range opts.Repos {
		localPath, err := gitsource.LocalPath(opts.ReposDir, repo.URL)
		if err != nil {
			res.Problems = append(res.Problems, err)
			continue
		}
		if err := l.syncRepo(ctx, repo, localPath); err != nil {
			slog.Error("Error syncing git repo", "url", repo.URL, "error", err)
			res.Problems = append(res.Problems, err)
			if _, statErr := os.Stat(localPath); statErr != nil {
				continue
			}
		}
		if err := l.loadPath(localPath, res, seen); err != nil {
			return nil, err
		}
	}

	slog.Info("Question bank loaded", "questions", len(res.Questions), "problems", len(res.Problems))
	return res, nil
}

// loadPath parses one file or walks one directory. Only errors that make
// the whole path unreadable are returned; per-file problems are recorded.
func (l *Loader) loadPath(root string, res *Result, seen map[string]string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to read question source %s: %w", root, err)
	}
	if !info.IsDir() {
		l.loadFile(root, res, seen)
		return nil
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if parser.Supported(path) {
			l.loadFile(path, res, seen)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("error walking directory %s: %w", root, walkErr)
	}
	return nil
}

func (l *Loader) loadFile(path string, res *Result, seen map[string]string) {
	questions, err := parser.ParseFile(path)
	if err != nil {
		res.Problems = append(res.Problems, fmt.Errorf("parsing %s: %w", path, err))
		return
	}

	for i, q := range questions {
		if q.ID == "" {
			q.ID = knol.Hash(q)
		}
		if err := l.validate.Struct(q); err != nil {
			res.Problems = append(res.Problems, fmt.Errorf("%s: question %d (%s): %w", path, i+1, q.ID, err))
			continue
		}
		if first, dup := seen[q.ID]; dup {
			res.Problems = append(res.Problems, fmt.Errorf("%s: duplicate question id %s, first defined in %s", path, q.ID, first))
			continue
		}
		seen[q.ID] = path
		res.Questions = append(res.Questions, q)
	}
}
