// Package gitcommit records each scrape as a commit in the repository that holds the data
// directory.
//
// Only the snapshot files written by a run are staged. When none of them changed, no commit
// is created and ErrNoChanges is returned, so a day without new plants leaves no trace in
// the history. Pushing is optional and authenticates with a GitHub token.
package gitcommit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/pfrederiksen/high-lakes/internal/config"
)

// MessagePrefix starts every commit message
const MessagePrefix = "Latest data: "

// ErrNoChanges is returned when none of the given files differ from HEAD
var ErrNoChanges = errors.New("no changes to commit")

// Committer commits snapshot files to a git repository
type Committer struct {
	repo   *git.Repository
	root   string
	remote string
	author object.Signature
	token  string
}

// Open finds the repository containing dir
func Open(dir string, cfg config.GitConf) (*Committer, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", abs, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	remote := cfg.Remote
	if remote == "" {
		remote = git.DefaultRemoteName
	}

	return &Committer{
		repo:   repo,
		root:   wt.Filesystem.Root(),
		remote: remote,
		author: object.Signature{
			Name:  cfg.AuthorName,
			Email: cfg.AuthorEmail,
		},
		token: cfg.Token,
	}, nil
}

// Message returns the commit message for a run finished at t
func Message(t time.Time) string {
	return MessagePrefix + t.UTC().Format(time.RFC3339)
}

// Commit stages the given files and commits them. Files that do not exist are skipped.
// Returns the new commit hash, or ErrNoChanges when nothing staged differs from HEAD.
func (c *Committer) Commit(ctx context.Context, paths []string, at time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	wt, err := c.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}

	staged := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := c.relative(p)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(filepath.Join(c.root, rel)); os.IsNotExist(err) {
			continue
		}
		if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
			return "", fmt.Errorf("staging %s: %w", rel, err)
		}
		staged = append(staged, filepath.ToSlash(rel))
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("reading status: %w", err)
	}

	changed := false
	for _, rel := range staged {
		if fs, ok := status[rel]; ok && fs.Staging != git.Unmodified && fs.Staging != git.Untracked {
			changed = true
			break
		}
	}
	if !changed {
		return "", ErrNoChanges
	}

	author := c.author
	author.When = at
	hash, err := wt.Commit(Message(at), &git.CommitOptions{
		Author: &author,
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}

	return hash.String(), nil
}

// Push pushes the current branch to the configured remote
func (c *Committer) Push(ctx context.Context) error {
	opts := &git.PushOptions{
		RemoteName: c.remote,
	}
	if c.token != "" {
		opts.Auth = &githttp.BasicAuth{
			Username: "x-access-token",
			Password: c.token,
		}
	}

	err := c.repo.PushContext(ctx, opts)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pushing to %s: %w", c.remote, err)
	}
	return nil
}

// relative converts p into a path relative to the repository root
func (c *Committer) relative(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	rel, err := filepath.Rel(c.root, abs)
	if err != nil {
		return "", fmt.Errorf("%s is outside the repository: %w", p, err)
	}
	if rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("%s is outside the repository %s", p, c.root)
	}
	return rel, nil
}
