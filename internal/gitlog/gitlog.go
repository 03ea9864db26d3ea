// Package gitlog derives per-document modification timestamps from the
// commit history of the checkout containing the content directory.
package gitlog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
)

// Repo wraps an opened git repository for history lookups.
type Repo struct {
	repo *git.Repository
	root string // worktree root, absolute
}

// Open locates and opens the repository containing dir, walking upward to
// find the .git directory the way the git CLI does.
func Open(dir string) (*Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve repo dir: %w", err)
	}

	repository, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", dir, err)
	}

	wt, err := repository.Worktree()
	if err != nil {
		return nil, fmt.Errorf("resolve worktree: %w", err)
	}

	return &Repo{repo: repository, root: wt.Filesystem.Root()}, nil
}

// Root returns the absolute path of the worktree root.
func (r *Repo) Root() string { return r.root }

// RelPath converts an absolute file path into the repo-relative form used
// for history lookups. ok is false when the file lies outside the worktree.
func (r *Repo) RelPath(absPath string) (string, bool) {
	rel, err := filepath.Rel(r.root, absPath)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// History returns the committer timestamps of all commits touching the given
// repo-relative path, most recent first.
//
// Renamed files are not followed; lookups are by exact path.
func (r *Repo) History(relPath string) ([]time.Time, error) {
	iter, err := r.repo.Log(&git.LogOptions{FileName: &relPath})
	if err != nil {
		return nil, fmt.Errorf("git log for %s: %w", relPath, err)
	}
	defer iter.Close()

	var times []time.Time
	for {
		commit, err := iter.Next()
		if err != nil {
			break
		}
		times = append(times, commit.Committer.When)
	}

	// The raw log order depends on traversal; sort so callers can rely on
	// newest-first regardless.
	sort.Slice(times, func(i, j int) bool { return times[i].After(times[j]) })
	return times, nil
}

// LastModified resolves the derived last-modified timestamp for a path.
//
// It returns ok=false when the path has one or zero recorded revisions, or
// when history is unavailable (shallow checkout, untracked file, lookup
// failure). Callers fall back to the document's declared date in that case.
func (r *Repo) LastModified(relPath string) (time.Time, bool) {
	if r == nil {
		return time.Time{}, false
	}
	times, err := r.History(relPath)
	if err != nil || len(times) <= 1 {
		return time.Time{}, false
	}
	return times[0], true
}
