// Package history records every content change as a git commit in the
// content root.
package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"folio/internal/cms"
)

const (
	defaultAuthor = "folio"
	defaultEmail  = "folio@localhost"
)

// Options configures a Recorder.
type Options struct {
	AuthorName  string
	AuthorEmail string
	Clock       cms.Clock
	Logger      cms.Logger
}

// Entry is one recorded change.
type Entry struct {
	Hash    string
	Message string
	Author  string
	When    time.Time
}

// Recorder commits the content root after model actions.
type Recorder struct {
	repo   *git.Repository
	author string
	email  string
	clock  cms.Clock
	logger cms.Logger
	mu     sync.Mutex
}

// Open opens the repository in root, initializing it if there is none.
func Open(root string, opts Options) (*Recorder, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create content root: %w", err)
	}

	repo, err := git.PlainOpen(root)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(root, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open history repository: %w", err)
	}

	r := &Recorder{
		repo:   repo,
		author: opts.AuthorName,
		email:  opts.AuthorEmail,
		clock:  opts.Clock,
		logger: opts.Logger,
	}
	if r.author == "" {
		r.author = defaultAuthor
	}
	if r.email == "" {
		r.email = defaultEmail
	}
	if r.clock == nil {
		r.clock = cms.RealClock{}
	}
	if r.logger == nil {
		r.logger = cms.NewNopLogger()
	}
	return r, nil
}

// Register subscribes the recorder to every after-hook.
func (r *Recorder) Register(hooks *cms.Hooks) {
	hooks.Register("*.*:after", func(e *cms.Event) (any, error) {
		if _, err := r.Record(e.Name, e.Args); err != nil {
			r.logger.Warn("history record failed", "event", e.Name, "error", err)
		}
		return nil, nil
	})
}

// Record stages every change below the root and commits it. It returns
// the zero hash when nothing changed, e.g. for user actions whose files
// live outside the content root.
func (r *Recorder) Record(event string, args cms.Args) (plumbing.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wt, err := r.repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git status: %w", err)
	}
	if status.IsClean() {
		return plumbing.ZeroHash, nil
	}
	for path, st := range status {
		if st.Worktree != git.Deleted {
			continue
		}
		if _, err := wt.Remove(path); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("git rm %s: %w", path, err)
		}
	}

	name, email := r.signature(args)
	hash, err := wt.Commit(message(event, args), &git.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: r.clock.Now()},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit: %w", err)
	}
	r.logger.Debug("history recorded", "event", event, "hash", hash.String())
	return hash, nil
}

// Log returns the most recent entries, newest first. A limit of zero
// returns everything.
func (r *Recorder) Log(limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	err = iter.ForEach(func(c *object.Commit) error {
		entries = append(entries, Entry{
			Hash:    c.Hash.String(),
			Message: strings.TrimSpace(c.Message),
			Author:  c.Author.Name,
			When:    c.Author.When,
		})
		if limit > 0 && len(entries) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return entries, nil
}

// signature attributes the commit to the acting user when there is one.
func (r *Recorder) signature(args cms.Args) (name, email string) {
	for _, arg := range args {
		m, ok := arg.Value.(cms.Model)
		if !ok || m == nil {
			continue
		}
		if u := m.App().User(); u != nil {
			name = u.Name()
			if name == "" {
				name = u.ID()
			}
			return name, u.Email()
		}
		break
	}
	return r.author, r.email
}

// message is "{type}.{action}: {model id}".
func message(event string, args cms.Args) string {
	action := strings.TrimSuffix(event, ":after")
	for _, arg := range args {
		if m, ok := arg.Value.(cms.Model); ok && m != nil {
			id := m.ID()
			if id == "" {
				id = "/"
			}
			return action + ": " + id
		}
	}
	return action
}
