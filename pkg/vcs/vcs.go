// Package vcs asks version control for the revision of a checkout.
package vcs

import (
	"context"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Unknown is returned when no revision can be determined.
const Unknown = "unknown"

// Runner runs a command in dir and returns its standard output.
type Runner func(ctx context.Context, dir, name string, args ...string) (string, error)

func execRunner(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return string(out), err
}

// Querier finds revisions with git, falling back to Mercurial.
type Querier struct {
	Run    Runner
	Logger hclog.Logger
}

// New returns a Querier using the real tools.
func New(logger hclog.Logger) *Querier {
	return &Querier{Run: execRunner, Logger: logger}
}

// Revision returns the revision of dir or Unknown.
func (q *Querier) Revision(ctx context.Context, dir string) string {
	rev, _ := q.revision(ctx, dir)
	return rev
}

// Dirty reports whether the checkout has uncommitted changes.
func (q *Querier) Dirty(ctx context.Context, dir string) bool {
	_, dirty := q.revision(ctx, dir)
	return dirty
}

func (q *Querier) revision(ctx context.Context, dir string) (string, bool) {
	if out, err := q.Run(ctx, dir, "git", "rev-parse", "HEAD"); err == nil {
		if rev := strings.TrimSpace(out); rev != "" {
			status, _ := q.Run(ctx, dir, "git", "status", "--porcelain", "--untracked-files=no")
			return rev, strings.TrimSpace(status) != ""
		}
	}
	if out, err := q.Run(ctx, dir, "hg", "id", "-i", "--debug"); err == nil {
		if rev := strings.TrimSpace(out); rev != "" {
			dirty := strings.HasSuffix(rev, "+")
			return strings.TrimSuffix(rev, "+"), dirty
		}
	}
	q.Logger.Debug("🔍 No version control information", "dir", dir)
	return Unknown, false
}
