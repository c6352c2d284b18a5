package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDestination commits backups to a file in a local clone and pushes them.
type GitDestination struct {
	repo   string
	file   string // relative to repo
	branch string
}

// NewGitDestination returns a destination writing file on branch of the
// existing clone at repo.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{repo: repo, file: file, branch: branch}
}

func (d *GitDestination) Name() string { return "git:" + filepath.Join(d.repo, d.file) }

// Write commits b when it changes the file and pushes the branch.
func (d *GitDestination) Write(ctx context.Context, b *Backup) error {
	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}
	// The remote branch may not exist yet.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(path, b.Data, 0o644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	if err := d.git(ctx, "add", d.file); err != nil {
		return err
	}
	if err := d.git(ctx, "diff", "--cached", "--quiet"); err == nil {
		return nil
	}

	msg := fmt.Sprintf("sync: back up %d geotifications", b.Count)
	if err := d.git(ctx, "commit", "-m", msg); err != nil {
		return err
	}
	return d.git(ctx, "push", "origin", d.branch)
}

// git runs a git subcommand in the clone. Failures carry git's output.
func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if msg := strings.TrimSpace(string(out)); errors.As(err, &exitErr) && msg != "" {
		return fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return fmt.Errorf("git %s: %w", args[0], err)
}
