package integrations

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// GitCommit represents a git log entry.
type GitCommit struct {
	Hash    string
	Author  string
	Message string
}

// GitRunner executes git commands in a project directory.
type GitRunner struct {
	workDir string
}

// NewGitRunner creates a GitRunner for the given directory.
func NewGitRunner(workDir string) *GitRunner {
	return &GitRunner{workDir: workDir}
}

// Clone makes a shallow clone of url into the runner's directory.
func (g *GitRunner) Clone(ctx context.Context, url string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", "--", url, g.workDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Pull updates the working tree from its remote.
func (g *GitRunner) Pull(ctx context.Context) error {
	_, err := g.run(ctx, "pull", "--ff-only")
	return err
}

// Branch returns the checked-out branch name.
func (g *GitRunner) Branch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	return strings.TrimSpace(out), err
}

// Head returns the full hash of HEAD.
func (g *GitRunner) Head(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "HEAD")
	return strings.TrimSpace(out), err
}

// RemoteURL returns the URL of origin.
func (g *GitRunner) RemoteURL(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "config", "--get", "remote.origin.url")
	return strings.TrimSpace(out), err
}

// Log runs git log and parses the output into structured commits.
// Fields are separated by ASCII record separators so that subjects
// containing any printable character survive.
func (g *GitRunner) Log(ctx context.Context, args ...string) ([]GitCommit, error) {
	const sep = "\x1e"
	cmdArgs := append([]string{"log", "--format=%H%x1e%an%x1e%s"}, args...)
	out, err := g.run(ctx, cmdArgs...)
	if err != nil {
		return nil, err
	}

	var commits []GitCommit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.SplitN(line, sep, 3)
		if len(parts) < 3 {
			continue
		}
		commits = append(commits, GitCommit{
			Hash:    parts[0],
			Author:  parts[1],
			Message: parts[2],
		})
	}

	return commits, nil
}

func (g *GitRunner) run(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("git: no subcommand provided")
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workDir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}
