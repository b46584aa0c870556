// Package repo fetches remote codebases into a local cache so the
// evidence locator can search them like any other directory.
package repo

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/julianshen/gavel/internal/integrations"
	"github.com/julianshen/gavel/internal/logging"
)

// ErrInvalidURL is returned for URLs that do not name a GitHub repository.
var ErrInvalidURL = errors.New("invalid GitHub URL")

const (
	DefaultCloneTimeout = 5 * time.Minute
	DefaultPullTimeout  = time.Minute
	cacheDirName        = "gavel_repos"
)

var githubURLs = []*regexp.Regexp{
	regexp.MustCompile(`^https?://github\.com/[\w\-]+/[\w\-]+/?$`),
	regexp.MustCompile(`^https?://github\.com/[\w\-]+/[\w\-]+\.git$`),
	regexp.MustCompile(`^git@github\.com:[\w\-]+/[\w\-]+\.git$`),
}

var ownerRepo = regexp.MustCompile(`github\.com[:/]([\w\-]+)/([\w\-]+)`)

// IsGitHubURL reports whether url names a GitHub repository.
func IsGitHubURL(url string) bool {
	for _, re := range githubURLs {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// IsRemote reports whether codebase looks like a URL rather than a path.
func IsRemote(codebase string) bool {
	return strings.HasPrefix(codebase, "http://") ||
		strings.HasPrefix(codebase, "https://") ||
		strings.HasPrefix(codebase, "git@")
}

// CacheName returns the directory name a clone of url is kept under:
// owner_repo_ plus a short hash of the full URL.
func CacheName(url string) string {
	sum := md5.Sum([]byte(url))
	hash := hex.EncodeToString(sum[:])

	trimmed := strings.TrimSuffix(strings.TrimSuffix(url, "/"), ".git")
	if m := ownerRepo.FindStringSubmatch(trimmed); m != nil {
		return m[1] + "_" + m[2] + "_" + hash[:8]
	}
	return hash[:16]
}

// Fetcher clones repositories into a cache directory and refreshes them
// on later fetches.
type Fetcher struct {
	cacheDir     string
	cloneTimeout time.Duration
	pullTimeout  time.Duration
	allow        func(string) bool
	log          *zap.SugaredLogger
}

// NewFetcher returns a Fetcher. An empty cacheDir means a gavel_repos
// directory under the system temp dir.
func NewFetcher(cacheDir string, cloneTimeout time.Duration, log *zap.SugaredLogger) *Fetcher {
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), cacheDirName)
	}
	if cloneTimeout <= 0 {
		cloneTimeout = DefaultCloneTimeout
	}
	return &Fetcher{
		cacheDir:     cacheDir,
		cloneTimeout: cloneTimeout,
		pullTimeout:  DefaultPullTimeout,
		allow:        IsGitHubURL,
		log:          logging.OrNop(log),
	}
}

// CacheDir returns the directory clones are kept in.
func (f *Fetcher) CacheDir() string { return f.cacheDir }

// Fetch returns a local path holding url. An existing clone is pulled;
// a failed pull keeps the cached copy.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if !f.allow(url) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("creating repo cache: %w", err)
	}

	local := filepath.Join(f.cacheDir, CacheName(url))
	git := integrations.NewGitRunner(local)

	if isClone(local) {
		f.log.Infow("repository cached, pulling", "path", local)
		pullCtx, cancel := context.WithTimeout(ctx, f.pullTimeout)
		defer cancel()
		if err := git.Pull(pullCtx); err != nil {
			f.log.Warnw("pull failed, using cached copy", "path", local, "error", err)
		}
		return local, nil
	}

	f.log.Infow("cloning repository", "url", url, "path", local)
	cloneCtx, cancel := context.WithTimeout(ctx, f.cloneTimeout)
	defer cancel()
	if err := git.Clone(cloneCtx, url); err != nil {
		// Leave no half-written clone behind to be mistaken for a cache hit.
		os.RemoveAll(local)
		return "", fmt.Errorf("failed to clone repository: %w", err)
	}
	return local, nil
}

func isClone(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// Info describes the checked-out state of a local repository.
type Info struct {
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit,omitempty"`
	Remote string `json:"remote,omitempty"`
}

// Describe returns what it can learn about the git checkout at path, or
// nil when path is not a repository or nothing could be read.
func Describe(ctx context.Context, path string) *Info {
	if !isClone(path) {
		return nil
	}
	git := integrations.NewGitRunner(path)

	var info Info
	if b, err := git.Branch(ctx); err == nil {
		info.Branch = b
	}
	if h, err := git.Head(ctx); err == nil && len(h) >= 8 {
		info.Commit = h[:8]
	}
	if r, err := git.RemoteURL(ctx); err == nil {
		info.Remote = r
	}
	if info == (Info{}) {
		return nil
	}
	return &info
}
