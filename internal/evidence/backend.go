package evidence

import (
	"context"
	"os/exec"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/julianshen/gavel/internal/logging"
)

// Hit is a file returned by a keyword search along with its content.
type Hit struct {
	Path    string
	Content string
}

// TextSearchBackend finds files containing any of a set of terms. Failures
// are swallowed; a backend that cannot search returns no hits.
type TextSearchBackend interface {
	Name() string
	Search(ctx context.Context, root string, terms []string) []Hit
}

// Keyword search limits.
const (
	RipgrepMaxFiles    = 10
	RipgrepMaxTerms    = 3
	RipgrepTermTimeout = 5 * time.Second
	WalkMaxFiles       = 5
)

var ripgrepExcludes = []string{
	"*lock*", "*.lock", "*.log", "package.json", "*.toml",
	"*.json", "*.yaml", "*.yml", "*.md",
}

var ignoredDirList = func() []string {
	dirs := make([]string, 0, len(ignoredDirs))
	for d := range ignoredDirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}()

// Ripgrep searches with an external rg binary.
type Ripgrep struct {
	path    string
	reader  *Reader
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewRipgrep returns a backend that runs the rg binary at path.
func NewRipgrep(path string, reader *Reader, log *zap.SugaredLogger) *Ripgrep {
	return &Ripgrep{path: path, reader: reader, timeout: RipgrepTermTimeout, log: logging.OrNop(log)}
}

func (r *Ripgrep) Name() string { return "ripgrep" }

// Search runs one rg invocation per term for the first few terms. A timeout
// or failure for one term does not stop the others.
func (r *Ripgrep) Search(ctx context.Context, root string, terms []string) []Hit {
	if len(terms) > RipgrepMaxTerms {
		terms = terms[:RipgrepMaxTerms]
	}
	var hits []Hit
	seen := map[string]bool{}
	for _, term := range terms {
		if ctx.Err() != nil {
			break
		}
		paths, err := r.listFiles(ctx, root, term)
		if err != nil {
			r.log.Debugw("ripgrep term skipped", "term", term, "error", err)
			continue
		}
		paths = codeFiles(paths)
		if len(paths) > RipgrepMaxFiles {
			paths = paths[:RipgrepMaxFiles]
		}
		for _, p := range paths {
			if seen[p] {
				continue
			}
			seen[p] = true
			if content, ok := r.reader.Read(p); ok {
				hits = append(hits, Hit{Path: p, Content: content})
			}
		}
		if len(hits) >= RipgrepMaxFiles {
			break
		}
	}
	return hits
}

func (r *Ripgrep) listFiles(ctx context.Context, root, term string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{"-l", "--max-count", "1", "-i", "--color", "never"}
	for _, g := range ripgrepExcludes {
		args = append(args, "-g", "!"+g)
	}
	for _, d := range ignoredDirList {
		args = append(args, "-g", "!"+d+"/")
	}
	args = append(args, "--", term, root)

	cmd := exec.CommandContext(ctx, r.path, args...)
	cmd.WaitDelay = time.Second
	out, err := cmd.Output()
	if err != nil {
		// Exit status 1 means no matches; anything else is a failure. Both
		// yield no files.
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// codeFiles keeps the paths with a searchable source extension, since the
// exclude globs alone let through files such as .ini or Dockerfile.
func codeFiles(paths []string) []string {
	kept := paths[:0]
	for _, p := range paths {
		if IsCodeFile(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

// Walk scans the tree in-process with case-insensitive substring matching.
type Walk struct {
	reader *Reader
}

// NewWalk returns the in-process backend.
func NewWalk(reader *Reader) *Walk {
	return &Walk{reader: reader}
}

func (w *Walk) Name() string { return "walk" }

// Search returns at most WalkMaxFiles code files containing any term,
// stopping the scan as soon as the cap is reached.
func (w *Walk) Search(ctx context.Context, root string, terms []string) []Hit {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != "" {
			lowered = append(lowered, strings.ToLower(t))
		}
	}
	if len(lowered) == 0 {
		return nil
	}

	var hits []Hit
	walkFiles(ctx, root, func(path string) bool {
		if !IsCodeFile(path) {
			return true
		}
		content, ok := w.reader.Read(path)
		if !ok {
			return true
		}
		lc := strings.ToLower(content)
		for _, t := range lowered {
			if strings.Contains(lc, t) {
				hits = append(hits, Hit{Path: path, Content: content})
				break
			}
		}
		return len(hits) < WalkMaxFiles
	})
	return hits
}

// ProbeBackend picks ripgrep when an rg binary is on PATH and answers
// --version, and the in-process walk otherwise.
func ProbeBackend(ctx context.Context, reader *Reader, log *zap.SugaredLogger) TextSearchBackend {
	log = logging.OrNop(log)
	path, err := exec.LookPath("rg")
	if err == nil {
		ctx, cancel := context.WithTimeout(ctx, RipgrepTermTimeout)
		defer cancel()
		if err = exec.CommandContext(ctx, path, "--version").Run(); err == nil {
			log.Debugw("keyword search backend selected", "backend", "ripgrep", "path", path)
			return NewRipgrep(path, reader, log)
		}
	}
	log.Debugw("keyword search backend selected", "backend", "walk", "reason", err)
	return NewWalk(reader)
}
