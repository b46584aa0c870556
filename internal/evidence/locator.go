package evidence

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/julianshen/gavel/internal/guard"
	"github.com/julianshen/gavel/internal/logging"
	"github.com/julianshen/gavel/internal/report"
)

// Tier limits.
const (
	MaxFunctionFiles = 5
	// Keyword search only runs when fewer entries than this were found.
	KeywordFallbackBelow = 3
)

// Locator builds an evidence Map for a report. It never writes to the
// codebase and never fails; unreadable files are skipped.
type Locator struct {
	reader   *Reader
	backend  TextSearchBackend
	maxFiles int
	log      *zap.SugaredLogger
}

// Option configures a Locator.
type Option func(*Locator)

// WithReader sets the file reader and its limits.
func WithReader(r *Reader) Option {
	return func(l *Locator) { l.reader = r }
}

// WithBackend sets the keyword search backend, bypassing the probe.
func WithBackend(b TextSearchBackend) Option {
	return func(l *Locator) { l.backend = b }
}

// WithMaxFiles caps the evidence map size.
func WithMaxFiles(n int) Option {
	return func(l *Locator) { l.maxFiles = n }
}

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(l *Locator) { l.log = log }
}

// NewLocator returns a Locator. When no backend is given one is chosen by
// probing for ripgrep.
func NewLocator(ctx context.Context, opts ...Option) *Locator {
	l := &Locator{maxFiles: DefaultMaxFiles}
	for _, opt := range opts {
		opt(l)
	}
	l.log = logging.OrNop(l.log)
	if l.reader == nil {
		l.reader = NewReader(0, 0)
	}
	if l.backend == nil {
		l.backend = ProbeBackend(ctx, l.reader, l.log)
	}
	return l
}

// Backend returns the keyword search backend in use.
func (l *Locator) Backend() TextSearchBackend { return l.backend }

// Locate gathers evidence in priority order: files the report names,
// files defining functions it names, then keyword hits if too little was
// found.
func (l *Locator) Locate(ctx context.Context, root string, d report.Details) *Map {
	m := NewMap(l.maxFiles)

	l.findMentionedFiles(ctx, root, d.AffectedFiles, m)
	l.findFunctionDefinitions(ctx, root, d.AffectedFunctions, m)

	if m.Len() < KeywordFallbackBelow && !m.Full() {
		terms := d.SearchTerms()
		if len(terms) > 0 {
			for _, h := range l.backend.Search(ctx, root, terms) {
				if m.Add(h.Path, h.Content) {
					l.log.Debugw("evidence via keyword search", "path", h.Path, "backend", l.backend.Name())
				}
			}
		}
	}
	return m
}

func (l *Locator) findMentionedFiles(ctx context.Context, root string, names []string, m *Map) {
	for _, name := range names {
		if m.Full() || ctx.Err() != nil {
			return
		}
		path, ok := l.resolveMention(ctx, root, name)
		if !ok || m.Has(path) {
			continue
		}
		if content, ok := l.reader.Read(path); ok {
			m.Add(path, content)
			l.log.Debugw("evidence via file mention", "path", path)
		}
	}
}

// resolveMention maps a path named in the report to a file under root:
// the joined path if it exists, else the first file with the same base
// name.
func (l *Locator) resolveMention(ctx context.Context, root, name string) (string, bool) {
	clean, err := guard.SanitizePath(name)
	if err != nil || clean == "" {
		l.log.Debugw("rejected file mention", "name", name, "error", err)
		return "", false
	}
	exact := filepath.Join(root, clean)
	if within(root, exact) && containedFile(root, exact) {
		return exact, true
	}

	base := filepath.Base(clean)
	var found string
	walkFiles(ctx, root, func(path string) bool {
		if filepath.Base(path) == base {
			found = path
			return false
		}
		return true
	})
	return found, found != ""
}

// containedFile reports whether path is a regular file, not a symlink,
// whose resolved location is still under root.
func containedFile(root, path string) bool {
	info, err := os.Lstat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(path)
	return err == nil && within(realRoot, resolved)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (l *Locator) findFunctionDefinitions(ctx context.Context, root string, names []string, m *Map) {
	if len(names) == 0 || m.Full() {
		return
	}
	patterns := make([]*regexp.Regexp, 0, len(names))
	for _, n := range names {
		patterns = append(patterns, definitionPattern(n))
	}

	found := 0
	walkFiles(ctx, root, func(path string) bool {
		if !IsCodeFile(path) || m.Has(path) {
			return true
		}
		content, ok := l.reader.Read(path)
		if !ok {
			return true
		}
		for i, re := range patterns {
			if re.MatchString(content) {
				if m.Add(path, content) {
					found++
					l.log.Debugw("evidence via function definition", "function", names[i], "path", path)
				}
				break
			}
		}
		return found < MaxFunctionFiles && !m.Full()
	})
}

// definitionPattern matches a definition of name in Python, JavaScript,
// Java and C-family, Rust or Go source.
func definitionPattern(name string) *regexp.Regexp {
	n := regexp.QuoteMeta(name)
	forms := []string{
		`def\s+` + n + `\s*\(`,
		`function\s+` + n + `\s*\(`,
		n + `\s*:\s*function`,
		`(public|private|protected)?\s*\w*\s+` + n + `\s*\(`,
		`fn\s+` + n + `\s*\(`,
		`func\s+` + n + `\s*\(`,
	}
	return regexp.MustCompile(`(?m)` + strings.Join(forms, "|"))
}
