package evidence

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Defaults for Reader.
const (
	DefaultMaxLines       = 500
	DefaultMaxBytes int64 = 1 << 20
)

var ignoredDirs = map[string]bool{
	"node_modules": true, ".git": true, ".venv": true, "venv": true, "env": true,
	"__pycache__": true, "dist": true, "build": true, ".next": true, "out": true,
	"target": true, "vendor": true, ".idea": true, ".vscode": true, "coverage": true,
	".pytest_cache": true, ".mypy_cache": true,
}

var ignoredFiles = map[string]bool{
	"pnpm-lock.yaml": true, "package-lock.json": true, "yarn.lock": true,
	"Cargo.lock": true, "Gemfile.lock": true, "poetry.lock": true, "composer.lock": true,
}

var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".java": true, ".cpp": true, ".c": true, ".h": true, ".hpp": true,
	".go": true, ".rs": true, ".php": true, ".rb": true, ".swift": true,
	".kt": true, ".scala": true, ".sol": true, ".vy": true, ".sh": true, ".bash": true,
}

// IsCodeFile reports whether path has a searchable source extension.
func IsCodeFile(path string) bool {
	return codeExtensions[filepath.Ext(path)]
}

// IsIgnoredDir reports whether a directory name is skipped during scans.
func IsIgnoredDir(name string) bool { return ignoredDirs[name] }

// IsIgnoredFile reports whether a file name is a lock or manifest file.
func IsIgnoredFile(name string) bool { return ignoredFiles[name] }

// Reader loads file content with size and line limits.
type Reader struct {
	MaxLines int
	MaxBytes int64
}

// NewReader returns a Reader using the given limits, substituting defaults
// for non-positive values.
func NewReader(maxLines int, maxBytes int64) *Reader {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Reader{MaxLines: maxLines, MaxBytes: maxBytes}
}

// Read returns the file's content with trailing whitespace stripped from
// every line. It reports false for ignored, oversized, empty or unreadable
// files. Invalid UTF-8 is replaced, not rejected.
func (r *Reader) Read(path string) (string, bool) {
	if IsIgnoredFile(filepath.Base(path)) {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > r.MaxBytes {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), int(r.MaxBytes)+1)
	var lines []string
	for sc.Scan() {
		if len(lines) >= r.MaxLines {
			lines = append(lines, fmt.Sprintf("\n... (file truncated after %d lines)", r.MaxLines))
			break
		}
		line := strings.ToValidUTF8(sc.Text(), "\uFFFD")
		lines = append(lines, strings.TrimRight(line, " \t\r\n\v\f"))
	}
	if sc.Err() != nil || len(lines) == 0 {
		return "", false
	}
	content := strings.Join(lines, "\n")
	if content == "" {
		return "", false
	}
	return content, true
}

// walkFiles visits regular files under root in lexical order, skipping
// ignored directories. visit returns false to stop the walk. Unreadable
// entries are skipped.
func walkFiles(ctx context.Context, root string, visit func(path string) bool) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && IsIgnoredDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !visit(path) {
			return fs.SkipAll
		}
		return nil
	})
}
