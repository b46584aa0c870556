// Package optimizer shrinks evidence before it is sent to a model.
// Every transform removes or compresses lines; none adds content beyond
// the per-file delimiter.
package optimizer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/julianshen/gavel/internal/evidence"
)

const delimiterWidth = 60

var delimiterRule = strings.Repeat("=", delimiterWidth)

var functionDefinition = []*regexp.Regexp{
	regexp.MustCompile(`^\s*def\s+\w+`),
	regexp.MustCompile(`^\s*function\s+\w+`),
	regexp.MustCompile(`^\s*(public|private|protected)?\s*\w+\s+\w+\s*\(`),
	regexp.MustCompile(`^\s*fn\s+\w+`),
	regexp.MustCompile(`^\s*func\s+\w+`),
}

var importLine = []*regexp.Regexp{
	regexp.MustCompile(`^\s*import\s+`),
	regexp.MustCompile(`^\s*from\s+.*\s+import\s+`),
	regexp.MustCompile(`^\s*require\s*\(`),
	regexp.MustCompile(`^\s*#include\s+`),
	regexp.MustCompile(`^\s*using\s+`),
	regexp.MustCompile(`^\s*use\s+`),
}

var criticalKeywords = []string{
	"crypto", "security", "auth", "password", "hash", "encrypt",
	"validate", "sanitize", "sql", "database", "exec", "eval",
}

var genericComments = map[string]bool{
	"todo": true, "fixme": true, "hack": true, "note": true,
	"xxx": true, "end": true, "start": true, "begin": true,
}

const minCommentLength = 10

// Stats summarizes a run of Optimize.
type Stats struct {
	Files       int
	LinesBefore int
	LinesAfter  int
}

// Reduction returns the fraction of lines removed.
func (s Stats) Reduction() float64 {
	if s.LinesBefore == 0 {
		return 0
	}
	return float64(s.LinesBefore-s.LinesAfter) / float64(s.LinesBefore)
}

// Optimize concatenates every entry of m, in order, each compressed and
// preceded by a delimiter naming its path. It is a pure function of m.
func Optimize(m *evidence.Map) string {
	out, _ := OptimizeWithStats(m)
	return out
}

// OptimizeWithStats is Optimize plus line counts for reporting.
func OptimizeWithStats(m *evidence.Map) (string, Stats) {
	var st Stats
	if m == nil {
		return "", st
	}
	parts := make([]string, 0, m.Len())
	for _, e := range m.Entries() {
		body := OptimizeFile(e.Content)
		st.Files++
		st.LinesBefore += lineCount(e.Content)
		st.LinesAfter += lineCount(body)
		parts = append(parts, Delimiter(e.Path)+body)
	}
	return strings.Join(parts, "\n"), st
}

// Delimiter returns the block that introduces a file in optimized output.
func Delimiter(path string) string {
	return "\n" + delimiterRule + "\nFILE: " + path + "\n" + delimiterRule + "\n"
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}

// OptimizeFile compresses a single file.
func OptimizeFile(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	importsDone := false
	blankRun := 0

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			blankRun++
			if blankRun == 1 {
				out = append(out, "")
			}
			continue
		}
		blankRun = 0

		if matchesAny(functionDefinition, stripped) {
			importsDone = true
		}

		isImport := matchesAny(importLine, stripped)
		if !importsDone && isImport {
			if isCriticalImport(stripped) {
				out = append(out, strings.TrimRight(line, " \t\r"))
			}
			continue
		}

		isComment := isCommentLine(stripped)
		if !isImport && !isComment {
			importsDone = true
		}

		if isComment {
			if c := compressComment(stripped); c != "" {
				out = append(out, c)
			}
			continue
		}

		out = append(out, strings.TrimRight(line, " \t\r"))
	}
	return strings.Join(out, "\n")
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func isCriticalImport(line string) bool {
	lower := strings.ToLower(line)
	for _, k := range criticalKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func isCommentLine(stripped string) bool {
	return strings.HasPrefix(stripped, "#") ||
		strings.HasPrefix(stripped, "//") ||
		strings.HasPrefix(stripped, "/*") ||
		strings.HasPrefix(stripped, "*")
}

// compressComment returns the comment with its marker and collapsed body,
// or "" when the body is too short or generic to be worth keeping.
// Block-comment lines pass through.
func compressComment(stripped string) string {
	var marker, body string
	switch {
	case strings.HasPrefix(stripped, "#"):
		marker, body = "#", stripped[1:]
	case strings.HasPrefix(stripped, "//"):
		marker, body = "//", stripped[2:]
	default:
		return stripped
	}
	body = strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(body) < minCommentLength || genericComments[strings.ToLower(body)] {
		return ""
	}
	return marker + body
}

// EstimateTokens approximates the token count of text at four characters
// per token.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}
