package guard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPathTraversal is returned for paths containing "..".
	ErrPathTraversal = errors.New("path traversal detected")
	// ErrSensitivePath is returned for absolute paths into system directories.
	ErrSensitivePath = errors.New("access to sensitive path not allowed")
)

var sensitiveDirs = []string{"/etc", "/sys", "/proc", "/root", "/boot"}

// SanitizePath validates a path taken from untrusted text. Safe paths are
// returned trimmed and otherwise unchanged.
func SanitizePath(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.Contains(path, "..") {
		return "", ErrPathTraversal
	}
	path = strings.TrimSpace(path)
	for _, dir := range sensitiveDirs {
		if strings.HasPrefix(path, dir) {
			return "", fmt.Errorf("%w: %s", ErrSensitivePath, dir)
		}
	}
	return path, nil
}

// TruncateWithEllipsis shortens text to maxLength runes, ending in "...".
func TruncateWithEllipsis(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// EscapeHTML encodes the five HTML-significant characters.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}
