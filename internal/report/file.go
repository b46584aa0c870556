package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a report file does not exist.
var ErrNotFound = errors.New("report file not found")

// Extensions lists the report file types accepted in batch directories.
var Extensions = []string{".txt", ".md", ".html", ".htm"}

// ParseFile reads a report from disk. Invalid UTF-8 is dropped and HTML
// files are converted to text.
func ParseFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("reading report: %w", err)
	}
	content := strings.ToValidUTF8(string(data), "")
	if isHTML(path) {
		return HTMLToText(content)
	}
	return content, nil
}

func isHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// FindReports lists report files directly inside dir, sorted by name.
func FindReports(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("batch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("batch path must be a directory: %s", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing batch directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range Extensions {
			if ext == want {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
