package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/julianshen/gavel/internal/integrations"
	"github.com/julianshen/gavel/internal/report"
)

// StdinSource names reports read from standard input.
const StdinSource = "-"

// ErrNoInput is returned when no report source is available.
var ErrNoInput = errors.New("no report provided: use --report, --batch, or pipe to stdin")

// PageFetcher downloads a report published at a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (integrations.Page, error)
}

// ResolveReport loads the report named by arg and returns it with a
// source label. arg may be a file path, an http(s) URL, or "-" for
// stdin; an empty arg falls back to stdin. stdinReader may be nil if stdin
// is a TTY (no pipe), and fetcher may be nil when URLs are not allowed.
func ResolveReport(ctx context.Context, arg string, stdinReader io.Reader, fetcher PageFetcher) (source, text string, err error) {
	switch {
	case arg == "" || arg == StdinSource:
		if stdinReader == nil {
			return "", "", ErrNoInput
		}
		data, err := io.ReadAll(stdinReader)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		source, text = StdinSource, string(data)

	case isURL(arg):
		if fetcher == nil {
			return "", "", fmt.Errorf("fetching report %s: URL reports are not enabled", arg)
		}
		page, err := fetcher.Fetch(ctx, arg)
		if err != nil {
			return "", "", fmt.Errorf("fetching report: %w", err)
		}
		text = strings.ToValidUTF8(page.Body, "")
		if page.IsHTML() {
			if text, err = report.HTMLToText(text); err != nil {
				return "", "", err
			}
		}
		source = arg

	default:
		if text, err = report.ParseFile(arg); err != nil {
			return "", "", err
		}
		source = arg
	}

	if strings.TrimSpace(text) == "" {
		return "", "", fmt.Errorf("report is empty: %s", source)
	}
	return source, text, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
