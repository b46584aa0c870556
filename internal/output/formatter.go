// Package output renders verification results for the terminal, for
// machines, and for reports.
package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/julianshen/gavel/internal/verdict"
)

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Formatter formats verification results into output bytes.
type Formatter interface {
	Format(result *verdict.Result) ([]byte, error)
	FormatBatch(entries []verdict.BatchEntry) ([]byte, error)
}

// Formats lists the names accepted by New.
var Formats = []string{"text", "json", "markdown"}

// New returns the formatter for name. w is where text output will be
// written and decides whether it is coloured.
func New(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return NewTextFormatter(w), nil
	case "json":
		return NewJSONFormatter(), nil
	case "markdown", "md":
		return NewMarkdownFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Summary counts batch entries per verdict.
type Summary struct {
	Total   int
	Valid   int
	Invalid int
	Errors  int
}

// Summarize tallies entries.
func Summarize(entries []verdict.BatchEntry) Summary {
	s := Summary{Total: len(entries)}
	for _, e := range entries {
		switch e.Verdict {
		case verdict.Valid:
			s.Valid++
		case verdict.Invalid:
			s.Invalid++
		default:
			s.Errors++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d reports: %d valid, %d invalid, %d errors", s.Total, s.Valid, s.Invalid, s.Errors)
}
