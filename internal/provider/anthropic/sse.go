package anthropic

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent represents a single Server-Sent Event.
type sseEvent struct {
	Event string
	Data  string
}

// sseScanner reads SSE events from an io.Reader one at a time, in the
// manner of bufio.Scanner.
type sseScanner struct {
	scanner *bufio.Scanner
	event   sseEvent
	err     error
	done    bool
}

// maxEventLine bounds a single data line. Large replies arrive as many
// small deltas, so this only guards against a broken stream.
const maxEventLine = 1 << 20

func newSSEScanner(r io.Reader) *sseScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	return &sseScanner{scanner: s}
}

// Next advances to the next event. It returns false at end of input or
// on a read error.
func (s *sseScanner) Next() bool {
	if s.done {
		return false
	}

	var current sseEvent
	hasData := false

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// A blank line ends the event.
		if line == "" {
			if hasData || current.Event != "" {
				s.event = current
				return true
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimSpace(value)
		switch field {
		case "event":
			current.Event = value
		case "data":
			if hasData {
				current.Data += "\n" + value
			} else {
				current.Data = value
				hasData = true
			}
		}
	}

	s.err = s.scanner.Err()
	s.done = true

	// Stream ended without a trailing blank line.
	if hasData || current.Event != "" {
		s.event = current
		return true
	}

	return false
}

// Event returns the most recent SSE event read by Next.
func (s *sseScanner) Event() sseEvent {
	return s.event
}

// Err returns the first non-EOF error encountered by the scanner.
func (s *sseScanner) Err() error {
	return s.err
}
