// Package evidence locates source files that support or refute a
// vulnerability report.
package evidence

// DefaultMaxFiles caps how many files a Map holds.
const DefaultMaxFiles = 10

// Entry is one file in a Map.
type Entry struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Map is an insertion-ordered, size-capped set of file contents keyed by
// path. The first content stored for a path is never replaced.
type Map struct {
	entries []Entry
	index   map[string]int
	max     int
}

// NewMap returns an empty Map holding at most maxFiles entries.
func NewMap(maxFiles int) *Map {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Map{index: make(map[string]int), max: maxFiles}
}

// Add stores content under path. It reports false when the path is
// already present or the map is full.
func (m *Map) Add(path, content string) bool {
	if _, ok := m.index[path]; ok || m.Full() {
		return false
	}
	m.index[path] = len(m.entries)
	m.entries = append(m.entries, Entry{Path: path, Content: content})
	return true
}

// Has reports whether path is present.
func (m *Map) Has(path string) bool {
	_, ok := m.index[path]
	return ok
}

// Get returns the content stored for path.
func (m *Map) Get(path string) (string, bool) {
	i, ok := m.index[path]
	if !ok {
		return "", false
	}
	return m.entries[i].Content, true
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Cap returns the maximum number of entries.
func (m *Map) Cap() int { return m.max }

// Full reports whether no more entries can be added.
func (m *Map) Full() bool { return len(m.entries) >= m.max }

// Paths returns the paths in insertion order.
func (m *Map) Paths() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Path
	}
	return out
}

// Entries returns a copy of the entries in insertion order.
func (m *Map) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}
