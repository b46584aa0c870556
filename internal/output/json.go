package output

import (
	"encoding/json"

	"github.com/julianshen/gavel/internal/verdict"
)

// JSONFormatter outputs results as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format marshals the result as indented JSON.
func (f *JSONFormatter) Format(result *verdict.Result) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// FormatBatch marshals the entries as an indented JSON array.
func (f *JSONFormatter) FormatBatch(entries []verdict.BatchEntry) ([]byte, error) {
	if entries == nil {
		entries = []verdict.BatchEntry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}
