package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/gavel/internal/verdict"
)

func sampleResult() *verdict.Result {
	return &verdict.Result{
		Verdict:    verdict.Valid,
		Reasoning:  "User input reaches the query.",
		Confidence: verdict.High,
		ReportID:   "abcd1234",
		Timestamp:  "2026-01-02T03:04:05Z",
	}
}

func sampleBatch() []verdict.BatchEntry {
	return []verdict.BatchEntry{
		{File: "a.md", Result: *sampleResult()},
		{File: "b|c.txt", Result: verdict.Result{Verdict: verdict.Invalid, Reasoning: "Escaped.", Confidence: verdict.Medium, ReportID: "bbbb2222"}},
		verdict.Failed("d.html", errors.New("boom")),
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	for _, name := range []string{"", "text", "JSON", "markdown", "md"} {
		f, err := New(name, &buf)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}
	_, err := New("xml", &buf)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleBatch())
	assert.Equal(t, Summary{Total: 3, Valid: 1, Invalid: 1, Errors: 1}, s)
	assert.Equal(t, "3 reports: 1 valid, 1 invalid, 1 errors", s.String())
}

func TestJSONFormatter(t *testing.T) {
	out, err := NewJSONFormatter().Format(sampleResult())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "VALID", got["verdict"])
	assert.Equal(t, "abcd1234", got["report_id"])
	assert.NotContains(t, got, "poc")
}

func TestJSONFormatterBatch(t *testing.T) {
	out, err := NewJSONFormatter().FormatBatch(sampleBatch())
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	require.Len(t, got, 3)
	assert.Equal(t, "d.html", got[2]["file"])
	assert.Equal(t, "ERROR", got[2]["verdict"])
	assert.Equal(t, "low", got[2]["confidence"])

	empty, err := NewJSONFormatter().FormatBatch(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestMarkdownFormatter(t *testing.T) {
	r := sampleResult()
	r.PoC = "curl 'http://x/?id=1 OR 1=1'"
	out, err := NewMarkdownFormatter().Format(r)
	require.NoError(t, err)

	md := string(out)
	assert.True(t, strings.HasPrefix(md, "## Verdict: VALID\n"))
	assert.Contains(t, md, "- **Report ID:** `abcd1234`")
	assert.Contains(t, md, "### Reasoning\n\nUser input reaches the query.\n")
	assert.Contains(t, md, "### Proof of Concept\n\n```\ncurl")
}

func TestMarkdownFormatterBatch(t *testing.T) {
	out, err := NewMarkdownFormatter().FormatBatch(sampleBatch())
	require.NoError(t, err)

	md := string(out)
	assert.Contains(t, md, "| a.md | VALID | high | `abcd1234` |")
	assert.Contains(t, md, `| b\|c.txt | INVALID |`)
	assert.Contains(t, md, "## d.html\n\n### Verdict: ERROR")
	assert.Contains(t, md, "Failed to process: boom")
	assert.Contains(t, md, "*3 reports: 1 valid, 1 invalid, 1 errors*")
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(&buf)
	r := sampleResult()
	r.PoC = "payload"

	out, err := f.Format(r)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "VALID")
	assert.Contains(t, text, "Reasoning:")
	assert.Contains(t, text, "abcd1234")
	assert.Contains(t, text, "payload")
	assert.Contains(t, text, "╭")
}

func TestTextFormatterBatch(t *testing.T) {
	var buf bytes.Buffer
	out, err := NewTextFormatter(&buf).FormatBatch(sampleBatch())
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "a.md")
	assert.Contains(t, text, "ERROR")
	assert.True(t, strings.HasSuffix(text, "3 reports: 1 valid, 1 invalid, 1 errors\n"))
	assert.Equal(t, 3, strings.Count(text, "╭"))
}

func TestTextFormatterBanner(t *testing.T) {
	var buf bytes.Buffer
	banner := NewTextFormatter(&buf).Banner()
	assert.Contains(t, banner, "____")
	assert.Contains(t, banner, tagline)
}
