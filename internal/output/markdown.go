package output

import (
	"fmt"
	"strings"

	"github.com/julianshen/gavel/internal/verdict"
)

// MarkdownFormatter outputs results as Markdown suitable for pasting into
// an issue tracker.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format renders a single result.
func (f *MarkdownFormatter) Format(result *verdict.Result) ([]byte, error) {
	var b strings.Builder
	writeResult(&b, "##", *result)
	return []byte(b.String()), nil
}

// FormatBatch renders a summary table followed by one section per entry.
func (f *MarkdownFormatter) FormatBatch(entries []verdict.BatchEntry) ([]byte, error) {
	var b strings.Builder
	b.WriteString("# Verification Results\n\n")
	b.WriteString("| File | Verdict | Confidence | Report ID |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %s | `%s` |\n", escapeCell(e.File), e.Verdict, e.Confidence, e.ReportID)
	}
	fmt.Fprintf(&b, "\n*%s*\n", Summarize(entries))

	for _, e := range entries {
		fmt.Fprintf(&b, "\n## %s\n\n", e.File)
		writeResult(&b, "###", e.Result)
	}
	return []byte(b.String()), nil
}

func writeResult(b *strings.Builder, heading string, r verdict.Result) {
	fmt.Fprintf(b, "%s Verdict: %s\n\n", heading, r.Verdict)
	fmt.Fprintf(b, "- **Confidence:** %s\n", r.Confidence)
	fmt.Fprintf(b, "- **Report ID:** `%s`\n", r.ReportID)
	fmt.Fprintf(b, "- **Timestamp:** %s\n", r.Timestamp)
	fmt.Fprintf(b, "\n%s# Reasoning\n\n%s\n", heading, r.Reasoning)
	if r.PoC != "" {
		fmt.Fprintf(b, "\n%s# Proof of Concept\n\n```\n%s\n```\n", heading, r.PoC)
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
