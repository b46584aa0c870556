package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianshen/gavel/internal/verdict"
)

const panelWidth = 76

// Banner is printed above text output. It spells "GAVEL".
const Banner = `   ____    _    __     _______ _
  / ___|  / \   \ \   / / ____| |
 | |  _  / _ \   \ \ / /|  _| | |
 | |_| |/ ___ \   \ V / | |___| |___
  \____/_/   \_\   \_/  |_____|_____|`

const tagline = "vulnerability report triage"

var verdictColors = map[verdict.Verdict]lipgloss.TerminalColor{
	verdict.Valid:   lipgloss.Color("#00AA00"),
	verdict.Invalid: lipgloss.Color("#FF0000"),
	verdict.Error:   lipgloss.Color("#FFAA00"),
}

// TextFormatter renders results as bordered terminal panels. Colour is
// used only when the destination writer supports it.
type TextFormatter struct {
	r      *lipgloss.Renderer
	label  lipgloss.Style
	banner lipgloss.Style
}

// NewTextFormatter creates a TextFormatter for output written to w.
func NewTextFormatter(w io.Writer) *TextFormatter {
	r := lipgloss.NewRenderer(w)
	return &TextFormatter{
		r:      r,
		label:  r.NewStyle().Faint(true),
		banner: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#006B8F", Dark: "#5FD7FF"}).Bold(true),
	}
}

// Banner returns the styled banner.
func (f *TextFormatter) Banner() string {
	return f.banner.Render(Banner) + "\n" + f.label.Render("  "+tagline) + "\n"
}

// Format renders a single result panel.
func (f *TextFormatter) Format(result *verdict.Result) ([]byte, error) {
	return []byte(f.panel(*result, "") + "\n"), nil
}

// FormatBatch renders one panel per entry followed by a summary line.
func (f *TextFormatter) FormatBatch(entries []verdict.BatchEntry) ([]byte, error) {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(f.panel(e.Result, e.File))
		b.WriteString("\n\n")
	}
	b.WriteString(Summarize(entries).String())
	b.WriteString("\n")
	return []byte(b.String()), nil
}

func (f *TextFormatter) panel(res verdict.Result, file string) string {
	color, ok := verdictColors[res.Verdict]
	if !ok {
		color = verdictColors[verdict.Error]
	}
	box := f.r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Width(panelWidth).
		Padding(0, 1)
	head := f.r.NewStyle().Foreground(color).Bold(true)

	var b strings.Builder
	b.WriteString(f.label.Render("Verification Result"))
	if file != "" {
		b.WriteString(f.label.Render(" · ") + file)
	}
	b.WriteString("\n\n")
	b.WriteString(head.Render(string(res.Verdict)))
	b.WriteString("\n\n")
	b.WriteString(f.label.Render("Reasoning: ") + res.Reasoning)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s%s   %s%s",
		f.label.Render("Report ID: "), res.ReportID,
		f.label.Render("Confidence: "), res.Confidence)
	if res.PoC != "" {
		b.WriteString("\n\n")
		b.WriteString(f.label.Render("Proof of Concept:"))
		b.WriteString("\n")
		b.WriteString(res.PoC)
	}
	return box.Render(b.String())
}
