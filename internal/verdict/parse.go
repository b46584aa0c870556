package verdict

import (
	"regexp"
	"strings"
)

// NoReasoning is used when a reply carries no usable explanation.
const NoReasoning = "No reasoning provided"

var (
	verdictLabel   = regexp.MustCompile(`(?i)VERDICT\s*[:\-]?\s*(VALID|INVALID)`)
	leadingValid   = regexp.MustCompile(`(?i)^\s*VALID`)
	reasoningLabel = regexp.MustCompile(`(?is)REASONING\s*[:\-]?\s*(.+?)(?:\n\n|\bPOC\s*[:\-]|\z)`)
	pocLabel       = regexp.MustCompile(`(?is)\bPOC\b\s*[:\-]?\s*(.+)\z`)
	sentenceBreak  = regexp.MustCompile(`[.!?]+`)
)

// Parse extracts a verdict, a short reasoning and an optional proof of
// concept from a model reply. Anything it cannot read defaults toward
// INVALID; it never returns VALID on ambiguity.
func Parse(response string) (Verdict, string, string) {
	return parseVerdict(response), parseReasoning(response), parsePoC(response)
}

func parseVerdict(response string) Verdict {
	if m := verdictLabel.FindStringSubmatch(response); m != nil {
		return Verdict(strings.ToUpper(m[1]))
	}
	if leadingValid.MatchString(response) {
		return Valid
	}
	// Covers the leading INVALID case as well as no signal at all.
	return Invalid
}

func parseReasoning(response string) string {
	var reasoning string
	if m := reasoningLabel.FindStringSubmatch(response); m != nil {
		reasoning = strings.TrimSpace(m[1])
	} else {
		var picked []string
		for _, line := range strings.Split(response, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "VERDICT") || strings.HasPrefix(line, "POC") {
				continue
			}
			picked = append(picked, line)
			if len(picked) == 2 {
				break
			}
		}
		reasoning = NoReasoning
		if len(picked) > 0 {
			reasoning = strings.Join(picked, " ")
		}
	}
	return firstSentences(reasoning, 2)
}

// firstSentences keeps the first n sentence-like segments of s, joined by
// ". " and terminated with a period.
func firstSentences(s string, n int) string {
	segments := sentenceBreak.Split(s, -1)
	if len(segments) > n {
		segments = segments[:n]
	}
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg = strings.TrimSpace(seg); seg != "" {
			kept = append(kept, seg)
		}
	}
	out := strings.Join(kept, ". ")
	if out != "" && !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}

func parsePoC(response string) string {
	m := pocLabel.FindStringSubmatch(response)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
