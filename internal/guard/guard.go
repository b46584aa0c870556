package guard

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputLength bounds report text before it reaches any other stage.
const DefaultMaxInputLength = 500000

// Redacted replaces leaked system-prompt fragments in model output.
const Redacted = "[REDACTED]"

// Finding is the result of classifying untrusted text.
type Finding struct {
	Suspicious bool
	Reason     string
}

// Guard applies a Catalog. It holds no mutable state and is safe for
// concurrent use.
type Guard struct {
	catalog *Catalog
}

// New returns a Guard over c, or over the default catalog when c is nil.
func New(c *Catalog) *Guard {
	if c == nil {
		c = defaultCatalog
	}
	return &Guard{catalog: c}
}

var defaultGuard = New(nil)

var excessNewlines = regexp.MustCompile(`\n{4,}`)

// SanitizeInput bounds and scrubs untrusted report text. The result is at
// most maxLength bytes, contains no NUL bytes and none of the catalog's
// invisible characters or control tokens. A negative maxLength means
// DefaultMaxInputLength.
func (g *Guard) SanitizeInput(text string, maxLength int) string {
	if maxLength < 0 {
		maxLength = DefaultMaxInputLength
	}
	if text == "" || maxLength == 0 {
		return ""
	}
	text = truncateBytes(text, maxLength)
	text = strings.ReplaceAll(text, "\x00", "")
	text = excessNewlines.ReplaceAllString(text, "\n\n\n")
	if re := g.catalog.inputTokenRE; re != nil {
		text = re.ReplaceAllString(text, "")
	}
	return g.catalog.invisibleRepl.Replace(text)
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Classify reports whether text looks like a prompt injection attempt.
// Catalog patterns are checked first in priority order; the aggressive
// heuristics only run when none of them hit.
func (g *Guard) Classify(text string, aggressive bool) Finding {
	lower := strings.ToLower(text)
	for _, p := range g.catalog.injection {
		if m := p.re.FindString(lower); m != "" {
			return Finding{
				Suspicious: true,
				Reason:     fmt.Sprintf("potential prompt injection detected: '%s'", m),
			}
		}
	}
	if !aggressive {
		return Finding{}
	}
	return g.catalog.heuristics.check(text, lower)
}

func (h Heuristics) check(text, lower string) Finding {
	length := utf8.RuneCountInString(text)
	if length > h.CapsMinLength {
		upper := 0
		for _, r := range text {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		if float64(upper)/float64(length) > h.CapsRatio {
			for _, w := range h.EmphasisWords {
				if strings.Count(text, w) > h.EmphasisRepeat {
					return Finding{Suspicious: true, Reason: fmt.Sprintf("suspicious emphasis pattern detected with word: %s", w)}
				}
			}
		}
	}

	for _, w := range h.InstructionWords {
		if strings.Count(lower, w) > h.InstructionRepeat {
			return Finding{Suspicious: true, Reason: fmt.Sprintf("excessive repetition of instruction keyword: %s", w)}
		}
	}

	// "system" alone is common in honest writeups; require it in
	// injection phrasing as well.
	if strings.Count(lower, "system") > h.SystemRepeat {
		hits := 0
		for _, p := range h.SystemPhrases {
			hits += strings.Count(lower, p)
		}
		if hits > h.SystemPhraseLimit {
			return Finding{Suspicious: true, Reason: "suspicious usage of 'system' keyword in injection context"}
		}
	}
	return Finding{}
}

// SanitizeOutput scrubs a model reply before it is parsed or shown. Leak
// patterns are redacted; strict mode also drops short lines that echo the
// system prompt. It never fails.
func (g *Guard) SanitizeOutput(text string, strict bool) string {
	if text == "" {
		return ""
	}
	for _, re := range g.catalog.leaks {
		text = re.ReplaceAllString(text, Redacted)
	}
	if strict {
		text = g.dropEchoedLines(text)
	}
	if re := g.catalog.outputTokenRE; re != nil {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

func (g *Guard) dropEchoedLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !g.echoesSystemPrompt(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func (g *Guard) echoesSystemPrompt(line string) bool {
	if utf8.RuneCountInString(line) >= 200 {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(line))
	for _, f := range g.catalog.leakFragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// SanitizeInput applies the default catalog.
func SanitizeInput(text string, maxLength int) string {
	return defaultGuard.SanitizeInput(text, maxLength)
}

// Classify applies the default catalog.
func Classify(text string, aggressive bool) Finding {
	return defaultGuard.Classify(text, aggressive)
}

// SanitizeOutput applies the default catalog.
func SanitizeOutput(text string, strict bool) string {
	return defaultGuard.SanitizeOutput(text, strict)
}
