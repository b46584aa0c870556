// Package guard defends the verification pipeline against prompt injection
// in both directions: untrusted report text on the way in and model replies
// on the way out.
package guard

import (
	"regexp"
	"strings"
)

// Pattern is a compiled entry of the injection catalog.
type Pattern struct {
	Category string
	re       *regexp.Regexp
}

// String returns the source expression.
func (p Pattern) String() string { return p.re.String() }

// Heuristics holds the thresholds of the aggressive checks that run when no
// catalog pattern matched. Every comparison is strictly greater-than.
type Heuristics struct {
	CapsRatio         float64
	CapsMinLength     int
	EmphasisWords     []string
	EmphasisRepeat    int
	InstructionWords  []string
	InstructionRepeat int
	SystemRepeat      int
	SystemPhrases     []string
	SystemPhraseLimit int
}

// DefaultHeuristics returns the stock thresholds.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		CapsRatio:         0.3,
		CapsMinLength:     50,
		EmphasisWords:     []string{"VALID", "INVALID", "IGNORE", "ALWAYS", "MUST", "VERDICT"},
		EmphasisRepeat:    2,
		InstructionWords:  []string{"ignore", "disregard", "forget", "new instructions", "admin"},
		InstructionRepeat: 3,
		SystemRepeat:      10,
		SystemPhrases: []string{
			"system:",
			"system prompt",
			"system instruction",
			"system override",
			"system message",
			"as the system",
			"new system",
		},
		SystemPhraseLimit: 2,
	}
}

// Catalog is the immutable set of tables the guard works from. Build one
// with DefaultCatalog or Extend; the zero value is empty.
type Catalog struct {
	injection     []Pattern
	leaks         []*regexp.Regexp
	leakFragments []string
	inputTokens   []string
	outputTokens  []string
	invisible     []string
	heuristics    Heuristics

	inputTokenRE  *regexp.Regexp
	outputTokenRE *regexp.Regexp
	invisibleRepl *strings.Replacer
}

type patternSpec struct {
	category string
	expr     string
}

// Order matters: the first hit becomes the reported reason.
var injectionSpecs = []patternSpec{
	{"instruction_override", `ignore\s+(previous|all|above|prior)\s+(instructions?|prompts?|rules?|commands?)`},
	{"instruction_override", `disregard\s+(previous|all|above|prior)\s+(instructions?|prompts?|rules?)`},
	{"instruction_override", `forget\s+(previous|all|above|your)\s+(instructions?|prompts?|rules?|training)`},
	{"role_manipulation", `you\s+are\s+now\s+(a|an|\w+)`},
	{"role_manipulation", `act\s+as\s+(if\s+)?(you\s+are|a|an)`},
	{"role_manipulation", `pretend\s+(you\s+are|to\s+be)`},
	{"role_manipulation", `new\s+(instructions?|prompt|role|persona|character)`},
	{"role_manipulation", `your\s+new\s+(role|task|job|purpose)\s+is`},
	{"impersonation", `system\s*:\s*`},
	{"impersonation", `developer\s+(note|message|instruction)`},
	{"impersonation", `admin\s+(override|command|access)`},
	{"impersonation", `as\s+the\s+(system|administrator|developer)`},
	{"special_token", `<\|.*?\|>`},
	{"special_token", `\[INST\]`},
	{"special_token", `\[/INST\]`},
	{"special_token", `</s>`},
	{"special_token", `<s>`},
	{"special_token", `###\s*(system|instruction|human|assistant)`},
	{"output_forcing", `output\s+(only|just)\s+["']?(valid|invalid)["']?`},
	{"output_forcing", `always\s+(respond|say|output|return)\s+with`},
	{"output_forcing", `your\s+verdict\s+(must|should)\s+be`},
	{"output_forcing", `conclude\s+that\s+(this|the)\s+is\s+(valid|invalid)`},
	{"extraction", `what\s+(is|are)\s+your\s+(instructions?|prompts?|rules?|guidelines?)`},
	{"extraction", `show\s+(me\s+)?(your|the)\s+(system|instructions?|prompts?)`},
	{"extraction", `reveal\s+your\s+(instructions?|prompts?|system)`},
	{"extraction", `repeat\s+(your|the)\s+(instructions?|prompts?|system)`},
	{"jailbreak", `do\s+anything\s+now`},
	{"jailbreak", `DAN\s+mode`},
	{"jailbreak", `developer\s+mode`},
	{"jailbreak", `god\s+mode`},
	{"obfuscation", `base64\s+decode`},
	{"obfuscation", `rot13\s+decode`},
	{"obfuscation", `\\x[0-9a-f]{2}`},
	{"obfuscation", `\\u[0-9a-f]{4}`},
}

var leakSpecs = []string{
	`SYSTEM\s*PROMPT\s*:`,
	`YOUR\s+INSTRUCTIONS\s+ARE\s*:`,
	`AS\s+GAVEL,\s+YOUR\s+ROLE`,
	`YOU\s+ARE\s+GAVEL,\s+AN\s+EXPERT`,
	`CRITICAL\s+RULES\s*:`,
	`OUTPUT\s+FORMAT\s*:`,
	`REMEMBER\s*:`,
}

var defaultLeakFragments = []string{
	"you are gavel",
	"your role is",
	"critical rules:",
	"output format:",
	"be skeptical of",
	"remember:",
	"you must respond with only",
}

var defaultInputTokens = []string{
	"<|endoftext|>",
	"<|startoftext|>",
	"<|im_start|>",
	"<|im_end|>",
	"<|system|>",
	"<|user|>",
	"<|assistant|>",
}

// Model replies only need the document-boundary tokens stripped.
var defaultOutputTokens = defaultInputTokens[:4]

var defaultInvisible = []string{
	"\u200b", // zero-width space
	"\u200c", // zero-width non-joiner
	"\u200d", // zero-width joiner
	"\ufeff", // byte order mark
	"\u180e", // mongolian vowel separator
}

var defaultCatalog = mustDefaultCatalog()

func mustDefaultCatalog() *Catalog {
	c := &Catalog{
		leakFragments: defaultLeakFragments,
		inputTokens:   defaultInputTokens,
		outputTokens:  defaultOutputTokens,
		invisible:     defaultInvisible,
		heuristics:    DefaultHeuristics(),
	}
	for _, s := range injectionSpecs {
		c.injection = append(c.injection, Pattern{Category: s.category, re: regexp.MustCompile(`(?i)` + s.expr)})
	}
	for _, s := range leakSpecs {
		c.leaks = append(c.leaks, regexp.MustCompile(`(?i)`+s))
	}
	c.compile()
	return c
}

// DefaultCatalog returns the built-in catalog. It is shared and must be
// treated as read-only; use Extend to derive a modified copy.
func DefaultCatalog() *Catalog { return defaultCatalog }

// Patterns returns a copy of the injection patterns in priority order.
func (c *Catalog) Patterns() []Pattern {
	return append([]Pattern(nil), c.injection...)
}

// Heuristics returns a copy of the aggressive-mode thresholds.
func (c *Catalog) Heuristics() Heuristics { return c.heuristics }

// WithHeuristics returns a copy of c using h.
func (c *Catalog) WithHeuristics(h Heuristics) *Catalog {
	n := c.clone()
	n.heuristics = h
	n.compile()
	return n
}

func (c *Catalog) clone() *Catalog {
	return &Catalog{
		injection:     append([]Pattern(nil), c.injection...),
		leaks:         append([]*regexp.Regexp(nil), c.leaks...),
		leakFragments: append([]string(nil), c.leakFragments...),
		inputTokens:   append([]string(nil), c.inputTokens...),
		outputTokens:  append([]string(nil), c.outputTokens...),
		invisible:     append([]string(nil), c.invisible...),
		heuristics:    c.heuristics,
	}
}

func (c *Catalog) compile() {
	c.inputTokenRE = tokenRegexp(c.inputTokens)
	c.outputTokenRE = tokenRegexp(c.outputTokens)
	pairs := make([]string, 0, 2*len(c.invisible))
	for _, ch := range c.invisible {
		pairs = append(pairs, ch, "")
	}
	c.invisibleRepl = strings.NewReplacer(pairs...)
}

func tokenRegexp(tokens []string) *regexp.Regexp {
	if len(tokens) == 0 {
		return nil
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}
