package guard

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog marks an overlay that cannot be applied.
var ErrInvalidCatalog = errors.New("invalid guard catalog")

// Overlay lists additions to a Catalog. Patterns are appended after the
// built-in ones so stock entries keep priority.
type Overlay struct {
	InjectionPatterns []OverlayPattern   `yaml:"injection_patterns"`
	LeakPatterns      []string           `yaml:"leak_patterns"`
	LeakFragments     []string           `yaml:"leak_fragments"`
	SpecialTokens     []string           `yaml:"special_tokens"`
	Heuristics        *OverlayHeuristics `yaml:"heuristics"`
}

// OverlayPattern is one extra injection pattern.
type OverlayPattern struct {
	Category string `yaml:"category"`
	Pattern  string `yaml:"pattern"`
}

// OverlayHeuristics overrides individual thresholds; unset fields keep
// their current value.
type OverlayHeuristics struct {
	CapsRatio         *float64 `yaml:"caps_ratio"`
	EmphasisRepeat    *int     `yaml:"emphasis_repeat"`
	InstructionRepeat *int     `yaml:"instruction_repeat"`
	SystemRepeat      *int     `yaml:"system_repeat"`
	SystemPhraseLimit *int     `yaml:"system_phrase_limit"`
}

// LoadCatalogOverlay reads a YAML overlay from path and applies it to the
// default catalog.
func LoadCatalogOverlay(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog overlay: %w", err)
	}
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidCatalog, path, err)
	}
	return DefaultCatalog().Extend(o)
}

// Extend returns a new Catalog with o applied; c is left untouched.
func (c *Catalog) Extend(o Overlay) (*Catalog, error) {
	n := c.clone()
	for _, p := range o.InjectionPatterns {
		re, err := regexp.Compile(`(?i)` + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: injection pattern %q: %v", ErrInvalidCatalog, p.Pattern, err)
		}
		category := p.Category
		if category == "" {
			category = "custom"
		}
		n.injection = append(n.injection, Pattern{Category: category, re: re})
	}
	for _, expr := range o.LeakPatterns {
		re, err := regexp.Compile(`(?i)` + expr)
		if err != nil {
			return nil, fmt.Errorf("%w: leak pattern %q: %v", ErrInvalidCatalog, expr, err)
		}
		n.leaks = append(n.leaks, re)
	}
	n.leakFragments = append(n.leakFragments, o.LeakFragments...)
	n.inputTokens = append(n.inputTokens, o.SpecialTokens...)
	n.outputTokens = append(n.outputTokens, o.SpecialTokens...)
	if h := o.Heuristics; h != nil {
		if h.CapsRatio != nil {
			n.heuristics.CapsRatio = *h.CapsRatio
		}
		if h.EmphasisRepeat != nil {
			n.heuristics.EmphasisRepeat = *h.EmphasisRepeat
		}
		if h.InstructionRepeat != nil {
			n.heuristics.InstructionRepeat = *h.InstructionRepeat
		}
		if h.SystemRepeat != nil {
			n.heuristics.SystemRepeat = *h.SystemRepeat
		}
		if h.SystemPhraseLimit != nil {
			n.heuristics.SystemPhraseLimit = *h.SystemPhraseLimit
		}
	}
	n.compile()
	return n, nil
}
