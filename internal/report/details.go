// Package report turns free-text vulnerability reports into structured
// details that drive evidence retrieval.
package report

import (
	"sort"
	"strings"
)

const descriptionLength = 500

// Details is the structured view of a report. Set-like fields are
// deduplicated and sorted; callers should not depend on the order.
type Details struct {
	Type              string   `json:"type,omitempty"`
	Severity          string   `json:"severity,omitempty"`
	AffectedFiles     []string `json:"affected_files,omitempty"`
	AffectedFunctions []string `json:"affected_functions,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	CWE               string   `json:"cwe,omitempty"`
	Description       string   `json:"description"`
}

// Extract pulls details out of report text. It never fails; missing
// signals leave fields empty.
func Extract(text string) Details {
	lower := strings.ToLower(text)
	d := Details{
		Type:        detectType(lower),
		Severity:    detectSeverity(text),
		CWE:         detectCWE(text),
		Description: description(text),
	}

	files := newSet()
	for _, r := range fileRules {
		files.add(r.all(text)...)
	}
	d.AffectedFiles = files.sorted()

	funcs := newSet()
	for _, r := range functionRules {
		for _, name := range r.all(text) {
			if len(name) > 2 && !functionStopWords[name] {
				funcs.add(name)
			}
		}
	}
	d.AffectedFunctions = funcs.sorted()

	keywords := newSet()
	for _, r := range keywordRules {
		keywords.add(r.all(lower)...)
	}
	if d.Type != "" {
		keywords.add(keywordsForType(d.Type)...)
	}
	d.Keywords = keywords.sorted()

	return d
}

func detectType(lower string) string {
	for _, t := range vulnerabilityTypes {
		if strings.Contains(lower, strings.ToLower(t)) {
			return t
		}
	}
	return ""
}

func detectSeverity(text string) string {
	for _, r := range severityRules {
		if v, ok := r.first(text); ok {
			return strings.ToUpper(v)
		}
	}
	return ""
}

func detectCWE(text string) string {
	if v, ok := cweRule.first(text); ok {
		return "CWE-" + v
	}
	return ""
}

func keywordsForType(typ string) []string {
	lower := strings.ToLower(typ)
	for _, e := range typeKeywordTable {
		if strings.Contains(lower, strings.ToLower(e.typ)) {
			return e.keywords
		}
	}
	return nil
}

func description(text string) string {
	runes := []rune(text)
	if len(runes) > descriptionLength {
		runes = runes[:descriptionLength]
	}
	return strings.TrimSpace(string(runes))
}

// SearchTerms merges function names and keywords into the deduplicated
// term list used for keyword search. Terms of two characters or fewer are
// dropped.
func (d Details) SearchTerms() []string {
	terms := newSet()
	for _, group := range [][]string{d.AffectedFunctions, d.Keywords} {
		for _, t := range group {
			if len(t) > 2 {
				terms.add(t)
			}
		}
	}
	return terms.sorted()
}

type set map[string]struct{}

func newSet() set { return set{} }

func (s set) add(vals ...string) {
	for _, v := range vals {
		s[v] = struct{}{}
	}
}

func (s set) sorted() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
