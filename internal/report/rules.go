package report

import "regexp"

// rule pairs a pattern with the capture group that holds the value.
// Group 0 means the whole match.
type rule struct {
	name  string
	re    *regexp.Regexp
	group int
}

func newRule(name, expr string, group int) rule {
	return rule{name: name, re: regexp.MustCompile(expr), group: group}
}

// first returns the value of the leftmost match.
func (r rule) first(text string) (string, bool) {
	m := r.re.FindStringSubmatch(text)
	if m == nil || r.group >= len(m) {
		return "", false
	}
	return m[r.group], true
}

// all returns the value of every non-overlapping match.
func (r rule) all(text string) []string {
	var out []string
	for _, m := range r.re.FindAllStringSubmatch(text, -1) {
		if r.group < len(m) && m[r.group] != "" {
			out = append(out, m[r.group])
		}
	}
	return out
}

// Priority order: long names precede their abbreviations.
var vulnerabilityTypes = []string{
	"SQL Injection", "SQLi",
	"Cross-Site Scripting", "XSS",
	"Command Injection",
	"Path Traversal", "Directory Traversal",
	"Remote Code Execution", "RCE",
	"Server-Side Request Forgery", "SSRF",
	"XML External Entity", "XXE",
	"Deserialization",
	"Authentication Bypass",
	"Authorization Bypass",
	"Information Disclosure",
	"Denial of Service", "DoS",
	"Buffer Overflow",
	"Integer Overflow",
	"Use After Free",
	"Race Condition",
	"CSRF", "Cross-Site Request Forgery",
	"Open Redirect",
	"Insecure Direct Object Reference", "IDOR",
	"Security Misconfiguration",
	"Sensitive Data Exposure",
	"Missing Access Control",
	"Broken Authentication",
	"Broken Access Control",
}

var severityRules = []rule{
	newRule("label", `(?i)severity[:\s]+(\w+)`, 1),
	newRule("impact", `(?i)impact[:\s]+(\w+)`, 1),
	newRule("qualifier", `(?i)(critical|high|medium|low)\s+severity`, 1),
}

var fileRules = []rule{
	newRule("code-path", `(?i)[\w/\-.]+\.(?:js|py|java|cpp|c|h|go|rs|php|rb|ts|tsx|jsx|sol|vy)`, 0),
	newRule("located-in", `(?i)(?:in|at|file)\s+["']?([\w/\-.]+\.\w+)["']?`, 1),
}

var functionRules = []rule{
	newRule("js-function", `function\s+(\w+)`, 1),
	newRule("py-def", `def\s+(\w+)`, 1),
	newRule("call", `(\w+)\s*\(`, 1),
	newRule("method", `method\s+(\w+)`, 1),
	newRule("in-function", `in\s+(?:the\s+)?(\w+)\s+function`, 1),
}

var functionStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
}

var cweRule = newRule("cwe", `(?i)CWE-(\d+)`, 1)

// Applied to the lowercased report.
var keywordRules = []rule{
	newRule("exploit", `\b(vulnerable|exploit|attack|payload|injection|bypass|overflow)\b`, 1),
	newRule("data-flow", `\b(input|output|parameter|argument|variable)\b`, 1),
	newRule("validation", `\b(validate|sanitize|encode|decode|parse|execute)\b`, 1),
}

type typeKeywords struct {
	typ      string
	keywords []string
}

// First entry whose name is contained in the detected type wins.
var typeKeywordTable = []typeKeywords{
	{"SQL Injection", []string{"query", "execute", "sql", "database", "select"}},
	{"XSS", []string{"innerHTML", "outerHTML", "document.write", "eval"}},
	{"Command Injection", []string{"exec", "system", "shell", "subprocess", "spawn"}},
	{"Path Traversal", []string{"path", "file", "read", "open", "readFile"}},
	{"RCE", []string{"eval", "exec", "system", "shell"}},
}

// VulnerabilityTypes returns the type catalog in priority order.
func VulnerabilityTypes() []string {
	return append([]string(nil), vulnerabilityTypes...)
}
