package optimizer

import (
	"regexp"
	"strings"
)

// ExtractFunctions keeps only the bodies of the named functions. A body
// starts at a line referencing name( and ends at the next non-blank line
// indented no deeper than that line; a closing line that does not itself
// start another wanted function is kept. The content is returned
// unchanged when names is empty or nothing matched.
func ExtractFunctions(content string, names []string) string {
	if len(names) == 0 {
		return content
	}
	starts := make([]*regexp.Regexp, len(names))
	for i, n := range names {
		starts[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(n) + `\s*\(`)
	}
	isStart := func(line string) bool {
		for _, re := range starts {
			if re.MatchString(line) {
				return true
			}
		}
		return false
	}

	var blocks []string
	var current []string
	indent := 0
	collecting := false

	for _, line := range strings.Split(content, "\n") {
		if !collecting {
			if isStart(line) {
				collecting = true
				current = []string{line}
				indent = indentOf(line)
			}
			continue
		}

		stripped := strings.TrimSpace(line)
		if stripped == "" || indentOf(line) > indent {
			current = append(current, line)
			continue
		}

		// Dedent closes the function.
		if isStart(line) {
			blocks = append(blocks, strings.Join(current, "\n"), "")
			current = []string{line}
			indent = indentOf(line)
			continue
		}
		current = append(current, line)
		blocks = append(blocks, strings.Join(current, "\n"), "")
		current = nil
		collecting = false
	}
	if collecting {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	if len(blocks) == 0 {
		return content
	}
	return strings.Join(blocks, "\n")
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
