package report

import "regexp"

var (
	fencedBlock = regexp.MustCompile("(?s)```\\w*\\n(.*?)```")
	inlineCode  = regexp.MustCompile("`([^`]+)`")
	fileLineRef = regexp.MustCompile(`([\w/\-.]+\.\w+):(\d+)`)
)

// ExtractCodeMentions returns fenced code blocks, inline code spans and
// file:line references found in the report, in that order.
func ExtractCodeMentions(text string) []string {
	var out []string
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range inlineCode.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	for _, m := range fileLineRef.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1]+":"+m[2])
	}
	return out
}
