package report

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const codeFence = "\n```\n"

var blockTags = map[string]bool{
	"p": true, "div": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// HTMLToText converts an HTML report to plain text. Code and pre elements
// become fenced blocks with their content untouched, block elements become
// paragraph breaks, and other text has its whitespace normalized.
func HTMLToText(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()

	w := &htmlTextWriter{}
	for _, n := range doc.Nodes {
		w.walk(n)
	}
	text := excessBlankLines.ReplaceAllString(w.b.String(), "\n\n")
	return strings.TrimSpace(text), nil
}

type htmlTextWriter struct {
	b         strings.Builder
	codeDepth int
	// space is owed before the next inline text run.
	space bool
}

func (w *htmlTextWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		w.open(n.Data)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c)
		}
		w.close(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *htmlTextWriter) write(s string) {
	w.b.WriteString(s)
	w.space = false
}

func (w *htmlTextWriter) open(tag string) {
	switch {
	case tag == "code" || tag == "pre":
		// Only the outermost element of a pre>code pair is fenced.
		if w.codeDepth == 0 {
			w.write(codeFence)
		}
		w.codeDepth++
	case tag == "br":
		w.write("\n")
	case blockTags[tag]:
		w.write("\n\n")
	}
}

func (w *htmlTextWriter) close(tag string) {
	switch {
	case tag == "code" || tag == "pre":
		w.codeDepth--
		if w.codeDepth == 0 {
			w.write(codeFence)
		}
	case blockTags[tag]:
		w.write("\n")
	}
}

func (w *htmlTextWriter) text(data string) {
	if w.codeDepth > 0 {
		w.write(data)
		return
	}
	normalized := strings.Join(strings.Fields(data), " ")
	if normalized == "" {
		w.space = w.space || data != ""
		return
	}
	if (w.space || startsWithSpace(data)) && w.b.Len() > 0 && !endsWithSpace(w.b.String()) {
		w.b.WriteString(" ")
	}
	w.write(normalized)
	w.space = endsWithSpace(data)
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}

func endsWithSpace(s string) bool {
	if s == "" {
		return false
	}
	return unicode.IsSpace(rune(s[len(s)-1]))
}
