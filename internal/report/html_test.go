package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLToTextStructure(t *testing.T) {
	in := "<html><body><h1>Title</h1><p>Some   text\n here</p><pre>line1\n  line2</pre><script>alert(1)</script></body></html>"
	out, err := HTMLToText(in)
	require.NoError(t, err)
	assert.Equal(t, "Title\n\nSome text here\n\n```\nline1\n  line2\n```", out)
}

func TestHTMLToTextNestedCodeFencedOnce(t *testing.T) {
	out, err := HTMLToText("<pre><code>x := 1</code></pre>")
	require.NoError(t, err)
	assert.Equal(t, "```\nx := 1\n```", out)
}

func TestHTMLToTextLineBreaks(t *testing.T) {
	out, err := HTMLToText("<p>a<br>b</p>")
	require.NoError(t, err)
	assert.Equal(t, "a\nb", out)
}

func TestHTMLToTextInlineSpacing(t *testing.T) {
	out, err := HTMLToText("<p>Hello <b>world</b> again</p>")
	require.NoError(t, err)
	assert.Equal(t, "Hello world again", out)
}

func TestParseFileHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.HTML")
	require.NoError(t, os.WriteFile(path, []byte("<p>SQL Injection in <code>login.py</code></p>"), 0644))

	out, err := ParseFile(path)
	require.NoError(t, err)
	assert.Contains(t, out, "SQL Injection in")
	assert.Contains(t, out, "```\nlogin.py\n```")
}

func TestParseFileDropsInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("ok\xffdone"), 0644))

	out, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "okdone", out)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "absent.md"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindReports(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.md", "a.txt", "c.html", "d.htm", "e.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0755))

	files, err := FindReports(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.md"),
		filepath.Join(dir, "c.html"),
		filepath.Join(dir, "d.htm"),
	}, files)
}

func TestFindReportsNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	_, err := FindReports(path)
	assert.Error(t, err)
}
