package optimizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/gavel/internal/evidence"
)

func TestOptimizeFileDropsNonCriticalImports(t *testing.T) {
	src := "import os\nfrom cryptography import fernet\nimport sys\n\ndef handler(x):\n    # this is a meaningful comment\n    return x\n"
	got := OptimizeFile(src)
	assert.Equal(t, "from cryptography import fernet\n\ndef handler(x):\n#this is a meaningful comment\n    return x\n", got)
}

func TestOptimizeFileKeepsImportsAfterCode(t *testing.T) {
	got := OptimizeFile("x = 1\nimport os\n")
	assert.Equal(t, "x = 1\nimport os\n", got)
}

func TestOptimizeFileCompressesComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "//   keep   this   comment", "//keep this comment"},
		{"hash marker", "#\tvalidate the token here", "#validate the token here"},
		{"short dropped", "// TODO", ""},
		{"generic dropped", "#  fixme ", ""},
		{"block opener passes through", "  /* block */", "/* block */"},
		{"block continuation passes through", "   * detail", "* detail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OptimizeFile(tt.in))
		})
	}
}

func TestOptimizeFileCollapsesBlankRuns(t *testing.T) {
	assert.Equal(t, "a\n\nb", OptimizeFile("a\n\n\n\n   \nb"))
}

func TestOptimizeFileTrimsTrailingWhitespace(t *testing.T) {
	assert.Equal(t, "x = 1\n    y = 2", OptimizeFile("x = 1   \n    y = 2\t"))
}

func TestOptimizeFileNeverAddsLines(t *testing.T) {
	samples := []string{
		"",
		"\n\n\n",
		"import os\nimport sys\n",
		"package main\n\nimport \"fmt\"\n\n// main prints a greeting for the user\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n",
		"/*\n * license\n */\n#include <stdio.h>\nint main(void) {\n  return 0;\n}\n",
	}
	for _, s := range samples {
		out := OptimizeFile(s)
		assert.LessOrEqual(t, lineCount(out), lineCount(s), "input %q", s)
	}
}

func TestOptimizeDelimitsFilesInOrder(t *testing.T) {
	m := evidence.NewMap(10)
	require.True(t, m.Add("b.go", "y := 2"))
	require.True(t, m.Add("a.py", "x = 1\n"))

	out, st := OptimizeWithStats(m)
	assert.Equal(t, Delimiter("b.go")+"y := 2\n"+Delimiter("a.py")+"x = 1\n", out)
	assert.Equal(t, 2, st.Files)
	assert.Equal(t, 3, st.LinesBefore)
	assert.Equal(t, 3, st.LinesAfter)

	assert.True(t, strings.HasPrefix(Delimiter("x"), "\n"+strings.Repeat("=", 60)+"\nFILE: x\n"))
}

func TestOptimizeIsDeterministic(t *testing.T) {
	m := evidence.NewMap(10)
	m.Add("one.js", "import x from 'y'\n\n\n// a comment long enough\nfunction f() {}\n")
	m.Add("two.rs", "use std::io;\nfn main() {}\n")
	assert.Equal(t, Optimize(m), Optimize(m))
}

func TestOptimizeEmpty(t *testing.T) {
	assert.Equal(t, "", Optimize(evidence.NewMap(3)))
	assert.Equal(t, "", Optimize(nil))
}

func TestStatsReduction(t *testing.T) {
	assert.Zero(t, Stats{}.Reduction())
	assert.InDelta(t, 0.25, Stats{LinesBefore: 8, LinesAfter: 6}.Reduction(), 1e-9)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 2, EstimateTokens("abcdefghi"))
	assert.Equal(t, 1, EstimateTokens("éééé"))
}
