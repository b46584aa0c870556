package evidence

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/gavel/internal/report"
)

type fakeBackend struct {
	hits  []Hit
	calls [][]string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Search(_ context.Context, _ string, terms []string) []Hit {
	f.calls = append(f.calls, terms)
	return f.hits
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func fixtureTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "src/api/users.py", "def get_user(user_id):\n    query = \"SELECT * FROM users WHERE id=\" + user_id\n    return db.execute(query)\n")
	writeFile(t, root, "src/auth/login.js", "function handleLogin(req, res) {\n  return check(req.body)\n}\n")
	writeFile(t, root, "lib/util.go", "package lib\n\nfunc Sanitize(s string) string {\n\treturn s\n}\n")
	writeFile(t, root, "node_modules/pkg/index.js", "function handleLogin() {}\n")
	writeFile(t, root, "package-lock.json", "{\"sanitize\": true}\n")
	writeFile(t, root, "docs/readme.md", "call Sanitize first\n")
	return root
}

func newTestLocator(b TextSearchBackend, opts ...Option) *Locator {
	return NewLocator(context.Background(), append([]Option{WithBackend(b)}, opts...)...)
}

func TestLocateExactMention(t *testing.T) {
	root := fixtureTree(t)
	fb := &fakeBackend{}
	m := newTestLocator(fb).Locate(context.Background(), root, report.Details{
		AffectedFiles: []string{"src/api/users.py"},
	})

	require.Equal(t, 1, m.Len())
	assert.Equal(t, filepath.Join(root, "src/api/users.py"), m.Paths()[0])
	content, ok := m.Get(filepath.Join(root, "src/api/users.py"))
	require.True(t, ok)
	assert.Contains(t, content, "def get_user")
	assert.Empty(t, fb.calls, "no terms means no keyword search")
}

func TestLocateMentionByBaseName(t *testing.T) {
	root := fixtureTree(t)
	m := newTestLocator(&fakeBackend{}).Locate(context.Background(), root, report.Details{
		AffectedFiles: []string{"app/login.js"},
	})
	assert.Equal(t, []string{filepath.Join(root, "src/auth/login.js")}, m.Paths())
}

func TestLocateMentionIgnoresSymlinks(t *testing.T) {
	outside := t.TempDir()
	writeFile(t, outside, "id_rsa", "PRIVATE KEY\n")
	writeFile(t, outside, "secret.py", "TOKEN = 'x'\n")

	root := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(outside, "id_rsa"), filepath.Join(root, "app.py")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "lib")))

	m := newTestLocator(&fakeBackend{}).Locate(context.Background(), root, report.Details{
		AffectedFiles: []string{"app.py", "lib/secret.py"},
	})
	assert.Equal(t, 0, m.Len())
}

func TestLocateRejectsUnsafeMentions(t *testing.T) {
	root := fixtureTree(t)
	m := newTestLocator(&fakeBackend{}).Locate(context.Background(), root, report.Details{
		AffectedFiles: []string{"../../etc/passwd", "/etc/passwd", "/proc/self/environ"},
	})
	assert.Equal(t, 0, m.Len())
}

func TestLocateFunctionDefinitionSkipsIgnoredDirs(t *testing.T) {
	root := fixtureTree(t)
	m := newTestLocator(&fakeBackend{}).Locate(context.Background(), root, report.Details{
		AffectedFunctions: []string{"handleLogin"},
	})
	assert.Equal(t, []string{filepath.Join(root, "src/auth/login.js")}, m.Paths())
}

func TestLocateFunctionDefinitionSyntaxes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def target(x):\n    pass\n")
	writeFile(t, root, "b.js", "const o = {\n  target: function(x) {}\n}\n")
	writeFile(t, root, "c.rs", "fn target(x: i32) {}\n")
	writeFile(t, root, "d.go", "func target() {}\n")
	writeFile(t, root, "e.java", "public void target(int x) {}\n")
	writeFile(t, root, "f.txt", "def target(x):\n")

	m := newTestLocator(&fakeBackend{}).Locate(context.Background(), root, report.Details{
		AffectedFunctions: []string{"target"},
	})
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a.py"),
		filepath.Join(root, "b.js"),
		filepath.Join(root, "c.rs"),
		filepath.Join(root, "d.go"),
		filepath.Join(root, "e.java"),
	}, m.Paths())
}

func TestLocateFunctionTierStopsAtFive(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 8; i++ {
		writeFile(t, root, fmt.Sprintf("mod%d.py", i), "def target():\n    pass\n")
	}
	fb := &fakeBackend{}
	m := newTestLocator(fb).Locate(context.Background(), root, report.Details{
		AffectedFunctions: []string{"target"},
		Keywords:          []string{"query"},
	})
	assert.Equal(t, MaxFunctionFiles, m.Len())
	assert.Empty(t, fb.calls)
}

func TestLocateKeywordFallbackOnlyWhenSparse(t *testing.T) {
	root := fixtureTree(t)
	writeFile(t, root, "x.py", "x = 1\n")
	fb := &fakeBackend{hits: []Hit{{Path: "extra.py", Content: "query()"}}}

	m := newTestLocator(fb).Locate(context.Background(), root, report.Details{
		AffectedFiles: []string{"src/api/users.py", "src/auth/login.js", "x.py"},
		Keywords:      []string{"query"},
	})
	assert.Equal(t, 3, m.Len())
	assert.Empty(t, fb.calls)

	m = newTestLocator(fb).Locate(context.Background(), root, report.Details{
		AffectedFiles:     []string{"src/api/users.py"},
		AffectedFunctions: []string{"zz"},
		Keywords:          []string{"query", "sql"},
	})
	require.Len(t, fb.calls, 1)
	assert.Equal(t, []string{"query", "sql"}, fb.calls[0])
	assert.Equal(t, []string{filepath.Join(root, "src/api/users.py"), "extra.py"}, m.Paths())
}

func TestLocateKeywordHitDoesNotReplaceEarlierEntry(t *testing.T) {
	root := fixtureTree(t)
	users := filepath.Join(root, "src/api/users.py")
	fb := &fakeBackend{hits: []Hit{{Path: users, Content: "replaced"}}}

	m := newTestLocator(fb).Locate(context.Background(), root, report.Details{
		AffectedFiles: []string{"src/api/users.py"},
		Keywords:      []string{"query"},
	})
	content, _ := m.Get(users)
	assert.Contains(t, content, "def get_user")
	assert.Equal(t, 1, m.Len())
}

func TestLocateRespectsMaxFiles(t *testing.T) {
	root := fixtureTree(t)
	m := newTestLocator(&fakeBackend{}, WithMaxFiles(2)).Locate(context.Background(), root, report.Details{
		AffectedFiles: []string{"src/api/users.py", "src/auth/login.js", "lib/util.go"},
	})
	assert.Equal(t, 2, m.Len())
}

func TestLocateIsDeterministic(t *testing.T) {
	root := fixtureTree(t)
	d := report.Details{
		AffectedFunctions: []string{"handleLogin", "get_user", "Sanitize"},
		Keywords:          []string{"query"},
	}
	loc := NewLocator(context.Background(), WithBackend(NewWalk(NewReader(0, 0))))
	first := loc.Locate(context.Background(), root, d)
	second := loc.Locate(context.Background(), root, d)
	assert.Equal(t, first.Entries(), second.Entries())
}

func TestWalkBackendMatchesCaseInsensitiveCodeFiles(t *testing.T) {
	root := fixtureTree(t)
	hits := NewWalk(NewReader(0, 0)).Search(context.Background(), root, []string{"SANITIZE"})
	require.Len(t, hits, 1)
	assert.Equal(t, filepath.Join(root, "lib/util.go"), hits[0].Path)
}

func TestWalkBackendCap(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 9; i++ {
		writeFile(t, root, fmt.Sprintf("f%d.py", i), "token\n")
	}
	hits := NewWalk(NewReader(0, 0)).Search(context.Background(), root, []string{"token"})
	assert.Len(t, hits, WalkMaxFiles)
}

func TestWalkBackendNoTerms(t *testing.T) {
	assert.Nil(t, NewWalk(NewReader(0, 0)).Search(context.Background(), t.TempDir(), nil))
}

func TestRipgrepBackendMissingBinaryYieldsNothing(t *testing.T) {
	rg := NewRipgrep(filepath.Join(t.TempDir(), "no-rg"), NewReader(0, 0), nil)
	assert.Empty(t, rg.Search(context.Background(), fixtureTree(t), []string{"query"}))
}

// fakeRipgrep writes an rg stand-in that records each term it is asked for
// and answers according to the term:
//
//	slow    hangs past any timeout
//	broken  exits with status 2
//	found   lists app.py, secrets.ini and Dockerfile
//	many    lists m1.py through m12.py
func fakeRipgrep(t *testing.T) (bin, termLog string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	dir := t.TempDir()
	termLog = filepath.Join(dir, "terms.log")
	script := fmt.Sprintf(`#!/bin/sh
eval "term=\${$(($# - 1))}"
eval "root=\${$#}"
echo "$term" >> %q
case "$term" in
slow) exec sleep 10 ;;
broken) exit 2 ;;
found)
	echo "$root/app.py"
	echo "$root/secrets.ini"
	echo "$root/Dockerfile"
	;;
many)
	i=1
	while [ $i -le 12 ]; do echo "$root/m$i.py"; i=$((i + 1)); done
	;;
*) exit 1 ;;
esac
`, termLog)
	bin = filepath.Join(dir, "rg")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0755))
	return bin, termLog
}

func searchedTerms(t *testing.T, termLog string) []string {
	t.Helper()
	data, err := os.ReadFile(termLog)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Fields(string(data))
}

func hitPaths(hits []Hit) []string {
	paths := make([]string, 0, len(hits))
	for _, h := range hits {
		paths = append(paths, h.Path)
	}
	return paths
}

func TestRipgrepBackendKeepsOnlyCodeFiles(t *testing.T) {
	bin, _ := fakeRipgrep(t)
	root := t.TempDir()
	writeFile(t, root, "app.py", "query = build(user)\n")
	writeFile(t, root, "secrets.ini", "password = hunter2\n")
	writeFile(t, root, "Dockerfile", "FROM python:3.12\n")

	hits := NewRipgrep(bin, NewReader(0, 0), nil).Search(context.Background(), root, []string{"found"})
	assert.Equal(t, []string{filepath.Join(root, "app.py")}, hitPaths(hits))
}

func TestRipgrepBackendContinuesPastFailedTerms(t *testing.T) {
	bin, termLog := fakeRipgrep(t)
	root := t.TempDir()
	writeFile(t, root, "app.py", "query = build(user)\n")

	rg := NewRipgrep(bin, NewReader(0, 0), nil)
	rg.timeout = 200 * time.Millisecond

	start := time.Now()
	hits := rg.Search(context.Background(), root, []string{"slow", "broken", "found", "fourth"})
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Equal(t, []string{filepath.Join(root, "app.py")}, hitPaths(hits))
	assert.Equal(t, []string{"slow", "broken", "found"}, searchedTerms(t, termLog))
}

func TestRipgrepBackendCapsFiles(t *testing.T) {
	bin, termLog := fakeRipgrep(t)
	root := t.TempDir()
	for i := 1; i <= 12; i++ {
		writeFile(t, root, fmt.Sprintf("m%d.py", i), "token\n")
	}

	hits := NewRipgrep(bin, NewReader(0, 0), nil).Search(context.Background(), root, []string{"many", "found"})
	assert.Len(t, hits, RipgrepMaxFiles)
	assert.Equal(t, []string{"many"}, searchedTerms(t, termLog), "search stops once the cap is reached")
}

func TestRipgrepBackendFindsFiles(t *testing.T) {
	path, err := exec.LookPath("rg")
	if err != nil {
		t.Skip("ripgrep not installed")
	}
	root := fixtureTree(t)
	hits := NewRipgrep(path, NewReader(0, 0), nil).Search(context.Background(), root, []string{"SELECT", "nothing-matches-this", "handlelogin", "ignored-fourth"})

	var paths []string
	for _, h := range hits {
		paths = append(paths, h.Path)
	}
	assert.Contains(t, paths, filepath.Join(root, "src/api/users.py"))
	assert.Contains(t, paths, filepath.Join(root, "src/auth/login.js"))
	for _, p := range paths {
		assert.False(t, strings.HasSuffix(p, ".json") || strings.HasSuffix(p, ".md"), p)
	}
}

func TestProbeBackendReturnsABackend(t *testing.T) {
	b := ProbeBackend(context.Background(), NewReader(0, 0), nil)
	require.NotNil(t, b)
	if _, err := exec.LookPath("rg"); err != nil {
		assert.Equal(t, "walk", b.Name())
	}
}
