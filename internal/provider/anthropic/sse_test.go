package anthropic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/gavel/internal/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Provider.Default = "anthropic"
	return cfg
}

func TestSSEScannerEvents(t *testing.T) {
	input := ": comment\nevent: a\ndata: one\ndata: two\n\n\n\nevent: b\ndata:{\"x\":1}"
	s := newSSEScanner(strings.NewReader(input))

	require.True(t, s.Next())
	assert.Equal(t, sseEvent{Event: "a", Data: "one\ntwo"}, s.Event())

	require.True(t, s.Next())
	assert.Equal(t, sseEvent{Event: "b", Data: `{"x":1}`}, s.Event())

	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func TestSSEScannerDataWithColons(t *testing.T) {
	s := newSSEScanner(strings.NewReader("data: {\"url\":\"http://x\"}\n\n"))
	require.True(t, s.Next())
	assert.Equal(t, `{"url":"http://x"}`, s.Event().Data)
}

func TestSSEScannerEmpty(t *testing.T) {
	s := newSSEScanner(strings.NewReader("\n\n"))
	assert.False(t, s.Next())
}
