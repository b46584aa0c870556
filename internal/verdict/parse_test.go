package verdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		verdict   Verdict
		reasoning string
		poc       string
	}{
		{
			name:      "labelled reply",
			response:  "VERDICT: VALID\n\nREASONING: The query concatenates input. It is exploitable! Also a third point.\n\nPOC: curl 'http://x/?id=1 OR 1=1'",
			verdict:   Valid,
			reasoning: "The query concatenates input. It is exploitable.",
			poc:       "curl 'http://x/?id=1 OR 1=1'",
		},
		{
			name:      "lowercase labels and dash separator",
			response:  "verdict - invalid\nreasoning: no sink is reached",
			verdict:   Invalid,
			reasoning: "no sink is reached.",
		},
		{
			name:      "reasoning stops at poc label",
			response:  "VERDICT: VALID\nREASONING: Bad input handling\nPOC: payload",
			verdict:   Valid,
			reasoning: "Bad input handling.",
			poc:       "payload",
		},
		{
			name:      "leading verdict without label",
			response:  "VALID. The code is vulnerable",
			verdict:   Valid,
			reasoning: "VALID. The code is vulnerable.",
		},
		{
			name:      "leading invalid",
			response:  "  INVALID - sanitized upstream",
			verdict:   Invalid,
			reasoning: "INVALID - sanitized upstream.",
		},
		{
			name:      "fallback reasoning skips label lines",
			response:  "VERDICT: VALID\nSQL injection in get_user.\nPOC: x",
			verdict:   Valid,
			reasoning: "SQL injection in get_user.",
			poc:       "x",
		},
		{
			name:      "fallback takes two lines",
			response:  "Looks fine\nInput is escaped\nThird line",
			verdict:   Invalid,
			reasoning: "Looks fine Input is escaped.",
		},
		{
			name:      "ambiguous defaults to invalid",
			response:  "This might be VALID or INVALID",
			verdict:   Invalid,
			reasoning: "This might be VALID or INVALID.",
		},
		{
			name:      "empty reply",
			response:  "",
			verdict:   Invalid,
			reasoning: "No reasoning provided.",
		},
		{
			name:      "poc needs a whole word",
			response:  "The epoch handling is fine",
			verdict:   Invalid,
			reasoning: "The epoch handling is fine.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, reasoning, poc := Parse(tt.response)
			assert.Equal(t, tt.verdict, v)
			assert.Equal(t, tt.reasoning, reasoning)
			assert.Equal(t, tt.poc, poc)
		})
	}
}

func TestFirstSentences(t *testing.T) {
	assert.Equal(t, "One. Two.", firstSentences("One. Two. Three.", 2))
	assert.Equal(t, "Only one.", firstSentences("Only one", 2))
	assert.Equal(t, "", firstSentences("...", 2))
	assert.Equal(t, "Wait. Really.", firstSentences("Wait?! Really...", 2))
}
