package runner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/julianshen/gavel/internal/verdict"
)

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 1}
	assert.Equal(t, "exit code 1", err.Error())

	var exitErr *ExitError
	assert.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.Code)
}

func TestExitCodeFromResults(t *testing.T) {
	results := []verdict.Result{
		{Verdict: verdict.Invalid},
		{Verdict: verdict.Valid},
	}

	tests := []struct {
		failOn string
		want   int
	}{
		{"", 0},
		{"valid", 1},
		{"VALID", 1},
		{"invalid", 1},
		{"error", 0},
		{"bogus", 0},
	}
	for _, tt := range tests {
		t.Run(tt.failOn, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFromResults(results, tt.failOn))
		})
	}
}

func TestExitCodeFromResultsEmpty(t *testing.T) {
	assert.Equal(t, 0, ExitCodeFromResults(nil, "valid"))
}

func TestValidateFailOn(t *testing.T) {
	assert.NoError(t, ValidateFailOn(""))
	assert.NoError(t, ValidateFailOn("valid"))
	assert.NoError(t, ValidateFailOn("Error"))

	err := ValidateFailOn("high")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "valid, invalid, error")
}
