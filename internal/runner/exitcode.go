package runner

import (
	"fmt"
	"strings"

	"github.com/julianshen/gavel/internal/verdict"
)

// ExitInterrupted is the exit code after SIGINT, as a shell reports it.
const ExitInterrupted = 130

// FailOnValues lists the accepted --fail-on settings. An empty value
// disables gating.
var FailOnValues = []string{"valid", "invalid", "error"}

// ExitError is returned when the CLI should exit with a non-zero code.
// Using a typed error instead of os.Exit ensures deferred cleanup runs.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ValidateFailOn checks a --fail-on value.
func ValidateFailOn(failOn string) error {
	if failOn == "" {
		return nil
	}
	for _, v := range FailOnValues {
		if strings.EqualFold(failOn, v) {
			return nil
		}
	}
	return fmt.Errorf("invalid --fail-on value %q (want one of %s)", failOn, strings.Join(FailOnValues, ", "))
}

// ExitCodeFromResults returns 1 if any result carries the verdict named
// by failOn, 0 otherwise. An empty or unknown failOn disables gating.
func ExitCodeFromResults(results []verdict.Result, failOn string) int {
	if failOn == "" {
		return 0
	}
	want := verdict.Verdict(strings.ToUpper(failOn))
	for _, r := range results {
		if r.Verdict == want {
			return 1
		}
	}
	return 0
}
