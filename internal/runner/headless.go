package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/julianshen/gavel/internal/logging"
	"github.com/julianshen/gavel/internal/output"
	"github.com/julianshen/gavel/internal/report"
	"github.com/julianshen/gavel/internal/verdict"
)

// Verifier matches the methods of verifier.Verifier the runner drives.
type Verifier interface {
	VerifyNamed(ctx context.Context, source, reportText, codebase string) (*verdict.Result, error)
	VerifyBatch(ctx context.Context, files []string, codebase string) ([]verdict.BatchEntry, error)
}

// HeadlessRunner verifies reports, writes the formatted results, and maps
// them to an exit status.
type HeadlessRunner struct {
	verifier  Verifier
	formatter output.Formatter
	out       io.Writer
	failOn    string
	log       *zap.SugaredLogger
}

// NewHeadlessRunner creates a HeadlessRunner writing formatted output to
// out. failOn names the verdict that makes the run fail; empty disables
// gating.
func NewHeadlessRunner(v Verifier, f output.Formatter, out io.Writer, failOn string, log *zap.SugaredLogger) *HeadlessRunner {
	return &HeadlessRunner{
		verifier:  v,
		formatter: f,
		out:       out,
		failOn:    failOn,
		log:       logging.OrNop(log),
	}
}

// Run verifies a single report.
func (r *HeadlessRunner) Run(ctx context.Context, source, text, codebase string) error {
	res, err := r.verifier.VerifyNamed(ctx, source, text, codebase)
	if err != nil {
		if interrupted(ctx) {
			return &ExitError{Code: ExitInterrupted}
		}
		return err
	}

	data, err := r.formatter.Format(res)
	if err != nil {
		return fmt.Errorf("formatting result: %w", err)
	}
	if _, err := r.out.Write(data); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	if code := ExitCodeFromResults([]verdict.Result{*res}, r.failOn); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// RunBatch verifies every report file in dir. Entries finished before an
// interrupt are still written.
func (r *HeadlessRunner) RunBatch(ctx context.Context, dir, codebase string) error {
	files, err := report.FindReports(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no report files (%s) found in %s", strings.Join(report.Extensions, ", "), dir)
	}
	r.log.Infow("starting batch", "dir", dir, "reports", len(files))

	entries, batchErr := r.verifier.VerifyBatch(ctx, files, codebase)
	if len(entries) > 0 || batchErr == nil {
		data, err := r.formatter.FormatBatch(entries)
		if err != nil {
			return fmt.Errorf("formatting results: %w", err)
		}
		if _, err := r.out.Write(data); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
	}

	if batchErr != nil {
		r.log.Warnw("batch stopped early", "completed", len(entries), "total", len(files), "error", batchErr)
		if interrupted(ctx) {
			return &ExitError{Code: ExitInterrupted}
		}
		return batchErr
	}
	r.log.Infow("batch complete", "summary", output.Summarize(entries).String())

	results := make([]verdict.Result, len(entries))
	for i, e := range entries {
		results[i] = e.Result
	}
	if code := ExitCodeFromResults(results, r.failOn); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// interrupted reports whether ctx was cancelled, as opposed to timing out.
func interrupted(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
