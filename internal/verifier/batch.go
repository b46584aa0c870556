package verifier

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/julianshen/gavel/internal/report"
	"github.com/julianshen/gavel/internal/verdict"
)

// NewBatchLimiter returns a limiter allowing perMinute model calls per
// minute, or nil when perMinute is not positive.
func NewBatchLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// VerifyBatch verifies each report file in order against one codebase.
// A report that fails becomes an ERROR entry and the batch goes on. When
// ctx is cancelled the entries finished so far are returned with ctx's
// error.
func (v *Verifier) VerifyBatch(ctx context.Context, files []string, codebase string) ([]verdict.BatchEntry, error) {
	entries := make([]verdict.BatchEntry, 0, len(files))
	resolve := v.resolver(codebase)

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		v.log.Infow("processing report", "file", file, "index", i+1, "total", len(files))

		res, err := v.verifyFile(ctx, file, codebase, resolve)
		if err != nil {
			if ctx.Err() != nil {
				return entries, ctx.Err()
			}
			v.log.Warnw("report failed", "file", file, "error", err)
			entries = append(entries, verdict.Failed(file, err))
			continue
		}
		entries = append(entries, verdict.BatchEntry{File: file, Result: *res})
	}
	return entries, nil
}

func (v *Verifier) verifyFile(ctx context.Context, file, codebase string, resolve resolveFunc) (*verdict.Result, error) {
	text, err := report.ParseFile(file)
	if err != nil {
		return nil, err
	}
	return v.verify(ctx, file, text, codebase, resolve)
}
