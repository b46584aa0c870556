// Package verifier runs a vulnerability report through the triage
// pipeline: guard, evidence retrieval, prompt fitting, model call and
// verdict parsing.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/julianshen/gavel/internal/evidence"
	"github.com/julianshen/gavel/internal/guard"
	"github.com/julianshen/gavel/internal/logging"
	"github.com/julianshen/gavel/internal/optimizer"
	"github.com/julianshen/gavel/internal/repo"
	"github.com/julianshen/gavel/internal/report"
	"github.com/julianshen/gavel/internal/store"
	"github.com/julianshen/gavel/internal/verdict"
)

// ErrCodebaseNotFound is returned when a local codebase path is missing
// or is not a directory.
var ErrCodebaseNotFound = errors.New("codebase path does not exist")

// RejectedReasoning is the reasoning of the verdict given to reports the
// guard classifies as injection attempts.
const RejectedReasoning = "Report rejected due to potential security issue. " +
	"This report contains patterns associated with prompt injection attacks and cannot be processed safely."

// Response token budgets.
const (
	DefaultMaxTokens = 2048
	PoCMaxTokens     = 4096
)

// Completer sends one prompt pair to a model and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

// RepoFetcher turns a remote codebase URL into a local checkout.
type RepoFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HistoryRecorder keeps finished results.
type HistoryRecorder interface {
	SaveResult(r store.Record) error
}

// Config controls a Verifier.
type Config struct {
	Model          string // model id sent to the completer
	WithPoC        bool   // request and keep a proof of concept
	MaxInputLength int    // bytes of report kept after sanitizing
	MaxPromptChars int    // ceiling on system plus user prompt runes
	Aggressive     bool   // run guard heuristics after the catalog
}

// Verifier checks reports against a codebase. It keeps no per-report
// state, so one Verifier may serve a whole batch.
type Verifier struct {
	config    Config
	completer Completer
	guard     *guard.Guard
	locator   *evidence.Locator
	repos     RepoFetcher
	history   HistoryRecorder
	limiter   *rate.Limiter
	log       *zap.SugaredLogger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithGuard replaces the default-catalog guard.
func WithGuard(g *guard.Guard) Option {
	return func(v *Verifier) { v.guard = g }
}

// WithLocator sets the evidence locator.
func WithLocator(l *evidence.Locator) Option {
	return func(v *Verifier) { v.locator = l }
}

// WithRepoFetcher enables remote codebases.
func WithRepoFetcher(f RepoFetcher) Option {
	return func(v *Verifier) { v.repos = f }
}

// WithHistory records every result to h.
func WithHistory(h HistoryRecorder) Option {
	return func(v *Verifier) { v.history = h }
}

// WithLimiter paces model calls.
func WithLimiter(l *rate.Limiter) Option {
	return func(v *Verifier) { v.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(v *Verifier) { v.log = log }
}

// New returns a Verifier that asks completer for verdicts.
func New(completer Completer, config Config, opts ...Option) *Verifier {
	if config.MaxInputLength <= 0 {
		config.MaxInputLength = guard.DefaultMaxInputLength
	}
	if config.MaxPromptChars <= 0 {
		config.MaxPromptChars = verdict.DefaultMaxPromptChars
	}
	v := &Verifier{config: config, completer: completer}
	for _, opt := range opts {
		opt(v)
	}
	v.log = logging.OrNop(v.log)
	if v.guard == nil {
		v.guard = guard.New(nil)
	}
	if v.locator == nil {
		v.locator = evidence.NewLocator(context.Background(), evidence.WithLogger(v.log))
	}
	return v
}

// Verify checks reportText against codebase, a local directory or a
// remote repository URL.
func (v *Verifier) Verify(ctx context.Context, reportText, codebase string) (*verdict.Result, error) {
	return v.VerifyNamed(ctx, "", reportText, codebase)
}

// VerifyNamed is Verify with the report's source recorded in history.
func (v *Verifier) VerifyNamed(ctx context.Context, source, reportText, codebase string) (*verdict.Result, error) {
	return v.verify(ctx, source, reportText, codebase, v.resolver(codebase))
}

func (v *Verifier) verify(ctx context.Context, source, reportText, codebase string, resolve resolveFunc) (*verdict.Result, error) {
	text := v.guard.SanitizeInput(reportText, v.config.MaxInputLength)

	if f := v.guard.Classify(text, v.config.Aggressive); f.Suspicious {
		v.log.Warnw("report rejected", "source", source, "reason", f.Reason)
		res := verdict.New(verdict.Invalid, RejectedReasoning, verdict.High)
		v.record(res, source, codebase)
		return res, nil
	}

	root, err := resolve(ctx)
	if err != nil {
		return nil, err
	}

	details := report.Extract(text)
	v.log.Debugw("extracted report details",
		"type", details.Type,
		"files", len(details.AffectedFiles),
		"functions", len(details.AffectedFunctions),
		"code_mentions", len(report.ExtractCodeMentions(text)),
	)

	m := v.locator.Locate(ctx, root, details)
	code, stats := optimizer.OptimizeWithStats(m)
	v.log.Debugw("evidence gathered",
		"files", m.Len(),
		"lines_before", stats.LinesBefore,
		"lines_after", stats.LinesAfter,
		"tokens", optimizer.EstimateTokens(code),
	)

	system, user, truncated := verdict.FitPrompt(text, code, v.config.WithPoC, v.config.MaxPromptChars)
	if truncated {
		v.log.Warnw("code context truncated to fit prompt", "max_chars", v.config.MaxPromptChars)
	}

	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limit: %w", err)
		}
	}

	maxTokens := DefaultMaxTokens
	if v.config.WithPoC {
		maxTokens = PoCMaxTokens
	}
	reply, err := v.completer.Complete(ctx, system, user, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}

	reply = v.guard.SanitizeOutput(reply, true)
	verd, reasoning, poc := verdict.Parse(reply)

	res := verdict.New(verd, v.guard.SanitizeOutput(reasoning, true), v.confidence())
	if v.config.WithPoC {
		res.PoC = v.guard.SanitizeOutput(poc, false)
	}
	v.record(res, source, codebase)
	return res, nil
}

// confidence is high only for the strongest model family.
func (v *Verifier) confidence() verdict.Confidence {
	if strings.Contains(strings.ToLower(v.config.Model), "opus") {
		return verdict.High
	}
	return verdict.Medium
}

func (v *Verifier) record(res *verdict.Result, source, codebase string) {
	if v.history == nil {
		return
	}
	if source == "" {
		source = "-"
	}
	rec := store.Record{Result: *res, Source: source, Codebase: codebase, Model: v.config.Model}
	if err := v.history.SaveResult(rec); err != nil {
		v.log.Warnw("failed to record result", "report_id", res.ReportID, "error", err)
	}
}

type resolveFunc func(ctx context.Context) (string, error)

// resolver returns a resolveFunc for codebase that does the work once and
// then replays the outcome.
func (v *Verifier) resolver(codebase string) resolveFunc {
	var (
		done bool
		root string
		err  error
	)
	return func(ctx context.Context) (string, error) {
		if !done {
			root, err = v.resolveCodebase(ctx, codebase)
			done = true
		}
		return root, err
	}
}

func (v *Verifier) resolveCodebase(ctx context.Context, codebase string) (string, error) {
	if repo.IsRemote(codebase) {
		if v.repos == nil {
			return "", fmt.Errorf("remote codebase %s: no repository fetcher configured", codebase)
		}
		v.log.Infow("fetching repository", "url", codebase)
		return v.repos.Fetch(ctx, codebase)
	}

	abs, err := filepath.Abs(codebase)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrCodebaseNotFound, codebase)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrCodebaseNotFound, codebase)
	}
	return abs, nil
}
