// Package verdict holds verification results, the model prompt, and the
// parser that turns a model reply back into a result.
package verdict

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Verdict is the outcome of verifying one report.
type Verdict string

const (
	Valid   Verdict = "VALID"
	Invalid Verdict = "INVALID"
	// Error marks a batch entry whose processing failed.
	Error Verdict = "ERROR"
)

// Confidence is how much weight a verdict deserves.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Result is the structured outcome of one verification.
type Result struct {
	Verdict    Verdict    `json:"verdict"`
	Reasoning  string     `json:"reasoning"`
	Confidence Confidence `json:"confidence"`
	ReportID   string     `json:"report_id"`
	Timestamp  string     `json:"timestamp"`
	PoC        string     `json:"poc,omitempty"`
}

// BatchEntry is a Result tagged with the report file it came from.
type BatchEntry struct {
	File string `json:"file"`
	Result
}

var now = time.Now

// NewReportID returns a short opaque identifier.
func NewReportID() string {
	return uuid.NewString()[:8]
}

// Timestamp returns the current time in RFC3339 UTC.
func Timestamp() string {
	return now().UTC().Format(time.RFC3339)
}

// New returns a Result with a fresh id and timestamp.
func New(v Verdict, reasoning string, c Confidence) *Result {
	r := &Result{Verdict: v, Reasoning: reasoning, Confidence: c}
	r.Fill()
	return r
}

// Fill assigns an id and timestamp where they are missing.
func (r *Result) Fill() {
	if r.ReportID == "" {
		r.ReportID = NewReportID()
	}
	if r.Timestamp == "" {
		r.Timestamp = Timestamp()
	}
}

// Failed builds the batch entry recorded when file could not be processed.
func Failed(file string, err error) BatchEntry {
	return BatchEntry{
		File:   file,
		Result: *New(Error, fmt.Sprintf("Failed to process: %v", err), Low),
	}
}
