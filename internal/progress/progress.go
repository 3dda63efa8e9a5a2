// Package progress defines the inward-facing progress contract the
// Executor reports through, consumed by the CLI's progress bar (spec.md
// §6). The bar itself is out of scope; only the contract lives here.
package progress

import (
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Progress carries cumulative counts and byte totals as of one report.
type Progress struct {
	Processed int
	Failed    int
	Skipped   int
	Bytes     int64
}

// Reporter is the two-call contract the Executor drives at per-operation
// granularity.
type Reporter interface {
	Report(p Progress)
	Complete(p Progress)
}

// NopReporter discards every call; the default when the caller supplies
// none.
type NopReporter struct{}

func (NopReporter) Report(Progress)   {}
func (NopReporter) Complete(Progress) {}

// LogReporter logs each report through a structured logger, formatting
// byte counts in human-readable form.
type LogReporter struct {
	Log zerolog.Logger
}

func (r LogReporter) Report(p Progress) {
	r.Log.Info().
		Int("processed", p.Processed).
		Int("failed", p.Failed).
		Int("skipped", p.Skipped).
		Str("bytes", humanize.Bytes(uint64(p.Bytes))).
		Msg("progress")
}

func (r LogReporter) Complete(p Progress) {
	r.Log.Info().
		Int("processed", p.Processed).
		Int("failed", p.Failed).
		Int("skipped", p.Skipped).
		Str("bytes", humanize.Bytes(uint64(p.Bytes))).
		Msg("run complete")
}
