// Package photocopy wires the Scanner, EnrichmentPipeline, Planner,
// Executor, and transaction log into the single end-to-end Run a CLI
// invocation performs, plus the Rollback entry point that undoes one.
package photocopy

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-photocopy/photocopy/internal/config"
	"github.com/go-photocopy/photocopy/internal/dupindex"
	"github.com/go-photocopy/photocopy/internal/enrich"
	"github.com/go-photocopy/photocopy/internal/executor"
	"github.com/go-photocopy/photocopy/internal/geocoder"
	"github.com/go-photocopy/photocopy/internal/metadata"
	"github.com/go-photocopy/photocopy/internal/model"
	"github.com/go-photocopy/photocopy/internal/pathresolver"
	"github.com/go-photocopy/photocopy/internal/planner"
	"github.com/go-photocopy/photocopy/internal/progress"
	"github.com/go-photocopy/photocopy/internal/rollback"
	"github.com/go-photocopy/photocopy/internal/scanner"
	"github.com/go-photocopy/photocopy/internal/txlog"
)

// Orchestrator drives one full pipeline run: scan, enrich, plan, execute,
// log.
type Orchestrator struct {
	Log      zerolog.Logger
	Geocoder *geocoder.Geocoder
	Reporter progress.Reporter
	Now      func() time.Time
}

// New constructs an Orchestrator. geo may be nil, in which case no reverse
// geocoding is performed even when records carry GPS data.
func New(log zerolog.Logger, geo *geocoder.Geocoder, reporter progress.Reporter) *Orchestrator {
	if reporter == nil {
		reporter = progress.NopReporter{}
	}
	return &Orchestrator{Log: log, Geocoder: geo, Reporter: reporter, Now: time.Now}
}

// Run executes one pipeline invocation end to end per cfg.
func (o *Orchestrator) Run(ctx context.Context, cfg *config.Run) (*model.RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sc := scanner.New(cfg.RelatedFileMode, nil)
	raws, scanErrs, err := sc.Scan(ctx, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", cfg.Source, err)
	}
	for _, se := range scanErrs {
		o.Log.Warn().Str("path", se.Path).Str("error", se.Message).Msg("scan error")
	}

	pipe := enrich.New(metadata.NewExifExtractor(), o.Geocoder, cfg.CalculateChecksums, cfg.Parallelism)
	records, enrichErrs := pipe.Run(ctx, raws)
	for _, e := range enrichErrs {
		o.Log.Warn().Str("path", e.SourcePath).Str("error", e.Message).Msg("enrichment error")
	}

	// A relative template is resolved under the destination root.
	template := cfg.Template
	if !filepath.IsAbs(template) {
		template = filepath.Join(cfg.Destination, template)
	}
	resolver := pathresolver.New(template, pathresolver.SuffixPattern(cfg.DuplicatesFormat), pathresolver.OSExists)
	pln := planner.New(cfg, resolver, dupindex.New())
	plan := pln.Plan(records)

	for _, se := range scanErrs {
		plan.Skipped = append(plan.Skipped, model.Skip{
			Record: &model.FileRecord{SourcePath: se.Path},
			Reason: model.SkipScanError,
			Detail: se.Message,
		})
	}

	if cfg.DryRun {
		return &model.RunResult{
			Processed:  0,
			Failed:     0,
			Skipped:    len(plan.Skipped),
			TotalBytes: plan.TotalBytes,
			Plan:       plan,
		}, nil
	}

	var (
		log      *txlog.Log
		beginErr error
	)
	if cfg.EnableRollback {
		log, beginErr = txlog.Begin(cfg.Destination, cfg.Source, cfg.Template, cfg.DryRun, o.Now())
		if beginErr != nil {
			return nil, fmt.Errorf("begin transaction log: %w", beginErr)
		}
	}

	ex := executor.New(o.Reporter, cfg.Parallelism)
	var result model.RunResult
	if log != nil {
		result = ex.Execute(ctx, plan, log, cfg.Overwrite)
		result.TransactionID = log.TransactionID()
		result.TransactionLogPath = log.Path()

		if result.Failed > 0 {
			_ = log.Fail(fmt.Sprintf("%d of %d operations failed", result.Failed, len(plan.Operations)), o.Now())
		} else {
			if err := log.Complete(o.Now()); err != nil {
				return &result, fmt.Errorf("complete transaction log: %w", err)
			}
		}
	} else {
		result = ex.Execute(ctx, plan, nil, cfg.Overwrite)
	}

	return &result, nil
}

// Rollback undoes the run recorded at logPath.
func (o *Orchestrator) Rollback(logPath string) (rollback.Result, error) {
	return rollback.Rollback(logPath)
}
