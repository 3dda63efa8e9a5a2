// Package enrich turns raw scanner records into fully enriched
// model.FileRecord values by layering capture-date extraction, reverse
// geocoding, and content checksumming over each file, in parallel across a
// bounded worker pool.
package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/go-photocopy/photocopy/internal/checksum"
	"github.com/go-photocopy/photocopy/internal/geocoder"
	"github.com/go-photocopy/photocopy/internal/metadata"
	"github.com/go-photocopy/photocopy/internal/model"
	"github.com/go-photocopy/photocopy/internal/scanner"
)

// Error records a non-fatal enrichment failure for one file. Enrichment
// never aborts the run on a single file's failure; the record is still
// produced, with whichever fields could be derived.
type Error struct {
	SourcePath string
	Message    string
}

func (e Error) Error() string {
	return e.SourcePath + ": " + e.Message
}

// Pipeline composes the DateTime, Location, and Checksum enrichment steps
// and runs them over a batch of scanner.RawRecord values using a bounded
// worker pool, mirroring the semaphore-and-WaitGroup pattern used for
// parallel per-item processing elsewhere in the pack.
type Pipeline struct {
	Extractor          metadata.Extractor
	Geocoder           *geocoder.Geocoder
	CalculateChecksums bool
	Parallelism        int
}

// New constructs a Pipeline. parallelism is clamped to at least 1.
func New(extractor metadata.Extractor, geo *geocoder.Geocoder, calculateChecksums bool, parallelism int) *Pipeline {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Pipeline{
		Extractor:          extractor,
		Geocoder:           geo,
		CalculateChecksums: calculateChecksums,
		Parallelism:        parallelism,
	}
}

// Run enriches every raw record, preserving input order in the returned
// slice. A context cancellation stops dispatching new work and causes
// in-flight and not-yet-started items to return early; already-completed
// items are kept.
func (p *Pipeline) Run(ctx context.Context, raws []scanner.RawRecord) ([]model.FileRecord, []Error) {
	records := make([]model.FileRecord, len(raws))
	errCh := make(chan Error, len(raws))

	sem := make(chan struct{}, p.Parallelism)
	var wg sync.WaitGroup

	for i := range raws {
		if ctx.Err() != nil {
			break
		}
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			rec, errs := p.enrichOne(ctx, raws[i])
			records[i] = rec
			for _, e := range errs {
				errCh <- e
			}
		}()
	}

	wg.Wait()
	close(errCh)

	var errs []Error
	for e := range errCh {
		errs = append(errs, e)
	}
	return records, errs
}

func (p *Pipeline) enrichOne(ctx context.Context, raw scanner.RawRecord) (model.FileRecord, []Error) {
	rec := model.FileRecord{
		SourcePath:   raw.SourcePath,
		Size:         raw.Size,
		RelatedFiles: raw.RelatedFiles,
	}
	// A zero nanosecond count means the timestamp is unknown and is left as
	// the zero time.
	if raw.CreationTimeNS != 0 {
		rec.CreationTime = time.Unix(0, raw.CreationTimeNS)
	}
	if raw.ModificationTimeNS != 0 {
		rec.ModificationTime = time.Unix(0, raw.ModificationTimeNS)
	}

	var errs []Error

	var captureOK bool
	if p.Extractor != nil {
		var captured time.Time
		if captured, captureOK = p.Extractor.GetCapture(raw.SourcePath); captureOK {
			rec.CaptureTime = &captured
		}
		if gps, ok := p.Extractor.GetGPS(raw.SourcePath); ok {
			gps := gps
			rec.GPS = &gps
			if p.Geocoder != nil && p.Geocoder.Initialized() {
				rec.Location = p.Geocoder.ReverseGeocode(gps.Latitude, gps.Longitude)
			}
		}
		if camera, ok := p.Extractor.GetCamera(raw.SourcePath); ok {
			rec.Camera = camera
		}
	}

	// EXIF DateTimeOriginal takes precedence; formats without embedded
	// timestamps (notably video) fall back to the file's creation time,
	// and finally its modification time.
	if !captureOK {
		fallback := rec.CreationTime
		if fallback.IsZero() {
			fallback = rec.ModificationTime
		}
		if !fallback.IsZero() {
			rec.CaptureTime = &fallback
		}
	}

	if p.CalculateChecksums {
		sum, err := checksum.SHA256File(ctx, raw.SourcePath)
		if err != nil {
			errs = append(errs, Error{SourcePath: raw.SourcePath, Message: err.Error()})
		} else {
			rec.Checksum = sum
		}
	}

	return rec, errs
}
