// Package config defines the immutable run configuration every pipeline
// stage is wired from, per spec.md §6.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/go-photocopy/photocopy/internal/model"
)

// Mode selects whether the Executor copies or moves source files.
type Mode string

const (
	ModeCopy Mode = "Copy"
	ModeMove Mode = "Move"
)

// DuplicateHandling selects what happens to a content duplicate.
type DuplicateHandling string

const (
	DuplicateNone           DuplicateHandling = "None"
	DuplicateSkip           DuplicateHandling = "SkipDuplicates"
	DuplicateRenameNumbered DuplicateHandling = "RenameNumbered"
)

// Run is every enumerated run option from spec.md §6. It is constructed
// once and passed by reference to every stage; nothing mutates it after
// Validate succeeds.
type Run struct {
	Source      string `toml:"source"`
	Destination string `toml:"destination"`
	Template    string `toml:"template"`

	Mode Mode `toml:"mode"`

	DryRun             bool `toml:"dry_run"`
	EnableRollback     bool `toml:"enable_rollback"`
	CalculateChecksums bool `toml:"calculate_checksums"`

	DuplicateHandling DuplicateHandling `toml:"duplicate_handling"`
	DuplicatesFormat  string            `toml:"duplicates_format"`

	AllowedExtensions []string `toml:"allowed_extensions"`

	MinDate    *time.Time `toml:"-"`
	MaxDate    *time.Time `toml:"-"`
	MinDateStr string     `toml:"min_date"`
	MaxDateStr string     `toml:"max_date"`

	SkipExisting bool `toml:"skip_existing"`
	Overwrite    bool `toml:"overwrite"`

	RelatedFileMode model.RelatedFileMode `toml:"related_file_mode"`

	GazetteerPath     string `toml:"gazetteer_path"`
	MinimumPopulation int64  `toml:"minimum_population"`

	Parallelism int `toml:"parallelism"`
}

// Default returns a Run with the defaults a bare invocation should assume.
func Default() Run {
	return Run{
		Template:          "{year}/{month}/{name}{ext}",
		Mode:              ModeCopy,
		DuplicateHandling: DuplicateNone,
		DuplicatesFormat:  "_{number}",
		RelatedFileMode:   model.RelatedNone,
		Parallelism:       1,
	}
}

// Load reads a TOML file and merges it over Default().
func Load(path string) (Run, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Run{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.parseDates(); err != nil {
		return Run{}, err
	}
	return cfg, nil
}

// ParseDates parses MinDateStr/MaxDateStr (YYYY-MM-DD) into MinDate/MaxDate.
// Load calls this automatically; CLI callers that set the *Str fields
// directly from flags must call it themselves.
func (r *Run) ParseDates() error {
	return r.parseDates()
}

func (r *Run) parseDates() error {
	const layout = "2006-01-02"
	if r.MinDateStr != "" {
		t, err := time.Parse(layout, r.MinDateStr)
		if err != nil {
			return fmt.Errorf("parse min_date: %w", err)
		}
		r.MinDate = &t
	}
	if r.MaxDateStr != "" {
		t, err := time.Parse(layout, r.MaxDateStr)
		if err != nil {
			return fmt.Errorf("parse max_date: %w", err)
		}
		r.MaxDate = &t
	}
	return nil
}

// Validate checks required fields and fills remaining defaults.
func (r *Run) Validate() error {
	if r.Source == "" {
		return fmt.Errorf("source is required")
	}
	if r.Destination == "" {
		return fmt.Errorf("destination is required")
	}
	if r.Template == "" {
		r.Template = "{year}/{month}/{name}{ext}"
	}
	if r.Mode == "" {
		r.Mode = ModeCopy
	}
	if r.DuplicatesFormat == "" {
		r.DuplicatesFormat = "_{number}"
	}
	if r.Parallelism < 1 {
		r.Parallelism = 1
	}
	return nil
}
