// Package validators implements the predicate objects the Planner applies
// to each enriched record before it is allowed to produce an Operation.
package validators

import (
	"strings"
	"time"

	"github.com/go-photocopy/photocopy/internal/model"
)

// Validator is a predicate over a FileRecord. Pass is reported with ok=true;
// a failure carries the SkipReason the Planner should record.
type Validator interface {
	Validate(r *model.FileRecord) (ok bool, reason model.SkipReason)
}

// MinDate fails a record whose capture date is before d. A record with no
// capture date always passes (there is nothing to compare).
type MinDate struct{ Date time.Time }

func (v MinDate) Validate(r *model.FileRecord) (bool, model.SkipReason) {
	if r.CaptureTime == nil {
		return true, ""
	}
	if r.CaptureTime.Before(v.Date) {
		return false, model.SkipMinDateValidator
	}
	return true, ""
}

// MaxDate fails a record whose capture date is after the inclusive end of
// d's calendar day (spec.md §9 Open Question: inclusive end-of-day).
type MaxDate struct{ Date time.Time }

func (v MaxDate) Validate(r *model.FileRecord) (bool, model.SkipReason) {
	if r.CaptureTime == nil {
		return true, ""
	}
	endOfDay := time.Date(v.Date.Year(), v.Date.Month(), v.Date.Day(), 23, 59, 59, 999999999, v.Date.Location())
	if r.CaptureTime.After(endOfDay) {
		return false, model.SkipMaxDateValidator
	}
	return true, ""
}

// AllowedExtensions fails a record whose extension (case-insensitive) is
// not in the configured set.
type AllowedExtensions struct{ Set map[string]bool }

// NewAllowedExtensions builds an AllowedExtensions validator from a list of
// extensions (with or without leading dots; case-insensitive).
func NewAllowedExtensions(exts []string) AllowedExtensions {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return AllowedExtensions{Set: set}
}

func (v AllowedExtensions) Validate(r *model.FileRecord) (bool, model.SkipReason) {
	if len(v.Set) == 0 {
		return true, ""
	}
	if v.Set[strings.ToLower(r.Ext())] {
		return true, ""
	}
	return false, model.SkipExtensionNotAllowed
}

// Chain evaluates validators in order, returning the first failure.
type Chain []Validator

func (c Chain) Validate(r *model.FileRecord) (bool, model.SkipReason) {
	for _, v := range c {
		if ok, reason := v.Validate(r); !ok {
			return false, reason
		}
	}
	return true, ""
}
