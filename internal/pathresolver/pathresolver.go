// Package pathresolver turns a destination template plus an enriched
// record into a concrete, collision-free destination path.
package pathresolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-photocopy/photocopy/internal/model"
)

const unknown = "Unknown"

// SuffixPattern is the duplicate-disambiguation template; "{number}" is
// replaced with the smallest integer, starting at 1, that resolves a
// collision. The default is "_{number}".
type SuffixPattern string

const DefaultSuffixPattern SuffixPattern = "_{number}"

// ExistsChecker reports whether a path already exists on disk. Exposed as
// a function type so planning tests can fake the filesystem without
// touching it.
type ExistsChecker func(path string) bool

// OSExists checks the real filesystem.
func OSExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Resolver substitutes template tokens and disambiguates collisions.
type Resolver struct {
	Template string
	Suffix   SuffixPattern
	Exists   ExistsChecker
	InPlan   map[string]bool // destination paths already committed this run
}

// New constructs a Resolver. exists defaults to OSExists when nil.
func New(template string, suffix SuffixPattern, exists ExistsChecker) *Resolver {
	if suffix == "" {
		suffix = DefaultSuffixPattern
	}
	if exists == nil {
		exists = OSExists
	}
	return &Resolver{Template: template, Suffix: suffix, Exists: exists, InPlan: map[string]bool{}}
}

// Substitute replaces every recognized token in the template with the
// record's values, falling back to "Unknown"/"00" where noted in
// spec.md §4.4.
func Substitute(template string, r *model.FileRecord) string {
	year, month, day := unknown, "00", "00"
	if r.CaptureTime != nil {
		year = fmt.Sprintf("%04d", r.CaptureTime.Year())
		month = fmt.Sprintf("%02d", int(r.CaptureTime.Month()))
		day = fmt.Sprintf("%02d", r.CaptureTime.Day())
	}

	country, state, city := unknown, unknown, unknown
	if r.Location != nil {
		if r.Location.Country != "" {
			country = r.Location.Country
		}
		if r.Location.State != "" {
			state = r.Location.State
		}
		if r.Location.City != "" {
			city = r.Location.City
		}
	}

	camera := unknown
	if r.Camera != "" {
		camera = r.Camera
	}

	name := strings.TrimSuffix(filepath.Base(r.SourcePath), filepath.Ext(r.SourcePath))
	ext := r.Ext()

	replacer := strings.NewReplacer(
		"{year}", year,
		"{month}", month,
		"{day}", day,
		"{name}", name,
		"{ext}", ext,
		"{country}", country,
		"{state}", state,
		"{city}", city,
		"{camera}", camera,
	)
	return filepath.Clean(filepath.FromSlash(replacer.Replace(template)))
}

// Resolution is the outcome of resolving one record's destination.
type Resolution struct {
	Path    string
	Skipped bool
	Reason  model.SkipReason
}

// Resolve computes the destination path for r, disambiguating collisions
// against both on-disk files and paths already committed earlier in this
// Plan. skipExisting and overwrite mirror config.Run's options of the same
// name; they are mutually exclusive in practice (overwrite takes no effect
// when skipExisting is set, since the record never reaches disambiguation).
func (res *Resolver) Resolve(r *model.FileRecord, skipExisting, overwrite bool) Resolution {
	base := Substitute(res.Template, r)

	if !res.collides(base) {
		res.commit(base)
		return Resolution{Path: base}
	}

	if skipExisting {
		return Resolution{Skipped: true, Reason: model.SkipAlreadyExists}
	}
	if overwrite {
		res.commit(base)
		return Resolution{Path: base}
	}

	return Resolution{Path: res.disambiguate(base)}
}

// ResolveForcedCollision disambiguates r's destination against base as if
// it collided with it, regardless of whether r's own template substitution
// would otherwise have produced a colliding path. It is used to route a
// content-duplicate hit through the same numbered-suffix search a genuine
// name collision gets, per the RenameNumbered duplicate-handling mode.
func (res *Resolver) ResolveForcedCollision(base string) Resolution {
	return Resolution{Path: res.disambiguate(base)}
}

// disambiguate runs the numbered-suffix search against base, operating on
// base's final path segment only, and commits the winning candidate.
func (res *Resolver) disambiguate(base string) string {
	dir := filepath.Dir(base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(filepath.Base(base), ext)

	for n := 1; ; n++ {
		candidateName := stem + strings.Replace(string(res.Suffix), "{number}", strconv.Itoa(n), 1) + ext
		candidate := filepath.Join(dir, candidateName)
		if !res.collides(candidate) {
			res.commit(candidate)
			return candidate
		}
	}
}

func (res *Resolver) collides(path string) bool {
	if res.InPlan[path] {
		return true
	}
	return res.Exists(path)
}

func (res *Resolver) commit(path string) {
	res.InPlan[path] = true
}
