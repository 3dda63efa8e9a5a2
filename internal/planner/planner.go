// Package planner turns enriched records into an immutable model.Plan:
// the operations an Executor should perform, the directories it must
// create first, and the records that were skipped along with why.
package planner

import (
	"path/filepath"

	"github.com/go-photocopy/photocopy/internal/config"
	"github.com/go-photocopy/photocopy/internal/dupindex"
	"github.com/go-photocopy/photocopy/internal/model"
	"github.com/go-photocopy/photocopy/internal/pathresolver"
	"github.com/go-photocopy/photocopy/internal/validators"
)

// Planner is single-threaded and deterministic: given the same input
// records and filesystem state, it always produces the same Plan, in the
// same order.
type Planner struct {
	Validators validators.Chain
	Resolver   *pathresolver.Resolver
	DupIndex   *dupindex.Index
	Cfg        *config.Run
}

// New builds a Planner wired from cfg: a validator chain (min/max date,
// allowed extensions), the caller's path resolver, and a fresh duplicate
// index, unless dup is non-nil (tests may supply a pre-seeded one).
func New(cfg *config.Run, resolver *pathresolver.Resolver, dup *dupindex.Index) *Planner {
	var chain validators.Chain
	if cfg.MinDate != nil {
		chain = append(chain, validators.MinDate{Date: *cfg.MinDate})
	}
	if cfg.MaxDate != nil {
		chain = append(chain, validators.MaxDate{Date: *cfg.MaxDate})
	}
	if len(cfg.AllowedExtensions) > 0 {
		chain = append(chain, validators.NewAllowedExtensions(cfg.AllowedExtensions))
	}

	if dup == nil {
		dup = dupindex.New()
	}

	return &Planner{Validators: chain, Resolver: resolver, DupIndex: dup, Cfg: cfg}
}

// Plan validates, deduplicates, and resolves destination paths for every
// record, in input order, and returns the resulting immutable Plan.
func (p *Planner) Plan(records []model.FileRecord) *model.Plan {
	plan := &model.Plan{}
	dirSeen := map[string]bool{}
	destByChecksum := map[string]string{}

	for i := range records {
		r := &records[i]

		if ok, reason := p.Validators.Validate(r); !ok {
			plan.Skipped = append(plan.Skipped, model.Skip{Record: r, Reason: reason})
			continue
		}

		var forcedBase string
		if p.Cfg.DuplicateHandling == config.DuplicateSkip {
			if dup := p.DupIndex.FindDuplicate(r); dup != nil {
				plan.Skipped = append(plan.Skipped, model.Skip{
					Record: r,
					Reason: model.SkipContentDuplicate,
					Detail: dup.SourcePath,
				})
				continue
			}
			p.DupIndex.Register(r)
		} else if p.Cfg.DuplicateHandling == config.DuplicateRenameNumbered {
			if dup := p.DupIndex.FindDuplicate(r); dup != nil {
				forcedBase = destByChecksum[r.Checksum]
			}
			p.DupIndex.Register(r)
		}

		var res pathresolver.Resolution
		if forcedBase != "" {
			res = p.Resolver.ResolveForcedCollision(forcedBase)
		} else {
			res = p.Resolver.Resolve(r, p.Cfg.SkipExisting, p.Cfg.Overwrite)
		}
		if res.Skipped {
			plan.Skipped = append(plan.Skipped, model.Skip{Record: r, Reason: res.Reason})
			continue
		}
		if r.Checksum != "" {
			if _, seen := destByChecksum[r.Checksum]; !seen {
				destByChecksum[r.Checksum] = res.Path
			}
		}

		kind := model.OperationCopy
		if p.Cfg.Mode == config.ModeMove {
			kind = model.OperationMove
		}

		plan.Operations = append(plan.Operations, model.Operation{
			SourcePath:      r.SourcePath,
			DestinationPath: res.Path,
			Kind:            kind,
			Size:            r.Size,
			Checksum:        r.Checksum,
			Record:          r,
		})
		plan.TotalBytes += r.Size

		addDirClosure(filepath.Dir(res.Path), dirSeen, &plan.Directories)
	}

	return plan
}

// addDirClosure records dir and every ancestor of it, parents before
// children, each exactly once. It stops walking once it
// reaches "." or "/" or a directory already recorded by an earlier call
// (since that directory's own ancestors were already recorded then).
func addDirClosure(dir string, seen map[string]bool, out *[]string) {
	if dir == "" || dir == "." || dir == string(filepath.Separator) {
		return
	}
	if seen[dir] {
		return
	}

	var chain []string
	for d := dir; d != "" && d != "." && d != string(filepath.Separator) && !seen[d]; d = filepath.Dir(d) {
		chain = append(chain, d)
	}

	// chain is deepest-first; append parents before children.
	for i := len(chain) - 1; i >= 0; i-- {
		if !seen[chain[i]] {
			seen[chain[i]] = true
			*out = append(*out, chain[i])
		}
	}
}
