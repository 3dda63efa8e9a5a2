// Package dupindex implements the content-addressed duplicate index:
// checksum to first-seen record, with at-most-once registration semantics
// per fingerprint.
package dupindex

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/go-photocopy/photocopy/internal/model"
)

// Index is a concurrency-safe checksum → first-registered FileRecord map.
type Index struct {
	mu      sync.RWMutex
	entries map[string]*model.FileRecord

	// group collapses concurrent first-registrations of the same checksum
	// down to a single winner, mirroring the pattern used elsewhere in the
	// stack to de-duplicate concurrent identical work.
	group singleflight.Group
}

// New constructs an empty Index.
func New() *Index {
	return &Index{entries: make(map[string]*model.FileRecord)}
}

// FindDuplicate returns the first-registered record sharing r's checksum,
// or nil if r has no checksum or none is registered yet.
func (idx *Index) FindDuplicate(r *model.FileRecord) *model.FileRecord {
	if r.Checksum == "" {
		return nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.entries[r.Checksum]
}

// Register records r under its checksum if no record has claimed that
// checksum yet. It is idempotent: concurrent registrations of the same
// checksum always agree on which record won.
func (idx *Index) Register(r *model.FileRecord) (winner *model.FileRecord, registered bool) {
	if r.Checksum == "" {
		return r, true
	}

	v, _, _ := idx.group.Do(r.Checksum, func() (interface{}, error) {
		idx.mu.Lock()
		defer idx.mu.Unlock()
		if existing, ok := idx.entries[r.Checksum]; ok {
			return existing, nil
		}
		idx.entries[r.Checksum] = r
		return r, nil
	})

	won := v.(*model.FileRecord)
	return won, won == r
}

// Clear removes every registered entry.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]*model.FileRecord)
}
