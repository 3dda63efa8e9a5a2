// Package scanner recursively enumerates a source directory into a stream
// of raw file records, grouping related sidecar files per the configured
// mode.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"

	"github.com/go-photocopy/photocopy/internal/model"
)

// RawRecord is a file discovered by the scanner, before any enrichment
// step has run.
type RawRecord struct {
	SourcePath         string
	Size               int64
	CreationTimeNS     int64 // unix nanoseconds
	ModificationTimeNS int64
	RelatedFiles       []model.RelatedFile
}

// ScanError is a per-file enumeration failure. It never aborts the walk;
// the failing path is recorded and the walk continues.
type ScanError struct {
	Path    string
	Message string
}

func (e ScanError) Error() string {
	return fmt.Sprintf("scan %s: %s", e.Path, e.Message)
}

// Scanner walks a source tree depth-first, never following symlinks, and
// groups sibling files per mode.
type Scanner struct {
	Mode               model.RelatedFileMode
	AllowedPrimaryExts map[string]bool // extensions eligible to be a group's primary, lowercase with leading dot
}

// New constructs a Scanner. allowedPrimaryExts may be nil/empty, in which
// case the first-discovered file in a group (in directory order) is always
// the primary.
func New(mode model.RelatedFileMode, allowedPrimaryExts []string) *Scanner {
	set := make(map[string]bool, len(allowedPrimaryExts))
	for _, e := range allowedPrimaryExts {
		set[strings.ToLower(e)] = true
	}
	return &Scanner{Mode: mode, AllowedPrimaryExts: set}
}

// Scan walks root depth-first and returns one RawRecord per primary file,
// plus any per-file ScanErrors encountered (enumeration continues past
// them). Ordering within a directory is stable across a single call but
// otherwise unspecified.
func (s *Scanner) Scan(ctx context.Context, root string) ([]RawRecord, []ScanError, error) {
	dirs := map[string][]dirEntry{}
	order := map[string]int{}
	var orderCounter int
	var scanErrs []ScanError

	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if de.IsSymlink() {
				return nil // symlinks are not followed
			}
			if de.IsDir() {
				return nil
			}

			info, statErr := os.Lstat(path)
			if statErr != nil {
				scanErrs = append(scanErrs, ScanError{Path: path, Message: statErr.Error()})
				return nil
			}

			dir := filepath.Dir(path)
			dirs[dir] = append(dirs[dir], dirEntry{path: path, info: info})
			order[path] = orderCounter
			orderCounter++
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			scanErrs = append(scanErrs, ScanError{Path: path, Message: err.Error()})
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return nil, scanErrs, fmt.Errorf("walk %s: %w", root, err)
	}

	dirNames := make([]string, 0, len(dirs))
	for d := range dirs {
		dirNames = append(dirNames, d)
	}
	sort.Strings(dirNames)

	var records []RawRecord
	for _, dir := range dirNames {
		entries := dirs[dir]
		sort.Slice(entries, func(i, j int) bool { return order[entries[i].path] < order[entries[j].path] })
		records = append(records, s.groupDirectory(entries)...)
	}

	return records, scanErrs, nil
}

type dirEntry struct {
	path string
	info os.FileInfo
}

func (s *Scanner) groupDirectory(entries []dirEntry) []RawRecord {
	if s.Mode == model.RelatedNone {
		out := make([]RawRecord, 0, len(entries))
		for _, e := range entries {
			out = append(out, s.toRawRecord(e, nil))
		}
		return out
	}

	used := make([]bool, len(entries))
	var out []RawRecord

	for i, e := range entries {
		if used[i] {
			continue
		}
		stem := baseStem(e.path)

		primaryIdx := i
		if len(s.AllowedPrimaryExts) > 0 {
			for j, cand := range entries {
				if used[j] || !sameGroup(s.Mode, stem, cand.path) {
					continue
				}
				if s.AllowedPrimaryExts[strings.ToLower(filepath.Ext(cand.path))] {
					primaryIdx = j
					break
				}
			}
		}

		var related []model.RelatedFile
		for j, cand := range entries {
			if j == primaryIdx || used[j] {
				continue
			}
			if sameGroup(s.Mode, stem, cand.path) {
				related = append(related, model.RelatedFile{
					SourcePath: cand.path,
					Size:       cand.info.Size(),
				})
				used[j] = true
			}
		}
		used[primaryIdx] = true
		out = append(out, s.toRawRecord(entries[primaryIdx], related))
	}

	return out
}

func (s *Scanner) toRawRecord(e dirEntry, related []model.RelatedFile) RawRecord {
	return RawRecord{
		SourcePath:         e.path,
		Size:               e.info.Size(),
		CreationTimeNS:     creationTime(e.info).UnixNano(),
		ModificationTimeNS: e.info.ModTime().UnixNano(),
		RelatedFiles:       related,
	}
}

// baseStem returns the filename minus its final extension, or minus two
// extensions for "name.ext.xmp" style sidecars.
func baseStem(path string) string {
	name := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(name), ".xmp") {
		inner := strings.TrimSuffix(name, filepath.Ext(name))
		if filepath.Ext(inner) != "" {
			return strings.TrimSuffix(inner, filepath.Ext(inner))
		}
		return inner
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// sameGroup reports whether candidate belongs to the group rooted at stem,
// per the mode's matching rule.
func sameGroup(mode model.RelatedFileMode, stem, candidatePath string) bool {
	candStem := baseStem(candidatePath)
	candName := filepath.Base(candidatePath)

	if strings.EqualFold(candStem, stem) {
		return true
	}
	// <base>_<suffix>.<ext>
	if strings.HasPrefix(strings.ToLower(candName), strings.ToLower(stem)+"_") {
		return true
	}
	if mode == model.RelatedLoose && strings.HasPrefix(strings.ToLower(candStem), strings.ToLower(stem)) {
		return true
	}
	return false
}
