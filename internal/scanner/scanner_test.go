package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-photocopy/photocopy/internal/model"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestScanNoneModeNeverGroups(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"))
	writeFile(t, filepath.Join(dir, "a.raw"))

	s := New(model.RelatedNone, nil)
	records, errs, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, records, 2)
	for _, r := range records {
		require.Empty(t, r.RelatedFiles)
	}
}

func TestScanStrictGroupsSameDirOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "IMG_0001.jpg"))
	writeFile(t, filepath.Join(dir, "IMG_0001.raw"))
	writeFile(t, filepath.Join(dir, "IMG_0001.xmp"))
	writeFile(t, filepath.Join(dir, "sub", "IMG_0001.jpg"))

	s := New(model.RelatedStrict, []string{".jpg"})
	records, _, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)

	var primaries []string
	for _, r := range records {
		primaries = append(primaries, r.SourcePath)
	}
	sort.Strings(primaries)
	require.Len(t, records, 2) // one primary per directory

	for _, r := range records {
		if r.SourcePath == filepath.Join(dir, "IMG_0001.jpg") {
			require.Len(t, r.RelatedFiles, 2)
		}
	}
}

func TestScanRelatedFileLocalityInvariant(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "photo.jpg"))
	writeFile(t, filepath.Join(dir, "photo.xmp"))

	s := New(model.RelatedStrict, []string{".jpg"})
	records, _, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, records, 1)

	for _, related := range records[0].RelatedFiles {
		require.Equal(t, filepath.Dir(records[0].SourcePath), filepath.Dir(related.SourcePath))
	}
}

func TestScanSkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.jpg")
	writeFile(t, target)
	link := filepath.Join(dir, "link.jpg")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	s := New(model.RelatedNone, nil)
	records, _, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, target, records[0].SourcePath)
}

func TestScanLooseGroupsBroader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "event.jpg"))
	writeFile(t, filepath.Join(dir, "event_extra_notes.txt"))

	s := New(model.RelatedLoose, []string{".jpg"})
	records, _, err := s.Scan(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].RelatedFiles, 1)
}
