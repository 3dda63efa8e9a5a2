package enrich

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-photocopy/photocopy/internal/geocoder"
	"github.com/go-photocopy/photocopy/internal/metadata"
	"github.com/go-photocopy/photocopy/internal/model"
	"github.com/go-photocopy/photocopy/internal/scanner"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunProducesFileRecordPerRaw(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTempFile(t, dir, "a.jpg", "hello")
	p2 := writeTempFile(t, dir, "b.jpg", "world!!")

	raws := []scanner.RawRecord{
		{SourcePath: p1, Size: 5, CreationTimeNS: 1000, ModificationTimeNS: 2000},
		{SourcePath: p2, Size: 7, CreationTimeNS: 3000, ModificationTimeNS: 4000},
	}

	pipe := New(&metadata.FuncExtractor{}, geocoder.New(0, zerolog.Nop()), true, 2)
	records, errs := pipe.Run(context.Background(), raws)

	require.Empty(t, errs)
	require.Len(t, records, 2)
	require.Equal(t, p1, records[0].SourcePath)
	require.Equal(t, p2, records[1].SourcePath)
	require.NotEmpty(t, records[0].Checksum)
	require.NotEmpty(t, records[1].Checksum)
	require.NotEqual(t, records[0].Checksum, records[1].Checksum)
}

func TestRunWithoutChecksummingLeavesChecksumEmpty(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTempFile(t, dir, "a.jpg", "hello")

	raws := []scanner.RawRecord{{SourcePath: p1, Size: 5}}
	pipe := New(nil, nil, false, 1)
	records, errs := pipe.Run(context.Background(), raws)

	require.Empty(t, errs)
	require.Equal(t, "", records[0].Checksum)
}

func TestRunUsesExtractorForCaptureGPSAndCamera(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTempFile(t, dir, "a.jpg", "hello")
	captured := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	gps := model.GPSCoordinate{Latitude: 48.85, Longitude: 2.35}

	ext := &metadata.FuncExtractor{
		CaptureFn: func(string) (time.Time, bool) { return captured, true },
		GPSFn:     func(string) (model.GPSCoordinate, bool) { return gps, true },
		CameraFn:  func(string) (string, bool) { return "Acme Camera", true },
	}

	pipe := New(ext, nil, false, 1)
	records, _ := pipe.Run(context.Background(), []scanner.RawRecord{{SourcePath: p1}})

	require.NotNil(t, records[0].CaptureTime)
	require.True(t, captured.Equal(*records[0].CaptureTime))
	require.NotNil(t, records[0].GPS)
	require.Equal(t, gps, *records[0].GPS)
	require.Equal(t, "Acme Camera", records[0].Camera)
}

func TestRunFallsBackToCreationTimeWhenNoCapture(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTempFile(t, dir, "clip.mp4", "no-embedded-timestamp")

	creation := time.Date(2022, 7, 4, 12, 0, 0, 0, time.UTC)
	mod := time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC)

	pipe := New(&metadata.FuncExtractor{}, nil, false, 1)
	records, _ := pipe.Run(context.Background(), []scanner.RawRecord{
		{SourcePath: p1, CreationTimeNS: creation.UnixNano(), ModificationTimeNS: mod.UnixNano()},
	})

	require.NotNil(t, records[0].CaptureTime, "video and other EXIF-less formats must fall back to a filesystem timestamp")
	require.True(t, creation.Equal(*records[0].CaptureTime))
}

func TestRunFallsBackToModificationTimeWhenNoCreationTime(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTempFile(t, dir, "clip.mp4", "no-embedded-timestamp")

	mod := time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC)

	pipe := New(&metadata.FuncExtractor{}, nil, false, 1)
	records, _ := pipe.Run(context.Background(), []scanner.RawRecord{
		{SourcePath: p1, ModificationTimeNS: mod.UnixNano()},
	})

	require.NotNil(t, records[0].CaptureTime)
	require.True(t, mod.Equal(*records[0].CaptureTime))
}

func TestRunExifCaptureTakesPrecedenceOverFilesystemTime(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTempFile(t, dir, "a.jpg", "hello")
	captured := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	creation := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)

	ext := &metadata.FuncExtractor{
		CaptureFn: func(string) (time.Time, bool) { return captured, true },
	}
	pipe := New(ext, nil, false, 1)
	records, _ := pipe.Run(context.Background(), []scanner.RawRecord{
		{SourcePath: p1, CreationTimeNS: creation.UnixNano()},
	})

	require.True(t, captured.Equal(*records[0].CaptureTime))
}

func TestRunChecksumFailureProducesErrorButKeepsRecord(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist.jpg")
	pipe := New(nil, nil, true, 1)
	records, errs := pipe.Run(context.Background(), []scanner.RawRecord{{SourcePath: missing}})

	require.Len(t, errs, 1)
	require.Equal(t, missing, errs[0].SourcePath)
	require.Len(t, records, 1)
	require.Equal(t, missing, records[0].SourcePath)
}

func TestRunRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipe := New(nil, nil, true, 1)
	records, _ := pipe.Run(ctx, []scanner.RawRecord{{SourcePath: "irrelevant"}})
	require.Len(t, records, 1)
}
