package photocopy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-photocopy/photocopy/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func baseCfg(src, dst string) config.Run {
	cfg := config.Default()
	cfg.Source = src
	cfg.Destination = dst
	cfg.Template = "{name}{ext}"
	return cfg
}

func TestRunSingleFileCopy(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "photo.jpg"), "bytes")

	cfg := baseCfg(src, dst)
	cfg.Template = filepath.Join(dst, "{name}{ext}")
	require.NoError(t, cfg.Validate())

	orc := New(zerolog.Nop(), nil, nil)
	result, err := orc.Run(context.Background(), &cfg)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)

	content, err := os.ReadFile(filepath.Join(dst, "photo.jpg"))
	require.NoError(t, err)
	require.Equal(t, "bytes", string(content))

	_, err = os.Stat(filepath.Join(src, "photo.jpg"))
	require.NoError(t, err, "copy mode must preserve the source")
}

func TestRunMoveThenRollbackRestoresSource(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	srcFile := filepath.Join(src, "photo.jpg")
	writeFile(t, srcFile, "bytes")

	cfg := baseCfg(src, dst)
	cfg.Template = filepath.Join(dst, "{name}{ext}")
	cfg.Mode = config.ModeMove
	cfg.EnableRollback = true
	require.NoError(t, cfg.Validate())

	orc := New(zerolog.Nop(), nil, nil)
	result, err := orc.Run(context.Background(), &cfg)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.NotEmpty(t, result.TransactionID)

	_, err = os.Stat(srcFile)
	require.True(t, os.IsNotExist(err))

	require.Equal(t, filepath.Join(dst, ".photocopy-logs", "photocopy-"+result.TransactionID+".json"), result.TransactionLogPath)

	rbResult, err := orc.Rollback(result.TransactionLogPath)
	require.NoError(t, err)
	require.Equal(t, 1, rbResult.OperationsReverted)

	content, err := os.ReadFile(srcFile)
	require.NoError(t, err)
	require.Equal(t, "bytes", string(content))
}

func TestRunContentDuplicateIsSkipped(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.jpg"), "identical")
	writeFile(t, filepath.Join(src, "sub", "b.jpg"), "identical")

	cfg := baseCfg(src, dst)
	cfg.Template = filepath.Join(dst, "{name}{ext}")
	cfg.CalculateChecksums = true
	cfg.DuplicateHandling = config.DuplicateSkip
	require.NoError(t, cfg.Validate())

	orc := New(zerolog.Nop(), nil, nil)
	result, err := orc.Run(context.Background(), &cfg)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 1, result.Skipped)
}

func TestRunNameCollisionAppendsSuffix(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.jpg"), "one")
	writeFile(t, filepath.Join(src, "sub", "a.jpg"), "two")

	cfg := baseCfg(src, dst)
	cfg.Template = filepath.Join(dst, "{name}{ext}")
	require.NoError(t, cfg.Validate())

	orc := New(zerolog.Nop(), nil, nil)
	result, err := orc.Run(context.Background(), &cfg)
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)

	_, err = os.Stat(filepath.Join(dst, "a.jpg"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dst, "a_1.jpg"))
	require.NoError(t, err)
}

func TestRunDateFilterKeepsFileWithinRange(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.jpg"), "no-exif-so-no-capture-time")

	min := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := baseCfg(src, dst)
	cfg.Template = filepath.Join(dst, "{name}{ext}")
	cfg.MinDate = &min
	require.NoError(t, cfg.Validate())

	orc := New(zerolog.Nop(), nil, nil)
	result, err := orc.Run(context.Background(), &cfg)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed, "a file with no EXIF capture time falls back to its (recent) filesystem timestamp, which is still within an open-ended min-date range")
}

func TestRunDryRunPerformsNoFilesystemMutation(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.jpg"), "bytes")

	cfg := baseCfg(src, dst)
	cfg.Template = filepath.Join(dst, "{name}{ext}")
	cfg.DryRun = true
	require.NoError(t, cfg.Validate())

	orc := New(zerolog.Nop(), nil, nil)
	result, err := orc.Run(context.Background(), &cfg)
	require.NoError(t, err)
	require.NotNil(t, result.Plan)
	require.Len(t, result.Plan.Operations, 1)

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	require.Empty(t, entries, "a dry run must not write anything to the destination")
}

func TestRollbackOfEmptyLogSucceeds(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	cfg := baseCfg(src, dst)
	cfg.Template = filepath.Join(dst, "{name}{ext}")
	cfg.EnableRollback = true
	require.NoError(t, cfg.Validate())

	orc := New(zerolog.Nop(), nil, nil)
	runResult, err := orc.Run(context.Background(), &cfg)
	require.NoError(t, err)

	result, err := orc.Rollback(runResult.TransactionLogPath)
	require.NoError(t, err)
	require.Equal(t, 0, result.OperationsReverted)
}

func TestRunOperationsAndSkipsCoverEveryFile(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "keep.gif"), "x")
	writeFile(t, filepath.Join(src, "drop.jpg"), "y")

	cfg := baseCfg(src, dst)
	cfg.Template = filepath.Join(dst, "{name}{ext}")
	cfg.AllowedExtensions = []string{".gif"}
	require.NoError(t, cfg.Validate())

	orc := New(zerolog.Nop(), nil, nil)
	result, err := orc.Run(context.Background(), &cfg)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, 2, result.Processed+result.Skipped)
}
