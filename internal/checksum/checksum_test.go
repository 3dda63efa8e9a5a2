package checksum

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSHA256FileEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	sum, err := SHA256File(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", sum)
}

func TestSHA256FileDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.bin")
	require.NoError(t, os.WriteFile(path, []byte("identical bytes"), 0o644))

	first, err := SHA256File(context.Background(), path)
	require.NoError(t, err)
	second, err := SHA256File(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, first, 64)
}

func TestSHA256FileCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.bin")
	require.NoError(t, os.WriteFile(path, []byte("some bytes"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := SHA256File(ctx, path)
	require.Error(t, err)
}
