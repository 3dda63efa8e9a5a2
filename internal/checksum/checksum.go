// Package checksum computes content fingerprints for the duplicate index.
package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// bufferSize is the streaming read size used when hashing a file. 64 KiB
// balances syscall overhead against per-goroutine memory when many files
// are hashed concurrently.
const bufferSize = 64 * 1024

// SHA256File streams a file's bytes through SHA-256 and returns the
// lowercase 64-hex-character digest. Empty files produce the well-known
// SHA-256 of the empty input. Re-running on identical bytes always yields
// the same output.
func SHA256File(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return SHA256Reader(ctx, f)
}

// SHA256Reader is the streaming core of SHA256File, split out so tests and
// callers holding an already-open handle can reuse it.
func SHA256Reader(ctx context.Context, r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, bufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
