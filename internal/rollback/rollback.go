// Package rollback undoes a completed run from its transaction log: every
// operation is reversed in strict reverse order, then every directory the
// run created is removed, also in reverse (children before parents), and
// only if still empty.
package rollback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-photocopy/photocopy/internal/checksum"
	"github.com/go-photocopy/photocopy/internal/model"
	"github.com/go-photocopy/photocopy/internal/txlog"
)

var (
	// ErrNotFound is returned when the transaction log path does not exist.
	ErrNotFound = fmt.Errorf("transaction log not found")
	// ErrNotCompleted is returned when the log's status is not Completed;
	// only a Completed run may be rolled back.
	ErrNotCompleted = fmt.Errorf("transaction is not in Completed status")
	// ErrIsDryRun is returned for a log recorded from a dry run, which
	// performed no filesystem mutation and therefore has nothing to undo.
	ErrIsDryRun = fmt.Errorf("transaction was a dry run")
)

// Result is the structured outcome of a rollback attempt.
type Result struct {
	TransactionID      string
	OperationsReverted int
	DirectoriesRemoved int
	Errors             []model.CopyError
}

// Rollback undoes the run recorded at logPath.
func Rollback(logPath string) (Result, error) {
	if _, err := os.Stat(logPath); err != nil {
		return Result{}, ErrNotFound
	}

	tl, err := txlog.Load(logPath)
	if err != nil {
		return Result{}, fmt.Errorf("load transaction log: %w", err)
	}

	if tl.IsDryRun {
		return Result{}, ErrIsDryRun
	}
	if tl.Status != model.StatusCompleted {
		return Result{}, ErrNotCompleted
	}

	result := Result{TransactionID: tl.TransactionID}

	for i := len(tl.Operations) - 1; i >= 0; i-- {
		op := tl.Operations[i]
		if err := revertOne(op); err != nil {
			result.Errors = append(result.Errors, model.CopyError{
				SourcePath:      op.DestinationPath,
				DestinationPath: op.SourcePath,
				Message:         err.Error(),
			})
			continue
		}
		result.OperationsReverted++
	}

	for i := len(tl.CreatedDirectories) - 1; i >= 0; i-- {
		dir := tl.CreatedDirectories[i]
		removed, err := removeIfEmpty(dir)
		if err != nil {
			result.Errors = append(result.Errors, model.CopyError{DestinationPath: dir, Message: err.Error()})
			continue
		}
		if removed {
			result.DirectoriesRemoved++
		}
	}

	if err := txlog.MarkRolledBack(logPath, tl); err != nil {
		return result, fmt.Errorf("mark transaction rolled back: %w", err)
	}

	return result, nil
}

// revertOne undoes a single logged operation.
//
// Copy is undone by deleting the destination, but only if its content
// still matches the checksum recorded at copy time (or, when no checksum
// was recorded, its size still matches the recorded size) — if it was
// since modified, deleting it would destroy data the run never wrote.
//
// Move is undone by moving the destination back to its original source
// path, recreating the source's parent directory if the run's own
// directory cleanup already removed it.
func revertOne(op model.OperationEntry) error {
	switch op.Operation {
	case model.OperationCopy:
		if op.Checksum != "" {
			sum, err := checksum.SHA256File(context.Background(), op.DestinationPath)
			if err != nil {
				return fmt.Errorf("checksum %s: %w", op.DestinationPath, err)
			}
			if sum != op.Checksum {
				return fmt.Errorf("destination %s was modified since copy; refusing to delete", op.DestinationPath)
			}
		} else if info, err := os.Stat(op.DestinationPath); err == nil && info.Size() != op.FileSize {
			return fmt.Errorf("destination %s changed size since copy; refusing to delete", op.DestinationPath)
		}
		if err := os.Remove(op.DestinationPath); err != nil {
			return fmt.Errorf("remove %s: %w", op.DestinationPath, err)
		}
		return nil

	case model.OperationMove:
		if err := os.MkdirAll(filepath.Dir(op.SourcePath), 0o755); err != nil {
			return fmt.Errorf("recreate source directory for %s: %w", op.SourcePath, err)
		}
		if err := os.Rename(op.DestinationPath, op.SourcePath); err != nil {
			return fmt.Errorf("move %s back to %s: %w", op.DestinationPath, op.SourcePath, err)
		}
		return nil

	default:
		return fmt.Errorf("unknown operation kind %q", op.Operation)
	}
}

// removeIfEmpty removes dir only if it contains nothing; a non-empty
// directory means files the run did not create now live there, and it is
// left alone. It reports whether dir was actually removed.
func removeIfEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", dir, err)
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.Remove(dir); err != nil {
		return false, fmt.Errorf("remove %s: %w", dir, err)
	}
	return true, nil
}
