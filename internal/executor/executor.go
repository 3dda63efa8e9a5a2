// Package executor carries out a model.Plan: creating directories, then
// copying or moving each planned file and its related sidecars, reporting
// progress as it goes and logging every completed operation to a
// transaction log so the run can later be rolled back.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-photocopy/photocopy/internal/model"
	"github.com/go-photocopy/photocopy/internal/progress"
)

// TxLog is the subset of *txlog.Log the Executor depends on; kept as an
// interface so tests can run the Executor without a real on-disk log.
type TxLog interface {
	LogOperation(op model.Operation, completedAt time.Time) error
	LogDirectoryCreated(dir string) error
}

// Executor applies a Plan to the filesystem.
type Executor struct {
	Reporter    progress.Reporter
	Parallelism int
	Now         func() time.Time
}

// New constructs an Executor. reporter defaults to progress.NopReporter
// when nil; parallelism is clamped to at least 1.
func New(reporter progress.Reporter, parallelism int) *Executor {
	if reporter == nil {
		reporter = progress.NopReporter{}
	}
	if parallelism < 1 {
		parallelism = 1
	}
	return &Executor{Reporter: reporter, Parallelism: parallelism, Now: time.Now}
}

// Execute applies plan. It has no dry-run mode of its own: a dry run never
// reaches the Executor, and the caller returns the Plan instead. log may be
// nil, in which case operations are not recorded anywhere (rollback will
// be unavailable for this run).
func (e *Executor) Execute(ctx context.Context, plan *model.Plan, log TxLog, overwrite bool) model.RunResult {
	result := model.RunResult{Skipped: len(plan.Skipped), TotalBytes: plan.TotalBytes}

	for _, dir := range plan.Directories {
		created, err := ensureDir(dir)
		if err != nil {
			result.Errors = append(result.Errors, model.CopyError{DestinationPath: dir, Message: err.Error()})
			continue
		}
		if created && log != nil {
			if err := log.LogDirectoryCreated(dir); err != nil {
				result.Errors = append(result.Errors, model.CopyError{DestinationPath: dir, Message: err.Error()})
			}
		}
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		sem       = make(chan struct{}, e.Parallelism)
		doneBytes int64
	)

	report := func() {
		mu.Lock()
		defer mu.Unlock()
		e.Reporter.Report(progress.Progress{
			Processed: result.Processed,
			Failed:    result.Failed,
			Skipped:   result.Skipped,
			Bytes:     doneBytes,
		})
	}

	for _, op := range plan.Operations {
		if ctx.Err() != nil {
			break
		}
		op := op
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			relatedOps, err := e.applyOne(op, overwrite)

			mu.Lock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, model.CopyError{
					SourcePath:      op.SourcePath,
					DestinationPath: op.DestinationPath,
					Message:         err.Error(),
				})
				mu.Unlock()
				report()
				return
			}
			result.Processed++
			doneBytes += op.Size
			mu.Unlock()

			if log != nil {
				now := e.Now()
				if logErr := log.LogOperation(op, now); logErr != nil {
					mu.Lock()
					result.Errors = append(result.Errors, model.CopyError{
						SourcePath:      op.SourcePath,
						DestinationPath: op.DestinationPath,
						Message:         "log operation: " + logErr.Error(),
					})
					mu.Unlock()
				}
				for _, relOp := range relatedOps {
					if logErr := log.LogOperation(relOp, now); logErr != nil {
						mu.Lock()
						result.Errors = append(result.Errors, model.CopyError{
							SourcePath:      relOp.SourcePath,
							DestinationPath: relOp.DestinationPath,
							Message:         "log related operation: " + logErr.Error(),
						})
						mu.Unlock()
					}
				}
			}
			report()
		}()
	}
	wg.Wait()

	e.Reporter.Complete(progress.Progress{
		Processed: result.Processed,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
		Bytes:     doneBytes,
	})

	return result
}

// applyOne performs a single operation's primary transfer plus its related
// files, each transferred to the primary's destination directory under its
// own original basename. It returns one model.Operation per related file
// actually transferred, so the caller can log each as its own transaction
// log entry (spec.md §4.8: "Each related transfer is logged as its own
// operation entry").
func (e *Executor) applyOne(op model.Operation, overwrite bool) ([]model.Operation, error) {
	if !overwrite {
		if _, err := os.Stat(op.DestinationPath); err == nil {
			return nil, fmt.Errorf("destination already exists: %s", op.DestinationPath)
		}
	}

	switch op.Kind {
	case model.OperationMove:
		if err := moveFile(op.SourcePath, op.DestinationPath); err != nil {
			return nil, err
		}
	default:
		if err := copyFile(op.SourcePath, op.DestinationPath); err != nil {
			return nil, err
		}
	}

	if op.Record == nil {
		return nil, nil
	}

	destDir := filepath.Dir(op.DestinationPath)
	relatedOps := make([]model.Operation, 0, len(op.Record.RelatedFiles))
	for _, rel := range op.Record.RelatedFiles {
		dst := filepath.Join(destDir, filepath.Base(rel.SourcePath))
		var err error
		if op.Kind == model.OperationMove {
			err = moveFile(rel.SourcePath, dst)
		} else {
			err = copyFile(rel.SourcePath, dst)
		}
		if err != nil {
			return relatedOps, fmt.Errorf("related file %s: %w", rel.SourcePath, err)
		}
		relatedOps = append(relatedOps, model.Operation{
			SourcePath:      rel.SourcePath,
			DestinationPath: dst,
			Kind:            op.Kind,
			Size:            rel.Size,
		})
	}
	return relatedOps, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}

// moveFile renames src to dst, falling back to copy-then-delete when the
// rename fails across a device boundary (EXDEV), which a plain os.Rename
// cannot cross.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		if isCrossDevice(err) {
			if copyErr := copyFile(src, dst); copyErr != nil {
				return fmt.Errorf("cross-device move copy: %w", copyErr)
			}
			if rmErr := os.Remove(src); rmErr != nil {
				return fmt.Errorf("cross-device move cleanup: %w", rmErr)
			}
			return nil
		}
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// ensureDir creates dir (and any missing parents) if it does not already
// exist, reporting whether it actually created the leaf directory so the
// caller only logs directories the run itself is responsible for.
func ensureDir(dir string) (created bool, err error) {
	if _, statErr := os.Stat(dir); statErr == nil {
		return false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return true, nil
}
