// Package txlog implements the write-ahead transaction log: the durable
// record of every operation an Executor has actually completed, written
// incrementally so a crash mid-run still leaves a log Rollback can act on.
package txlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/go-photocopy/photocopy/internal/ids"
	"github.com/go-photocopy/photocopy/internal/model"
)

// Log is the live, in-memory handle to a run's transaction log. Every
// mutating method persists the full log atomically before returning, so
// the file on disk never reflects a partial append.
type Log struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
	data model.TransactionLog
}

// logsDirName is the fixed subdirectory, under a run's destination root,
// that holds every transaction log ever written for that destination.
const logsDirName = ".photocopy-logs"

// Begin opens a new transaction log under destinationRoot, acquiring an
// exclusive filesystem lock on destinationRoot's log directory for the
// lifetime of the run (released by Complete/Fail). The transaction id is
// generated first, then the log is written to
// <destinationRoot>/.photocopy-logs/photocopy-<id>.json, so every run
// against the same destination gets its own durable, rollback-able log
// instead of overwriting the previous one. now is the run's start time.
func Begin(destinationRoot, sourceDir, destinationPattern string, dryRun bool, now time.Time) (*Log, error) {
	logsDir := filepath.Join(destinationRoot, logsDirName)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create transaction log directory %s", logsDir)
	}

	id := ids.NewTransactionID(now)
	path := filepath.Join(logsDir, "photocopy-"+id+".json")

	lockPath := filepath.Join(logsDir, ".lock")
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "acquire transaction lock %s", lockPath)
	}
	if !locked {
		return nil, fmt.Errorf("destination %s is locked by another run", destinationRoot)
	}

	l := &Log{
		path: path,
		lock: fl,
		data: model.TransactionLog{
			TransactionID:      id,
			StartTime:          now,
			SourceDirectory:    sourceDir,
			DestinationPattern: destinationPattern,
			IsDryRun:           dryRun,
			Status:             model.StatusInProgress,
		},
	}

	if err := l.persist(); err != nil {
		fl.Unlock()
		return nil, err
	}
	return l, nil
}

// Path returns the full path the log is persisted to.
func (l *Log) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// TransactionID returns the id Begin generated.
func (l *Log) TransactionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data.TransactionID
}

// LogOperation appends a completed operation and persists the log.
func (l *Log) LogOperation(op model.Operation, completedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.data.Operations = append(l.data.Operations, model.OperationEntry{
		SourcePath:      op.SourcePath,
		DestinationPath: op.DestinationPath,
		Operation:       op.Kind,
		FileSize:        op.Size,
		Timestamp:       completedAt,
		Checksum:        op.Checksum,
	})
	return l.persistLocked()
}

// LogDirectoryCreated appends a directory the Executor itself created (one
// that did not already exist before the run), so Rollback knows it is
// eligible for removal.
func (l *Log) LogDirectoryCreated(dir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.data.CreatedDirectories = append(l.data.CreatedDirectories, dir)
	return l.persistLocked()
}

// Complete marks the run Completed and persists the final log, then
// releases the lock.
func (l *Log) Complete(endTime time.Time) error {
	return l.finish(model.StatusCompleted, "", endTime)
}

// Fail marks the run Failed with the given message and persists the final
// log, then releases the lock.
func (l *Log) Fail(message string, endTime time.Time) error {
	return l.finish(model.StatusFailed, message, endTime)
}

func (l *Log) finish(status model.RunStatus, message string, endTime time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.data.Status = status
	l.data.ErrorMessage = message
	l.data.EndTime = endTime

	if err := l.persistLocked(); err != nil {
		return err
	}
	return l.lock.Unlock()
}

// Snapshot returns a copy of the log's current persisted state.
func (l *Log) Snapshot() model.TransactionLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data
}

func (l *Log) persist() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.persistLocked()
}

// persistLocked writes the log atomically: encode to a temp file in the
// same directory, fsync it, then rename over the destination. The rename
// is atomic on POSIX filesystems, so a reader never observes a
// partially-written log.
func (l *Log) persistLocked() error {
	buf, err := json.MarshalIndent(l.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal transaction log")
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, ".txlog-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp transaction log")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp transaction log")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "fsync temp transaction log")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp transaction log")
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "rename temp transaction log into place")
	}
	return nil
}

// Load reads a persisted transaction log from disk.
func Load(path string) (model.TransactionLog, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return model.TransactionLog{}, errors.Wrapf(err, "read transaction log %s", path)
	}
	var tl model.TransactionLog
	if err := json.Unmarshal(buf, &tl); err != nil {
		return model.TransactionLog{}, errors.Wrapf(err, "parse transaction log %s", path)
	}
	return tl, nil
}

// MarkRolledBack updates a persisted, already-Completed log's status to
// RolledBack. It is called by Rollback once every logged operation and
// created directory has been processed, including when some undos failed.
func MarkRolledBack(path string, tl model.TransactionLog) error {
	tl.Status = model.StatusRolledBack
	buf, err := json.MarshalIndent(tl, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal transaction log")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".txlog-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp transaction log")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp transaction log")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "fsync temp transaction log")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp transaction log")
	}
	return os.Rename(tmpName, path)
}
