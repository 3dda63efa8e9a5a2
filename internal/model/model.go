// Package model defines the data shared by every stage of the photocopy
// pipeline: the enriched file record, the plan an execution run acts on,
// and the transaction log that makes a run reversible.
package model

import "time"

// OperationKind is the kind of filesystem mutation a planned Operation
// performs.
type OperationKind string

const (
	// OperationCopy copies source bytes to destination, leaving source intact.
	OperationCopy OperationKind = "Copy"
	// OperationMove relocates source bytes to destination.
	OperationMove OperationKind = "Move"
)

// SkipReason is a closed vocabulary of reasons a record did not produce an
// Operation.
type SkipReason string

const (
	SkipAlreadyExists       SkipReason = "AlreadyExists"
	SkipContentDuplicate    SkipReason = "ContentDuplicate"
	SkipMinDateValidator    SkipReason = "MinDateValidator"
	SkipMaxDateValidator    SkipReason = "MaxDateValidator"
	SkipExtensionNotAllowed SkipReason = "ExtensionNotAllowed"
	SkipScanError           SkipReason = "ScanError"
)

// RunStatus is the lifecycle state of a TransactionLog.
type RunStatus string

const (
	StatusInProgress RunStatus = "InProgress"
	StatusCompleted  RunStatus = "Completed"
	StatusFailed     RunStatus = "Failed"
	StatusRolledBack RunStatus = "RolledBack"
)

// RelatedFileMode controls how the Scanner groups sibling files.
type RelatedFileMode string

const (
	RelatedNone   RelatedFileMode = "None"
	RelatedStrict RelatedFileMode = "Strict"
	RelatedLoose  RelatedFileMode = "Loose"
)

// GPSCoordinate is a WGS84 latitude/longitude pair.
type GPSCoordinate struct {
	Latitude  float64
	Longitude float64
}

// LocationData is a resolved place from the Geocoder. Every field besides
// Population is independently optional; an absent string is represented as
// "".
type LocationData struct {
	City       string
	District   string // admin2, "" if not resolved
	State      string // admin1
	Country    string // ISO country code
	Population int64
}

// RelatedFile is a sibling file grouped with a primary FileRecord (a RAW
// next to a JPEG, an XMP sidecar, a JSON metadata file). It never appears
// as a primary record and is carried along with its primary so it travels
// with it through planning and execution.
type RelatedFile struct {
	SourcePath string
	Size       int64
}

// FileRecord is a fully enriched file produced by the Scanner and
// EnrichmentPipeline. It is immutable once enrichment completes.
type FileRecord struct {
	SourcePath       string
	Size             int64
	CreationTime     time.Time
	ModificationTime time.Time
	CaptureTime      *time.Time // nil when capture date could not be determined
	GPS              *GPSCoordinate
	Location         *LocationData
	Camera           string // "" when unknown
	Checksum         string // "" when checksumming disabled or not yet computed
	RelatedFiles     []RelatedFile
}

// Ext returns the record's source file extension, including the leading
// dot, in its original case.
func (f *FileRecord) Ext() string {
	return ext(f.SourcePath)
}

// Operation is a single planned unit of work.
type Operation struct {
	SourcePath      string
	DestinationPath string
	Kind            OperationKind
	Size            int64
	Checksum        string // "" when not computed
	Record          *FileRecord
}

// Skip records a record that did not produce an Operation.
type Skip struct {
	Record *FileRecord
	Reason SkipReason
	Detail string
}

// Plan is the immutable result of planning: operations to perform,
// directories to create (in creation order, parents before children), and
// records that were skipped.
type Plan struct {
	Operations  []Operation
	Directories []string
	Skipped     []Skip
	TotalBytes  int64
}

// CopyError records a per-file failure during execution. The run is not
// aborted when one occurs.
type CopyError struct {
	SourcePath      string
	DestinationPath string
	Message         string
}

func (e CopyError) Error() string {
	return e.SourcePath + " -> " + e.DestinationPath + ": " + e.Message
}

// RunResult is the structured, user-visible outcome of a run: counts,
// byte totals, and every per-file failure.
type RunResult struct {
	Processed          int
	Failed             int
	Skipped            int
	TotalBytes         int64
	Errors             []CopyError
	TransactionID      string // empty when no log was opened (e.g. enableRollback=false)
	TransactionLogPath string // empty when no log was opened
	Plan               *Plan  // populated on dry runs
}

func ext(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/' && path[i] != '\\'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}
