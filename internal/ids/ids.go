// Package ids generates transaction identifiers.
package ids

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewTransactionID returns a lexicographically time-sortable id of the
// form yyyyMMdd-HHmmss-<8 hex>, per spec.md §4.9.
func NewTransactionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.UTC().Format("20060102-150405") + "-" + suffix
}
