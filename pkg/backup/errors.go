package backup

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no backup has the requested id.
var ErrNotFound = errors.New("backup not found")

// Restore failure reasons.
const (
	ReasonNotFound         = "not_found"
	ReasonChecksumMismatch = "checksum_mismatch"
	ReasonSnapshotFailed   = "snapshot_failed"
	ReasonInvalidValues    = "invalid_values"
	ReasonWriteFailed      = "write_failed"
)

// RestoreError reports why a restore did not change the live document.
type RestoreError struct {
	ID     string
	Reason string
	Err    error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore backup %s: %s: %v", e.ID, e.Reason, e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }
