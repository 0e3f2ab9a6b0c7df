package settings

import (
	"errors"
	"fmt"
)

var (
	// ErrChecksumMismatch is returned when imported values do not hash to
	// the checksum they were exported with.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrUnsupportedFormat is returned for envelopes not produced by Export.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrInvalidEnvelope is returned when an envelope is missing required
	// fields.
	ErrInvalidEnvelope = errors.New("invalid export envelope")
)

// IntegrityError reports that the persisted document failed verification.
// Read returns it together with a usable fallback document.
type IntegrityError struct {
	Expected string
	Actual   string
	// StoredVersion is the version of the corrupt record when it could
	// still be decoded, zero otherwise.
	StoredVersion int64
	// Fallback names what was served instead: "backup" or "defaults".
	Fallback string
	Cause    error
}

func (e *IntegrityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("settings integrity check failed: %v (serving %s)", e.Cause, e.Fallback)
	}
	return fmt.Sprintf("settings integrity check failed: checksum %s does not match stored %s (serving %s)", e.Actual, e.Expected, e.Fallback)
}

func (e *IntegrityError) Unwrap() error { return e.Cause }

// StorageError wraps a failure of the underlying key-value store or of the
// pre-write snapshot. Nothing was changed when it is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("settings storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// VersionError is returned when an envelope's format version is newer than
// this build understands.
type VersionError struct {
	Got       int
	Supported int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("export format version %d is not supported (max %d)", e.Got, e.Supported)
}
