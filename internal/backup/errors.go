package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"netmri-backup/internal/netmri"
)

// Step names, also used as metric operation labels.
const (
	StepPrepare          = "prepare"
	StepCreateArchive    = "create_archive"
	StepDownloadArchive  = "download_archive"
	StepDownloadChecksum = "download_checksum"
	StepVerifyChecksum   = "verify_checksum"
	StepMirror           = "mirror"
	StepRemoveArchive    = "remove_archive"
)

// StepError records which step failed and whether the run must stop.
type StepError struct {
	Step  string
	Fatal bool
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a fatal StepError.
func IsFatal(err error) bool {
	var stepErr *StepError
	return errors.As(err, &stepErr) && stepErr.Fatal
}

// RetriesExhaustedError is returned once the download retry budget is spent.
type RetriesExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Err
}

// ChecksumMismatchError is returned when the archive does not match the
// checksum published by the appliance.
type ChecksumMismatchError struct {
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// categorizeError maps err to the error_type label used in metrics. Only a
// done ctx counts as cancelled; client timeouts are connection errors.
func categorizeError(ctx context.Context, err error) string {
	var apiErr *netmri.APIError
	var mismatch *ChecksumMismatchError
	var pathErr *fs.PathError

	switch {
	case ctx.Err() != nil:
		return "cancelled"
	case netmri.IsConnectionError(err):
		return "connection"
	case errors.As(err, &apiErr):
		return "api"
	case errors.As(err, &mismatch):
		return "checksum_mismatch"
	case errors.As(err, &pathErr):
		return "filesystem"
	default:
		return "unknown"
	}
}
