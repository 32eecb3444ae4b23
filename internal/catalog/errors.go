package catalog

import "errors"

var (
	// ErrNoSource indicates that no catalog source path is configured.
	ErrNoSource = errors.New("catalog source path is not configured")

	// ErrMissingHeader indicates a source without a header row.
	ErrMissingHeader = errors.New("catalog source has no header row")

	// ErrBadSnapshot indicates a snapshot file that cannot be decoded.
	ErrBadSnapshot = errors.New("invalid catalog snapshot")
)
