// Package errcode enumerates error codes for all taxtag error kinds.
// Codes make error categories distinguishable so a caller can decide
// retry vs. skip vs. abort per kind.
package errcode

import (
	"errors"

	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// Store errors
	StoreConnectionError
	StoreSchemaError
	StoreQueryError
	StoreConstraintError
	StoreSearchError
	StoreBulkLoadError
	StoreSnapshotFormatError

	// Not-found conditions (terminal, surfaced to caller)
	TaxonNotFoundError
	ObservationNotFoundError

	// Resolver / remote API errors (retryable, degrade to
	// taxonomy-only or cached-only mode)
	RemoteRequestError
	RemoteStatusError
	RemoteDecodeError
	RemoteRetriesExhaustedError

	// Writer errors (per-file, never abort a batch)
	WriterReadError
	WriterWriteError
	WriterSidecarError
	WriterUnsupportedFormatError
)

// Code extracts the gn.ErrorCode from an error chain, or UnknownError.
func Code(err error) gn.ErrorCode {
	var gerr *gn.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return UnknownError
}

// IsNotFound reports whether the error is a terminal not-found
// condition: the id does not exist locally or remotely.
func IsNotFound(err error) bool {
	switch Code(err) {
	case TaxonNotFoundError, ObservationNotFoundError:
		return true
	}
	return false
}

// IsRemote reports whether the error comes from the remote API or
// network layer. Callers may retry or fall back to cached data.
func IsRemote(err error) bool {
	switch Code(err) {
	case RemoteRequestError, RemoteStatusError, RemoteDecodeError,
		RemoteRetriesExhaustedError:
		return true
	}
	return false
}

// IsStorage reports whether the error is a local database failure.
// Fatal for the current run; cached data must not be silently lost.
func IsStorage(err error) bool {
	switch Code(err) {
	case StoreConnectionError, StoreSchemaError, StoreQueryError,
		StoreConstraintError, StoreSearchError, StoreBulkLoadError,
		StoreSnapshotFormatError:
		return true
	}
	return false
}
