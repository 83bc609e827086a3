package cachestore

import (
	"errors"
	"fmt"

	"github.com/rohmanhakim/nps-explorer/internal/metadata"
	"github.com/rohmanhakim/nps-explorer/pkg/failure"
)

// ErrDocumentNotFound is returned by a Backend when nothing has been persisted yet.
var ErrDocumentNotFound = errors.New("cache document not found")

type StoreErrorCause string

const (
	ErrCauseReadFailure        StoreErrorCause = "read failure"
	ErrCauseWriteFailure       StoreErrorCause = "write failure"
	ErrCauseCorruptDocument    StoreErrorCause = "corrupt document"
	ErrCauseUnsupportedVersion StoreErrorCause = "unsupported document version"
	ErrCauseChecksumMismatch   StoreErrorCause = "checksum mismatch"
	ErrCauseInvalidPayload     StoreErrorCause = "invalid payload"
	ErrCauseEncodeFailure      StoreErrorCause = "encode failure"
)

type StoreError struct {
	Message   string
	Retryable bool
	Cause     StoreErrorCause
	Err       error
}

func (e *StoreError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cache store error: %s", e.Cause)
	}
	return fmt.Sprintf("cache store error: %s: %s", e.Cause, e.Message)
}

func (e *StoreError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StoreError) IsRetryable() bool {
	return e.Retryable
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// mapStoreErrorToMetadataCause maps store-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapStoreErrorToMetadataCause(err *StoreError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseReadFailure, ErrCauseWriteFailure:
		return metadata.CauseStorageFailure
	case ErrCauseCorruptDocument, ErrCauseUnsupportedVersion, ErrCauseChecksumMismatch:
		return metadata.CauseCacheCorrupt
	case ErrCauseInvalidPayload:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
