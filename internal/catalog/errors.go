package catalog

import (
	"fmt"

	"github.com/rohmanhakim/nps-explorer/internal/metadata"
	"github.com/rohmanhakim/nps-explorer/pkg/failure"
)

type CatalogErrorCause string

const (
	ErrCauseInvalidURL     CatalogErrorCause = "invalid url"
	ErrCauseInvalidPayload CatalogErrorCause = "cached page is not a JSON string"
	ErrCauseMalformedHTML  CatalogErrorCause = "malformed html"
	ErrCauseNoStateIndex   CatalogErrorCause = "state index not found"
)

type CatalogError struct {
	Message   string
	Retryable bool
	Cause     CatalogErrorCause
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog error: %s: %s", e.Cause, e.Message)
}

func (e *CatalogError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapCatalogErrorToMetadataCause is observational only.
func mapCatalogErrorToMetadataCause(err *CatalogError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseInvalidPayload, ErrCauseMalformedHTML, ErrCauseNoStateIndex:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
