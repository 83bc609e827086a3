package geosearch

import (
	"fmt"

	"github.com/rohmanhakim/nps-explorer/internal/metadata"
	"github.com/rohmanhakim/nps-explorer/pkg/failure"
)

type SearchErrorCause string

const (
	ErrCauseMissingAPIKey   SearchErrorCause = "missing api key"
	ErrCauseInvalidQuery    SearchErrorCause = "invalid query"
	ErrCauseNetworkFailure  SearchErrorCause = "network issues"
	ErrCauseTimeout         SearchErrorCause = "timeout"
	ErrCauseUnauthorized    SearchErrorCause = "unauthorized"
	ErrCauseTooManyRequests SearchErrorCause = "too many requests"
	ErrCauseServerError     SearchErrorCause = "5xx"
	ErrCauseClientError     SearchErrorCause = "client error"
	ErrCauseInvalidResponse SearchErrorCause = "invalid response"
	ErrCauseAPIStatus       SearchErrorCause = "api status"
)

type SearchError struct {
	Message   string
	Retryable bool
	Cause     SearchErrorCause
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("geosearch error: %s: %s", e.Cause, e.Message)
}

func (e *SearchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *SearchError) IsRetryable() bool {
	return e.Retryable
}

// mapSearchErrorToMetadataCause is observational only.
func mapSearchErrorToMetadataCause(err *SearchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNetworkFailure, ErrCauseTimeout, ErrCauseServerError:
		return metadata.CauseNetworkFailure
	case ErrCauseMissingAPIKey, ErrCauseUnauthorized, ErrCauseTooManyRequests, ErrCauseAPIStatus:
		return metadata.CausePolicyDisallow
	case ErrCauseInvalidResponse:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
