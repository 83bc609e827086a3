package gateway

import (
	"fmt"

	"github.com/rohmanhakim/nps-explorer/pkg/failure"
)

// GatewayError reports a fetched payload that could not be stored.
// The payload is lost for this call; the underlying store may still hold it.
type GatewayError struct {
	Key string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error: store %q: %v", e.Key, e.Err)
}

func (e *GatewayError) Severity() failure.Severity {
	if failure.IsRecoverable(e.Err) {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
