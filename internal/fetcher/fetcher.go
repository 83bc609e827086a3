package fetcher

import (
	"context"

	"github.com/rohmanhakim/nps-explorer/pkg/failure"
	"github.com/rohmanhakim/nps-explorer/pkg/retry"
)

// Fetcher retrieves one HTML page. A non-nil error means no usable body: the
// catalog caches only successful results, so a failure is never stored.
type Fetcher interface {
	Fetch(
		ctx context.Context,
		fetchParam FetchParam,
		retryParam retry.RetryParam,
	) (FetchResult, failure.ClassifiedError)
}
