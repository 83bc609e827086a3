package retry

import (
	"time"

	"github.com/rohmanhakim/nps-explorer/pkg/timeutil"
)

// RetryParam is built from config once and handed to every fetch collaborator.
// BaseDelay is the politeness delay owned by the limiter; Retry itself waits
// BackoffParam.Delay(attempt) plus up to Jitter between attempts.
type RetryParam struct {
	BaseDelay    time.Duration
	Jitter       time.Duration
	RandomSeed   int64
	MaxAttempts  int
	BackoffParam timeutil.BackoffParam
}

func NewRetryParam(
	baseDelay time.Duration,
	jitter time.Duration,
	randomSeed int64,
	maxAttempts int,
	backoffParam timeutil.BackoffParam,
) RetryParam {
	return RetryParam{
		BaseDelay:    baseDelay,
		Jitter:       jitter,
		RandomSeed:   randomSeed,
		MaxAttempts:  maxAttempts,
		BackoffParam: backoffParam,
	}
}
