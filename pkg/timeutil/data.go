package timeutil

import (
	"math"
	"time"
)

// BackoffParam describes a capped exponential backoff.
// With the defaults (200ms, x2, 5s cap) the delays run 200ms, 400ms, 800ms ... 5s.
type BackoffParam struct {
	initialDuration time.Duration
	multiplier      float64
	maxDuration     time.Duration
}

func NewBackoffParam(
	initialDuration time.Duration,
	multiplier float64,
	maxDuration time.Duration,
) BackoffParam {
	return BackoffParam{
		initialDuration: initialDuration,
		multiplier:      multiplier,
		maxDuration:     maxDuration,
	}
}

func (b BackoffParam) InitialDuration() time.Duration {
	return b.initialDuration
}

func (b BackoffParam) Multiplier() float64 {
	return b.multiplier
}

func (b BackoffParam) MaxDuration() time.Duration {
	return b.maxDuration
}

// Delay is initial * multiplier^(count-1) without jitter, capped at the maximum
// when one is set. Counts below 1 are treated as 1.
func (b BackoffParam) Delay(count int) time.Duration {
	if count < 1 {
		count = 1
	}
	delay := float64(b.initialDuration) * math.Pow(b.multiplier, float64(count-1))
	if maxDuration := float64(b.maxDuration); maxDuration > 0 && delay > maxDuration {
		delay = maxDuration
	}
	return time.Duration(delay)
}
