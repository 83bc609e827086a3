package timeutil

import (
	"math/rand"
	"testing"
	"time"
)

func TestMaxDuration(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		want      time.Duration
	}{
		{
			name:      "multiple values returns maximum",
			durations: []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 200 * time.Millisecond},
			want:      500 * time.Millisecond,
		},
		{
			name:      "single value returns that value",
			durations: []time.Duration{300 * time.Millisecond},
			want:      300 * time.Millisecond,
		},
		{
			name:      "empty slice returns zero",
			durations: []time.Duration{},
			want:      0,
		},
		{
			name:      "all negative returns least negative",
			durations: []time.Duration{-100 * time.Millisecond, -50 * time.Millisecond, -200 * time.Millisecond},
			want:      -50 * time.Millisecond,
		},
		{
			name:      "zero in mix returns positive max",
			durations: []time.Duration{0, 100 * time.Millisecond, 0},
			want:      100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDuration(tt.durations)
			if got != tt.want {
				t.Errorf("MaxDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeJitter(t *testing.T) {
	tests := []struct {
		name string
		max  time.Duration
		rng  *rand.Rand
	}{
		{name: "max=0 returns 0", max: 0, rng: rand.New(rand.NewSource(1))},
		{name: "negative max returns 0", max: -100 * time.Millisecond, rng: rand.New(rand.NewSource(1))},
		{name: "nil rng returns 0", max: time.Second, rng: nil},
		{name: "positive max returns value within range", max: 1000 * time.Millisecond, rng: rand.New(rand.NewSource(42))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeJitter(tt.max, tt.rng)

			if tt.max <= 0 || tt.rng == nil {
				if got != 0 {
					t.Errorf("ComputeJitter() = %v, want 0", got)
				}
				return
			}

			if got < 0 || got >= tt.max {
				t.Errorf("ComputeJitter() = %v, want in [0, %v)", got, tt.max)
			}
		})
	}
}

func TestExponentialBackoffDelay(t *testing.T) {
	tests := []struct {
		name         string
		backoffCount int
		backoffParam BackoffParam
		want         time.Duration
	}{
		{
			name:         "first backoff",
			backoffCount: 1,
			backoffParam: NewBackoffParam(1*time.Second, 2.0, 30*time.Second),
			want:         1 * time.Second,
		},
		{
			name:         "third backoff quadruples",
			backoffCount: 3,
			backoffParam: NewBackoffParam(1*time.Second, 2.0, 30*time.Second),
			want:         4 * time.Second,
		},
		{
			name:         "hits max cap",
			backoffCount: 10,
			backoffParam: NewBackoffParam(1*time.Second, 2.0, 10*time.Second),
			want:         10 * time.Second,
		},
		{
			name:         "zero count treated as first",
			backoffCount: 0,
			backoffParam: NewBackoffParam(1*time.Second, 2.0, 30*time.Second),
			want:         1 * time.Second,
		},
		{
			name:         "fractional multiplier",
			backoffCount: 2,
			backoffParam: NewBackoffParam(1*time.Second, 1.5, 30*time.Second),
			want:         1500 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExponentialBackoffDelay(tt.backoffCount, 0, rand.New(rand.NewSource(1)), tt.backoffParam)
			if got != tt.want {
				t.Errorf("ExponentialBackoffDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExponentialBackoffDelay_JitterBounds(t *testing.T) {
	jitter := 50 * time.Millisecond
	backoffParam := NewBackoffParam(1*time.Second, 2.0, 30*time.Second)
	rng := rand.New(rand.NewSource(42))

	base := 4 * time.Second // count=3

	for i := 0; i < 500; i++ {
		got := ExponentialBackoffDelay(3, jitter, rng, backoffParam)
		if got < base || got >= base+jitter {
			t.Fatalf("ExponentialBackoffDelay() = %v, want in [%v, %v)", got, base, base+jitter)
		}
	}
}

func TestBackoffParam_Delay(t *testing.T) {
	backoffParam := NewBackoffParam(200*time.Millisecond, 2.0, 5*time.Second)

	tests := []struct {
		count int
		want  time.Duration
	}{
		{count: 0, want: 200 * time.Millisecond},
		{count: 1, want: 200 * time.Millisecond},
		{count: 2, want: 400 * time.Millisecond},
		{count: 5, want: 3200 * time.Millisecond},
		{count: 6, want: 5 * time.Second},
		{count: 20, want: 5 * time.Second},
	}

	for _, tt := range tests {
		if got := backoffParam.Delay(tt.count); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}

	uncapped := NewBackoffParam(time.Second, 3.0, 0)
	if got := uncapped.Delay(3); got != 9*time.Second {
		t.Errorf("uncapped Delay(3) = %v, want 9s", got)
	}
}
