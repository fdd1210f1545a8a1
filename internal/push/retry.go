package push

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy shapes the delay between resend attempts after a reconnect or
// timeout.
type RetryPolicy struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	Jitter     bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:  250 * time.Millisecond,
		Multiplier: 2.0,
		MaxDelay:   5 * time.Second,
		Jitter:     true,
	}
}

// Delay returns the wait before attempt N (1-based). Attempt 1 always waits
// the base delay; jitter scales the result by 0.5x-1.5x.
func (rp RetryPolicy) Delay(attempt int, rng *rand.Rand) time.Duration {
	if rp.BaseDelay <= 0 {
		return 0
	}
	if attempt <= 1 {
		return rp.BaseDelay
	}
	multiplier := rp.Multiplier
	if multiplier < 1.0 {
		multiplier = 1.0
	}
	delay := float64(rp.BaseDelay) * math.Pow(multiplier, float64(attempt-1))
	if rp.MaxDelay > 0 && delay > float64(rp.MaxDelay) {
		delay = float64(rp.MaxDelay)
	}
	if rp.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}
