package utils

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NewBackOff returns an exponential back-off for feed fetches. It gives up
// after maxElapsed so a periodic caller can try again on its next tick.
func NewBackOff(initial, maxInterval, maxElapsed time.Duration, clock backoff.Clock) *backoff.ExponentialBackOff {
	if clock == nil {
		clock = backoff.SystemClock
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         maxInterval,
		MaxElapsedTime:      maxElapsed,
		Stop:                backoff.Stop,
		Clock:               clock,
	}
	b.Reset()
	return b
}
