package redissub

import (
	"math/rand"
	"time"
)

const (
	// maxBackoffDelay caps the growth of reconnect delays
	maxBackoffDelay = 64 * time.Second

	// backoffJitterRange bounds the random spread added to each delay
	backoffJitterRange = time.Second
)

// backoffDelay calculates the reconnect delay for the given attempt number.
//
// Formula: min(attempt*attempt seconds, 64s) + jitter
// - attempt is 1-indexed (attempt 1 = first retry)
// - jitter is a uniformly random value in [0, 1s)
// - attempt <= 0 is treated as attempt 1
func backoffDelay(attempt int) time.Duration {
	return backoffBase(attempt) + backoffJitter()
}

// backoffBase returns the deterministic part of the reconnect delay
func backoffBase(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	delay := time.Duration(attempt) * time.Duration(attempt) * time.Second
	if delay > maxBackoffDelay || delay < 0 {
		delay = maxBackoffDelay
	}
	return delay
}

// backoffJitter returns a uniformly random duration in [0, backoffJitterRange)
func backoffJitter() time.Duration {
	return time.Duration(rand.Int63n(int64(backoffJitterRange)))
}
