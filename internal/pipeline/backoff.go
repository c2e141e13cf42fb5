// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package pipeline

import (
	"math/rand/v2"
	"time"
)

// BackoffFunc returns the interval that follows a failed send.
type BackoffFunc func(interval time.Duration) time.Duration

// BackoffConfig parameterizes exponential backoff with positive jitter.
// Zero fields take the defaults: multiplier 2, jitter 0.1, limit 30s.
type BackoffConfig struct {
	Multiplier float64
	Jitter     float64
	Limit      time.Duration

	// NoJitter disables jitter regardless of Jitter.
	NoJitter bool

	// Rand returns a value in [0, 1). Default: math/rand/v2.
	Rand func() float64
}

// Func returns the backoff function described by c:
//
//	next = min(interval*multiplier, limit)
//	next += next * jitter * rand[0, 1)
func (c BackoffConfig) Func() BackoffFunc {
	multiplier := c.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}
	jitter := c.Jitter
	if jitter == 0 {
		jitter = 0.1
	}
	if c.NoJitter || jitter < 0 {
		jitter = 0
	}
	limit := c.Limit
	if limit <= 0 {
		limit = 30 * time.Second
	}
	random := c.Rand
	if random == nil {
		random = rand.Float64
	}

	return func(interval time.Duration) time.Duration {
		next := time.Duration(float64(interval) * multiplier)
		if next > limit || next < 0 {
			next = limit
		}
		if jitter > 0 {
			next += time.Duration(float64(next) * jitter * random())
		}
		return next
	}
}
