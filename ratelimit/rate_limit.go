/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// RemainingUnknown is reported in Result.Remaining by limiters
// that cannot compute the number of remaining admissions cheaply.
const RemainingUnknown = -1

// Rate describes the frequency of requests.
type Rate struct {
	Count    int
	Duration time.Duration
}

// String returns a string representation of the rate ("100/m" style).
// Implements fmt.Stringer interface.
func (r Rate) String() string {
	if r.Count == 0 && r.Duration == 0 {
		return ""
	}
	var d string
	switch r.Duration {
	case time.Second:
		d = "s"
	case time.Minute:
		d = "m"
	case time.Hour:
		d = "h"
	default:
		d = r.Duration.String()
	}
	return fmt.Sprintf("%d/%s", r.Count, d)
}

// PerSecond makes a Rate of n requests per second.
func PerSecond(n int) Rate { return Rate{Count: n, Duration: time.Second} }

// PerMinute makes a Rate of n requests per minute.
func PerMinute(n int) Rate { return Rate{Count: n, Duration: time.Minute} }

// PerHour makes a Rate of n requests per hour.
func PerHour(n int) Rate { return Rate{Count: n, Duration: time.Hour} }

// Result is an admission decision. A denial is a value, not an error:
// Check returns a non-nil error only when the limiter itself is broken.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Remaining is the number of requests that could still be admitted
	// immediately for the same key, or RemainingUnknown.
	Remaining int

	// RetryAfter is a hint when Allowed is false: how long the caller should
	// wait before the next attempt has a chance to be admitted. Zero when Allowed.
	RetryAfter time.Duration
}

// Limiter is the admission-control contract.
// Implementations never block and are safe for concurrent use;
// checks on distinct keys do not contend with each other.
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
}

// IsAllowed is a boolean convenience wrapper over Limiter.Check.
// Limiter errors are treated as denials.
func IsAllowed(ctx context.Context, l Limiter, key string) bool {
	res, err := l.Check(ctx, key)
	if err != nil {
		return false
	}
	return res.Allowed
}

// Clock abstracts the time source for deterministic testing of
// refill and TTL computations.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock that uses time.Now.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }
