// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a per-path token bucket rate limiter.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

// New constructs a Limiter handing out buckets of the given
// requests-per-second rate and burst size. A non-positive rps disables
// limiting entirely — Allow always returns true.
func New(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(requestsPerSecond),
		burst:   burst,
	}
}

// Allow reports whether a request to path may proceed, consuming a
// token from that path's bucket if so.
func (l *Limiter) Allow(path string) bool {
	if l.rps <= 0 {
		return true
	}
	return l.bucketFor(path).Allow()
}

func (l *Limiter) bucketFor(path string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[path]
	if !ok {
		bucket = rate.NewLimiter(l.rps, l.burst)
		l.buckets[path] = bucket
	}
	return bucket
}
