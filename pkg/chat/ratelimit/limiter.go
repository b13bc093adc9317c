// Package ratelimit provides the soft per-process call gate in front of
// the flow engine.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window gate. At the limit it waits until the oldest
// call leaves the window instead of rejecting; it is advisory throttling,
// not admission control.
type Limiter struct {
	mu       sync.Mutex
	limit    int
	interval time.Duration
	calls    []time.Time
}

// New creates a limiter allowing limit calls per interval. A limit <= 0
// disables the gate.
func New(limit int, interval time.Duration) *Limiter {
	return &Limiter{
		limit:    limit,
		interval: interval,
	}
}

// Wait blocks until a slot is available or ctx is done, then records the
// call. It returns ctx.Err() on cancellation, nil otherwise.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limit <= 0 {
		return nil
	}

	for {
		l.mu.Lock()
		now := time.Now()
		l.prune(now)
		if len(l.calls) < l.limit {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}
		wait := l.calls[0].Add(l.interval).Sub(now)
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Pending reports how many calls currently occupy the window.
func (l *Limiter) Pending() int {
	if l == nil || l.limit <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(time.Now())
	return len(l.calls)
}

func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.interval)
	i := 0
	for i < len(l.calls) && l.calls[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = l.calls[i:]
	}
}
