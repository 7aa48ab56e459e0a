package core

// limiter.go bounds how many submissions run their pipeline at once.
//
// When every slot is taken, StartSubmission waits up to maxWait for one to
// free up before failing with ErrTooManySubmissions. WaitForDrain blocks
// until all running pipelines have released their slot.

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrentSubmissions is the default limit for parallel pipelines.
const DefaultMaxConcurrentSubmissions = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 5 * time.Second

// SubmissionLimiter is a weighted semaphore with a bounded wait.
type SubmissionLimiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration
	active  atomic.Int64
}

// NewSubmissionLimiter allows at most maxConcurrent pipelines at a time.
func NewSubmissionLimiter(maxConcurrent int, maxWait time.Duration) *SubmissionLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSubmissions
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &SubmissionLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must Release it exactly once.
func (l *SubmissionLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManySubmissions
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *SubmissionLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *SubmissionLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of slots in use.
func (l *SubmissionLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *SubmissionLimiter) MaxConcurrent() int {
	return l.max
}

// Available returns the number of free slots.
func (l *SubmissionLimiter) Available() int {
	return l.max - l.ActiveCount()
}

// WaitForDrain blocks until every slot is free or ctx is done. Acquiring
// the full weight succeeds only once all holders have released.
func (l *SubmissionLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, int64(l.max)); err != nil {
		return err
	}
	l.sem.Release(int64(l.max))
	return nil
}

// LimiterStatus is a snapshot of the limiter for health output.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *SubmissionLimiter) Status() LimiterStatus {
	active := l.ActiveCount()
	return LimiterStatus{
		Active:        active,
		Available:     l.max - active,
		MaxConcurrent: l.max,
	}
}
