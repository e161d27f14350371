// Package executor wraps outbound calls to the generative service with
// timeout, retry, capped exponential backoff with jitter, and global rate
// limiting. It is content-agnostic: completion and vision payloads go through
// the same path.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultMaxRetries = 5
	DefaultTimeout    = 90 * time.Second

	baseDelay    = 2 * time.Second
	maxDelay     = 30 * time.Second
	maxJitter    = time.Second
	minCallSpace = 500 * time.Millisecond
)

// ProviderError is an HTTP-style failure from the external service.
type ProviderError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // server hint on 429, zero if absent
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the status code warrants another attempt.
func (e *ProviderError) Retryable() bool {
	switch e.StatusCode {
	case 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}

// CallFunc performs one attempt of the outbound call. It must honor ctx.
type CallFunc func(ctx context.Context) (any, error)

type Options struct {
	MaxRetries int
	Timeout    time.Duration
}

// Result is the typed outcome of an execution. Execute never panics and
// never returns an error directly; exhausted retries surface here.
type Result struct {
	Success  bool
	Data     any
	Err      error
	Attempts int
}

// RateLimiter enforces a minimum spacing between outbound calls across all
// callers in the process.
type RateLimiter struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
	now      func() time.Time
	sleep    func(time.Duration)
}

func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Wait sleeps out the remainder of the spacing interval, then claims the
// current slot. Concurrent callers are serialized by the internal lock.
func (r *RateLimiter) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.last.IsZero() {
		if elapsed := r.now().Sub(r.last); elapsed < r.interval {
			r.sleep(r.interval - elapsed)
		}
	}
	r.last = r.now()
}

type Executor struct {
	limiter *RateLimiter
	sleep   func(time.Duration)
	jitter  func() time.Duration
}

func New() *Executor {
	return &Executor{
		limiter: NewRateLimiter(minCallSpace),
		sleep:   time.Sleep,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		},
	}
}

// Backoff returns the non-jittered delay before retry attempt k (0-based):
// min(baseDelay * 2^k, maxDelay).
func Backoff(k int) time.Duration {
	d := baseDelay << uint(k)
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	return d
}

// Execute runs the call with retries. Retryable failures (429/5xx/529 and
// timeouts) are retried up to opts.MaxRetries times with backoff; any other
// provider error is fatal and returned immediately.
func (e *Executor) Execute(ctx context.Context, call CallFunc, opts Options) Result {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	var lastErr error
	var retryAfter time.Duration

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := Backoff(attempt-1) + e.jitter()
			if retryAfter > delay {
				delay = retryAfter
			}
			log.Printf("[executor] retrying in %v (attempt %d of %d): %v",
				delay.Round(time.Millisecond), attempt+1, opts.MaxRetries+1, lastErr)
			e.sleep(delay)
			retryAfter = 0
		}

		e.limiter.Wait()

		callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		data, err := call(callCtx)
		cancel()

		if err == nil {
			return Result{Success: true, Data: data, Attempts: attempt + 1}
		}
		lastErr = err

		var provErr *ProviderError
		switch {
		case errors.As(err, &provErr):
			if !provErr.Retryable() {
				return Result{Err: err, Attempts: attempt + 1}
			}
			retryAfter = provErr.RetryAfter
		case errors.Is(err, context.DeadlineExceeded):
			// Timeout: equivalent to a transient 5xx.
		case errors.Is(err, context.Canceled):
			return Result{Err: err, Attempts: attempt + 1}
		default:
			// Network-level failures are treated as transient.
		}
	}

	return Result{
		Err:      fmt.Errorf("exhausted %d attempts: %w", opts.MaxRetries+1, lastErr),
		Attempts: opts.MaxRetries + 1,
	}
}
