package engine

import (
	"context"
	"errors"
	"time"

	"designengine/internal/llmclient"
	"designengine/internal/normalize"
	"designengine/internal/schema"
)

// RetryPolicy drives the bounded retry loop around one generation phase.
// It is independent of the generation backend so it can be tested alone.
type RetryPolicy struct {
	// MaxAttempts caps invocations per phase. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
	// AttemptTimeout bounds the wall clock of a single attempt. A deadline
	// hit counts as a retryable failure. Zero disables the per-attempt limit.
	AttemptTimeout time.Duration
	// Retryable decides which errors are absorbed by the loop. Nil means
	// DefaultRetryable. A non-retryable error surfaces immediately.
	Retryable func(error) bool
}

// DefaultMaxAttempts matches the pipeline's fixed retry budget.
const DefaultMaxAttempts = 5

// DefaultRetryPolicy returns the policy the engine uses unless configured
// otherwise: 5 attempts, short backoff, no per-attempt timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   300 * time.Millisecond,
	}
}

// DefaultRetryable absorbs schema violations, unexpected output shapes,
// malformed-request rejections, and per-attempt deadline hits. Everything
// else — state-store misuse, transport faults, cancellation — is fatal.
func DefaultRetryable(err error) bool {
	var ve *schema.ValidationError
	var ne *normalize.NormalizationError
	return errors.As(err, &ve) ||
		errors.As(err, &ne) ||
		llmclient.IsBadRequest(err) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn until it succeeds, a fatal error occurs, or the attempt budget
// is exhausted. fn receives the 1-based attempt number and the previous
// attempt's error so it can build a stricter retry prompt. Do returns the
// number of attempts made and, after exhaustion, the last error verbatim.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int, lastErr error) error) (int, error) {
	max := p.MaxAttempts
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}

	var last error
	for attempt := 1; attempt <= max; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		err := fn(attemptCtx, attempt, last)
		cancel()
		if err == nil {
			return attempt, nil
		}
		if !retryable(err) {
			return attempt, err
		}
		last = err
		if attempt == max {
			break
		}
		// Stop immediately if the caller's context is done.
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		default:
		}
		if p.BaseDelay > 0 {
			time.Sleep(p.BaseDelay * time.Duration(1<<(attempt-1)))
		}
	}
	return max, last
}
