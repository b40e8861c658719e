package retry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// WorkFn is a fallible operation executed under a retry Policy. attemptIndex
// is zero-based and increments on every invocation.
type WorkFn[T any] func(ctx context.Context, attemptIndex int) (T, error)

// OnRetryFn is invoked after an attempt fails retryably and before the
// backoff sleep. retryNumber is one-based.
type OnRetryFn func(retryNumber int, err error)

// Do executes workFn repeatedly until it succeeds, fails terminally, exhausts
// the policy's retry budget, or ctx is canceled. The backoff sleep between
// attempts is the only suspension point and is context-aware.
//
// The zero-based attempt index passed to workFn doubles as the backoff
// exponent, so the first reattempt waits policy.InitialDelay, the second
// InitialDelay*Multiplier, and so on up to policy.Cap.
//
// Returns the result of the last attempt and the error which stopped the
// loop, or the successful result and nil.
func Do[T any](
	ctx context.Context,
	policy Policy,
	workFn WorkFn[T],
	onRetry OnRetryFn,
) (T, error) {
	logger := zerolog.Ctx(ctx)

	var (
		result T
		err    error
	)
	for attemptIndex := 0; ; attemptIndex++ {
		result, err = workFn(ctx, attemptIndex)
		if err == nil {
			return result, nil
		}

		if policy.classify(err) == ClassTerminal {
			return result, err
		}

		if attemptIndex >= policy.MaxRetries {
			return result, err
		}

		if onRetry != nil {
			onRetry(attemptIndex+1, err)
		}

		delay := policy.delay(attemptIndex)
		logger.Error().
			Err(err).
			Int("retry", attemptIndex+1).
			Dur("backoff", delay).
			Msg("retrying after transient failure")

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return result, sleepErr
		}
	}
}

// sleep blocks for the given duration or until ctx is done, whichever comes
// first, returning ctx.Err() in the latter case.
func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
