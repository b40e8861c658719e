package retry

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Classification is the verdict of Classify for a given error.
type Classification int

const (
	// ClassRetryable indicates a transient failure which may succeed when
	// reattempted (network hiccups, timeouts, transient node errors).
	ClassRetryable Classification = iota
	// ClassTerminal indicates a failure which will never succeed when
	// reattempted with the same inputs.
	ClassTerminal
)

// terminalSignatures is the fixed set of error message fragments which are
// classified as terminal. The list mirrors the failure modes an EVM node
// reports for conditions that a resubmission cannot fix.
var terminalSignatures = []string{
	"insufficient funds",
	"execution reverted",
	"invalid opcode",
	"out of gas",
	"nonce too high",
	"underpriced",
	"user rejected",
	"user denied",
}

// Classify reports whether err is terminal or retryable.
//
// A fixed set of error signatures (insufficient funds, reverted execution,
// invalid opcode, out of gas, nonce conflicts, underpriced fees, explicit user
// rejection) and anything wrapping ErrNonRetryable are terminal; every other
// error is considered transient and therefore retryable.
//
// Classify is a pure function: it has no side effects and does not depend on
// any state beyond its argument.
func Classify(err error) Classification {
	if err == nil {
		return ClassRetryable
	}

	if errors.Is(err, ErrNonRetryable) {
		return ClassTerminal
	}

	msg := strings.ToLower(err.Error())
	for _, signature := range terminalSignatures {
		if strings.Contains(msg, signature) {
			return ClassTerminal
		}
	}

	return ClassRetryable
}

// BackoffDelay computes the capped exponential backoff delay for the given
// zero-based attempt index:
//
//	min(initialDelay * multiplier^attemptIndex, cap)
//
// BackoffDelay is a pure function.
func BackoffDelay(
	attemptIndex int,
	initialDelay time.Duration,
	multiplier float64,
	capDelay time.Duration,
) time.Duration {
	if attemptIndex < 0 {
		attemptIndex = 0
	}

	delay := time.Duration(float64(initialDelay) * math.Pow(multiplier, float64(attemptIndex)))
	if capDelay > 0 && (delay > capDelay || delay <= 0) {
		delay = capDelay
	}
	return delay
}

// Policy bundles the retry decision parameters consulted by Do.
type Policy struct {
	// MaxRetries is the number of reattempts after the initial attempt.
	MaxRetries int
	// InitialDelay is the backoff delay before the first reattempt.
	InitialDelay time.Duration
	// Multiplier is the exponential backoff growth factor.
	Multiplier float64
	// Cap bounds the backoff delay. Zero disables the cap.
	Cap time.Duration
	// Classify overrides the default classification function when non-nil.
	Classify func(error) Classification
}

// DefaultPolicy mirrors the default retry behavior of the transaction
// submitter: 3 retries with 1s initial delay doubling up to 30s.
var DefaultPolicy = Policy{
	MaxRetries:   3,
	InitialDelay: time.Second,
	Multiplier:   2,
	Cap:          30 * time.Second,
}

// classify applies the policy's classification function, falling back to the
// package default.
func (p Policy) classify(err error) Classification {
	if p.Classify != nil {
		return p.Classify(err)
	}
	return Classify(err)
}

// delay computes the backoff delay for the given zero-based attempt index.
func (p Policy) delay(attemptIndex int) time.Duration {
	return BackoffDelay(attemptIndex, p.InitialDelay, p.Multiplier, p.Cap)
}
