package tx

import (
	"context"
	"errors"
	"fmt"

	sdkerrors "cosmossdk.io/errors"
	"github.com/zunokit/zunogo/pkg/retry"
)

const codespace = "tx"

var (
	// ErrTxClientConfig indicates an invalid client construction or send
	// configuration. Never retried.
	ErrTxClientConfig = sdkerrors.Register(codespace, 1, "invalid tx client config")
	// ErrNoSigner indicates a write call on a handle with no signing
	// capability bound. Never retried.
	ErrNoSigner = sdkerrors.Register(codespace, 2, "handle has no signer bound")
	// ErrUnknownMethod indicates a method name absent from the handle's ABI
	// method registry. Never retried.
	ErrUnknownMethod = sdkerrors.Register(codespace, 3, "unknown contract method")
	// ErrInvalidArgs indicates arguments which cannot be encoded against the
	// method's ABI signature. Never retried.
	ErrInvalidArgs = sdkerrors.Register(codespace, 4, "invalid call arguments")
	// ErrTxParams indicates a failure gathering transaction parameters
	// (nonce, fees, chain id). Classified by the retry policy.
	ErrTxParams = sdkerrors.Register(codespace, 5, "failed to build transaction parameters")
	// ErrBroadcast indicates a failed transaction broadcast. Classified by
	// the retry policy.
	ErrBroadcast = sdkerrors.Register(codespace, 6, "transaction broadcast failed")
	// ErrTxTimeout indicates the confirmation wait exceeded its budget.
	// Retryable.
	ErrTxTimeout = sdkerrors.Register(codespace, 7, "transaction confirmation timed out")
	// ErrTxReverted indicates the transaction was mined but its execution
	// reverted. Terminal.
	ErrTxReverted = sdkerrors.Register(codespace, 8, "transaction execution reverted")
	// ErrRetriesExhausted indicates the retry budget was spent without a
	// confirmation.
	ErrRetriesExhausted = sdkerrors.Register(codespace, 9, "transaction retries exhausted")
	// ErrCallFailed wraps any read-only call failure. Never retried.
	ErrCallFailed = sdkerrors.Register(codespace, 10, "contract call failed")
)

// Error is the normalized error shape surfaced by Send: a machine-readable
// code, a human message, and the original cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause so errors.Is matching against the registered
// sentinels keeps working on normalized errors.
func (e *Error) Unwrap() error {
	return e.Cause
}

// AsError extracts the normalized *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var txErr *Error
	ok := errors.As(err, &txErr)
	return txErr, ok
}

// errorCodes maps registered sentinels to their machine-readable codes, in
// match order.
var errorCodes = []struct {
	sentinel *sdkerrors.Error
	code     string
}{
	{ErrNoSigner, "NO_SIGNER"},
	{ErrUnknownMethod, "UNKNOWN_METHOD"},
	{ErrInvalidArgs, "INVALID_ARGS"},
	{ErrTxClientConfig, "INVALID_CONFIG"},
	{ErrRetriesExhausted, "RETRIES_EXHAUSTED"},
	{ErrTxTimeout, "CONFIRMATION_TIMEOUT"},
	{ErrTxReverted, "REVERTED"},
	{ErrBroadcast, "BROADCAST_FAILED"},
	{ErrTxParams, "TX_PARAMS_FAILED"},
	{ErrCallFailed, "CALL_FAILED"},
}

// normalizeSendError converts the error which stopped a send's retry loop
// into the single normalized shape callers receive. A retryable error
// reaching this point means the retry budget was exhausted.
func normalizeSendError(err error, maxRetries int) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: "CANCELED", Message: err.Error(), Cause: err}
	}

	if retry.Classify(err) == retry.ClassRetryable {
		err = ErrRetriesExhausted.Wrapf("after %d retries: %s", maxRetries, err)
	}

	return &Error{
		Code:    codeFor(err),
		Message: err.Error(),
		Cause:   err,
	}
}

// codeFor maps err to its machine-readable code.
func codeFor(err error) string {
	for _, mapping := range errorCodes {
		if errors.Is(err, mapping.sentinel) {
			return mapping.code
		}
	}
	return "TRANSACTION_FAILED"
}
