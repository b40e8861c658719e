package retry

import (
	sdkerrors "cosmossdk.io/errors"
)

const codespace = "retry"

var (
	// ErrNonRetryable marks an error as terminal regardless of its message.
	// Wrapping any error with ErrNonRetryable makes Classify report it as
	// ClassTerminal.
	ErrNonRetryable = sdkerrors.Register(codespace, 1, "non-retryable error")
)
