package ledger

import (
	sdkerrors "cosmossdk.io/errors"
)

const codespace = "ledger"

var (
	ErrEntryNotFound     = sdkerrors.Register(codespace, 1, "ledger entry not found")
	ErrInvalidTransition = sdkerrors.Register(codespace, 2, "invalid ledger entry transition")
	ErrRetriesExhausted  = sdkerrors.Register(codespace, 3, "entry retry budget exhausted")
)
