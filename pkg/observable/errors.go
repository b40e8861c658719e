package observable

import (
	sdkerrors "cosmossdk.io/errors"
)

const codespace = "observable"

var (
	ErrObserverClosed = sdkerrors.Register(codespace, 1, "observer is closed")
)
