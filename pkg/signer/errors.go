package signer

import (
	sdkerrors "cosmossdk.io/errors"
)

const codespace = "signer"

var (
	ErrInvalidPrivateKey = sdkerrors.Register(codespace, 1, "invalid private key")
	ErrSigning           = sdkerrors.Register(codespace, 2, "transaction signing failed")
)
