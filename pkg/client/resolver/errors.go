package resolver

import (
	sdkerrors "cosmossdk.io/errors"
)

const codespace = "resolver"

var (
	// ErrResolution indicates that no address or ABI could be found for the
	// requested contract. Resolution failures are never retried.
	ErrResolution = sdkerrors.Register(codespace, 1, "unable to resolve contract")
	// ErrInvalidABI indicates a malformed ABI payload.
	ErrInvalidABI = sdkerrors.Register(codespace, 2, "invalid contract ABI")
	// ErrInvalidAddress indicates a malformed address string.
	ErrInvalidAddress = sdkerrors.Register(codespace, 3, "invalid contract address")
	// ErrInvalidRegistry indicates a malformed registry document.
	ErrInvalidRegistry = sdkerrors.Register(codespace, 4, "invalid contract registry document")
	// ErrResolverConfig indicates an invalid resolver configuration.
	ErrResolverConfig = sdkerrors.Register(codespace, 5, "invalid resolver config")
)
