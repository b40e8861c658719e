package sdk

import sdkerrors "cosmossdk.io/errors"

const codespace = "sdk"

var (
	// ErrSDKConfig indicates an invalid or incomplete SDK configuration.
	ErrSDKConfig = sdkerrors.Register(codespace, 1, "invalid sdk config")
	// ErrSDKDial indicates the RPC endpoint could not be dialed.
	ErrSDKDial = sdkerrors.Register(codespace, 2, "failed to dial rpc endpoint")
)
