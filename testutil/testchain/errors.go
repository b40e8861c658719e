package testchain

import "errors"

// ErrNotRegistered is returned by Registry lookups for unknown contracts.
var ErrNotRegistered = errors.New("contract not registered")
