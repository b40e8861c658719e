package cache

import "cosmossdk.io/errors"

const codespace = "cache"

var (
	ErrCacheConfigValidation = errors.Register(codespace, 1, "invalid cache config")
)
