package resolver

import (
	"time"

	"github.com/zunokit/zunogo/pkg/client"
)

// DefaultABITTL is the time-to-live of cached ABI payloads.
const DefaultABITTL = 10 * time.Minute

// ResolverOptionFn configures a resolver at construction time.
type ResolverOptionFn func(*contractResolver)

// WithABITTL sets the time-to-live of cached ABI payloads. Zero disables
// expiry.
func WithABITTL(ttl time.Duration) ResolverOptionFn {
	return func(r *contractResolver) {
		r.abiTTL = ttl
	}
}

// WithAddress supplies the deployment address directly, skipping the metadata
// service address lookup. The address must be a valid 0x-prefixed hex string.
func WithAddress(address string) client.ResolveOption {
	return func(cfg *client.ResolveConfig) {
		cfg.Address = address
	}
}

// WithSigner binds the resolved handle for write calls.
func WithSigner(s client.Signer) client.ResolveOption {
	return func(cfg *client.ResolveConfig) {
		cfg.Signer = s
	}
}
