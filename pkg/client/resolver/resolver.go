// Package resolver maps logical contract identifiers to callable handles.
// ABI payloads are cached per (contractType, network) with a TTL; handles are
// cached per (address, network) so that all callers share one instance and
// can compare handles by pointer identity.
package resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/depinject"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/zunokit/zunogo/pkg/cache"
	"github.com/zunokit/zunogo/pkg/cache/memory"
	"github.com/zunokit/zunogo/pkg/client"
)

var _ client.ContractResolver = (*contractResolver)(nil)

// abiRecord is a cached ABI payload together with the deployment metadata it
// was fetched with.
type abiRecord struct {
	parsed  abi.ABI
	address string
	version string
}

// contractResolver implements client.ContractResolver.
type contractResolver struct {
	// metadataService supplies addresses and ABI payloads for contracts the
	// caller identifies only by type.
	metadataService client.MetadataService

	abiTTL   time.Duration
	abiCache cache.KeyValueCache[abiRecord]

	// handleMu serializes handle creation so that at most one handle exists
	// per (address, network) key at a time.
	handleMu    sync.Mutex
	handleCache cache.KeyValueCache[*client.ContractHandle]

	// fetchGroup coalesces concurrent ABI cache misses for the same key into
	// a single in-flight metadata fetch.
	fetchGroup singleflight.Group
}

// NewContractResolver constructs a resolver using the given dependencies and
// options.
//
// Required dependencies:
//   - client.MetadataService
//
// Available options:
//   - WithABITTL
func NewContractResolver(
	deps depinject.Config,
	opts ...ResolverOptionFn,
) (client.ContractResolver, error) {
	r := &contractResolver{
		abiTTL: DefaultABITTL,
	}

	if err := depinject.Inject(
		deps,
		&r.metadataService,
	); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(r)
	}

	abiCache, err := memory.NewKeyValueCache[abiRecord](memory.WithTTL(r.abiTTL))
	if err != nil {
		return nil, ErrResolverConfig.Wrap(err.Error())
	}
	handleCache, err := memory.NewKeyValueCache[*client.ContractHandle]()
	if err != nil {
		return nil, ErrResolverConfig.Wrap(err.Error())
	}

	r.abiCache = abiCache
	r.handleCache = handleCache

	return r, nil
}

// Resolve returns the callable handle for the given contract type on the
// given network. When no address is supplied, it is looked up from the
// metadata service; lookup failures are terminal (never retried).
func (r *contractResolver) Resolve(
	ctx context.Context,
	contractType, network string,
	chainCtx client.ChainContext,
	opts ...client.ResolveOption,
) (*client.ContractHandle, error) {
	if contractType == "" || network == "" {
		return nil, ErrResolution.Wrap("contract type and network are required")
	}
	if chainCtx == nil {
		return nil, ErrResolverConfig.Wrap("chain context is required")
	}

	cfg := &client.ResolveConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var (
		address     common.Address
		haveAddress bool
	)
	if cfg.Address != "" {
		if !common.IsHexAddress(cfg.Address) {
			return nil, ErrInvalidAddress.Wrapf("%q", cfg.Address)
		}
		address = common.HexToAddress(cfg.Address)
		haveAddress = true

		// Fast path: a handle already bound to this address.
		if handle, ok := r.handleCache.Get(handleCacheKey(address, network)); ok {
			return handle, nil
		}
	}

	record, err := r.getABI(ctx, contractType, network, address, haveAddress)
	if err != nil {
		return nil, err
	}

	if !haveAddress {
		if record.address == "" {
			return nil, ErrResolution.Wrapf("no deployment address for %s on network %s", contractType, network)
		}
		if !common.IsHexAddress(record.address) {
			return nil, ErrInvalidAddress.Wrapf("%q (from metadata service)", record.address)
		}
		address = common.HexToAddress(record.address)
	}

	// Serialize handle creation: at most one handle may exist per
	// (address, network) key, and repeated resolutions must return it.
	r.handleMu.Lock()
	defer r.handleMu.Unlock()

	key := handleCacheKey(address, network)
	if handle, ok := r.handleCache.Get(key); ok {
		return handle, nil
	}

	handle := client.NewContractHandle(
		contractType,
		network,
		address,
		record.version,
		record.parsed,
		chainCtx,
		cfg.Signer,
	)
	r.handleCache.Set(key, handle)

	zerolog.Ctx(ctx).Debug().
		Str("contract_type", contractType).
		Str("network", network).
		Str("address", address.Hex()).
		Msg("resolved new contract handle")

	return handle, nil
}

// getABI returns the cached ABI record for the key, fetching and parsing it
// on a miss. Concurrent misses for the same key share one fetch.
func (r *contractResolver) getABI(
	ctx context.Context,
	contractType, network string,
	address common.Address,
	haveAddress bool,
) (abiRecord, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("contract_type", contractType).
		Str("network", network).
		Logger()

	key := abiCacheKey(contractType, network)
	if record, ok := r.abiCache.Get(key); ok {
		logger.Debug().Msg("ABI cache hit")
		return record, nil
	}
	logger.Debug().Msg("ABI cache miss")

	value, err, _ := r.fetchGroup.Do(key, func() (any, error) {
		// A concurrent fetch may have populated the cache while this caller
		// waited for the flight slot.
		if record, ok := r.abiCache.Get(key); ok {
			return record, nil
		}

		record, fetchErr := r.fetchABI(ctx, contractType, network, address, haveAddress)
		if fetchErr != nil {
			return abiRecord{}, fetchErr
		}

		r.abiCache.Set(key, record)
		return record, nil
	})
	if err != nil {
		return abiRecord{}, err
	}
	return value.(abiRecord), nil
}

// fetchABI retrieves and parses contract metadata from the metadata service.
func (r *contractResolver) fetchABI(
	ctx context.Context,
	contractType, network string,
	address common.Address,
	haveAddress bool,
) (abiRecord, error) {
	var md client.Metadata
	if haveAddress {
		abiJSON, err := r.metadataService.ABIByAddress(ctx, address, network)
		if err != nil {
			return abiRecord{}, ErrResolution.Wrapf(
				"fetching ABI for %s on network %s: %s", address.Hex(), network, err,
			)
		}
		md = client.Metadata{Address: address.Hex(), ABIJSON: abiJSON}
	} else {
		var err error
		md, err = r.metadataService.ContractMetadata(ctx, contractType, network)
		if err != nil {
			return abiRecord{}, ErrResolution.Wrapf(
				"fetching metadata for %s on network %s: %s", contractType, network, err,
			)
		}
	}

	if md.ABIJSON == "" {
		return abiRecord{}, ErrResolution.Wrapf(
			"empty ABI for %s on network %s", contractType, network,
		)
	}

	parsed, err := abi.JSON(strings.NewReader(md.ABIJSON))
	if err != nil {
		return abiRecord{}, ErrInvalidABI.Wrap(err.Error())
	}

	return abiRecord{
		parsed:  parsed,
		address: md.Address,
		version: md.ABIVersion,
	}, nil
}

// Invalidate drops the cached ABI for the given contract type and network,
// forcing the next resolution to refetch it.
func (r *contractResolver) Invalidate(contractType, network string) {
	r.abiCache.Delete(abiCacheKey(contractType, network))
}

// InvalidateAll drops all cached ABIs and handles.
func (r *contractResolver) InvalidateAll() {
	r.abiCache.Clear()

	r.handleMu.Lock()
	defer r.handleMu.Unlock()
	r.handleCache.Clear()
}

func abiCacheKey(contractType, network string) string {
	return contractType + "/" + network
}

func handleCacheKey(address common.Address, network string) string {
	return strings.ToLower(address.Hex()) + "/" + network
}
