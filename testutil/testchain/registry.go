package testchain

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zunokit/zunogo/pkg/client"
)

var _ client.MetadataService = (*Registry)(nil)

// Registry is an in-memory client.MetadataService with call counters, used to
// assert the resolver's caching and miss-coalescing behavior.
type Registry struct {
	mu sync.Mutex

	// contracts maps contractType -> network -> metadata.
	contracts map[string]map[string]client.Metadata

	// Delay is applied to every lookup, widening race windows in
	// concurrency tests.
	Delay time.Duration

	MetadataCalls int
	ABICalls      int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		contracts: make(map[string]map[string]client.Metadata),
	}
}

// Register adds a contract deployment record.
func (r *Registry) Register(contractType, network string, md client.Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	networks, ok := r.contracts[contractType]
	if !ok {
		networks = make(map[string]client.Metadata)
		r.contracts[contractType] = networks
	}
	networks[network] = md
}

func (r *Registry) ContractMetadata(_ context.Context, contractType, network string) (client.Metadata, error) {
	r.mu.Lock()
	r.MetadataCalls++
	delay := r.Delay
	md, ok := r.contracts[contractType][network]
	r.mu.Unlock()

	time.Sleep(delay)

	if !ok {
		return client.Metadata{}, ErrNotRegistered
	}
	return md, nil
}

func (r *Registry) ABIByAddress(_ context.Context, address common.Address, network string) (string, error) {
	r.mu.Lock()
	r.ABICalls++
	delay := r.Delay
	var abiJSON string
	for _, networks := range r.contracts {
		if md, ok := networks[network]; ok &&
			strings.EqualFold(md.Address, address.Hex()) {
			abiJSON = md.ABIJSON
			break
		}
	}
	r.mu.Unlock()

	time.Sleep(delay)

	if abiJSON == "" {
		return "", ErrNotRegistered
	}
	return abiJSON, nil
}
