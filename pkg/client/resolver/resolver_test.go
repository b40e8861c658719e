package resolver_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/depinject"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/zunokit/zunogo/pkg/client"
	"github.com/zunokit/zunogo/pkg/client/resolver"
	"github.com/zunokit/zunogo/testutil/testchain"
)

const (
	testNetwork     = "31337"
	testMarketplace = "marketplace"
	testAddressHex  = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	testABIJSON = `[
		{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"buy","outputs":[],"stateMutability":"payable","type":"function"},
		{"inputs":[],"name":"totalListings","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
	]`
)

func newTestResolver(t *testing.T, registry *testchain.Registry, opts ...resolver.ResolverOptionFn) client.ContractResolver {
	t.Helper()

	r, err := resolver.NewContractResolver(
		depinject.Supply(registry),
		opts...,
	)
	require.NoError(t, err)
	return r
}

func registerMarketplace(registry *testchain.Registry) {
	registry.Register(testMarketplace, testNetwork, client.Metadata{
		Address:    testAddressHex,
		ABIJSON:    testABIJSON,
		ABIVersion: "1.0.0",
	})
}

func TestResolver_CacheIdentity(t *testing.T) {
	registry := testchain.NewRegistry()
	registerMarketplace(registry)
	r := newTestResolver(t, registry)
	chain := testchain.NewChain()

	ctx := context.Background()
	handle1, err := r.Resolve(ctx, testMarketplace, testNetwork, chain)
	require.NoError(t, err)
	handle2, err := r.Resolve(ctx, testMarketplace, testNetwork, chain)
	require.NoError(t, err)

	require.Same(t, handle1, handle2, "repeated resolution must return the identical handle")
	require.Equal(t, 1, registry.MetadataCalls, "second resolution must be served from cache")

	require.Equal(t, common.HexToAddress(testAddressHex), handle1.Address())
	require.Equal(t, "1.0.0", handle1.ABIVersion())
	require.False(t, handle1.CanWrite())

	_, ok := handle1.Method("buy")
	require.True(t, ok)
	_, ok = handle1.Method("nope")
	require.False(t, ok)
}

func TestResolver_InvalidateForcesRefetch(t *testing.T) {
	registry := testchain.NewRegistry()
	registerMarketplace(registry)
	r := newTestResolver(t, registry)
	chain := testchain.NewChain()

	ctx := context.Background()
	handle1, err := r.Resolve(ctx, testMarketplace, testNetwork, chain)
	require.NoError(t, err)

	r.Invalidate(testMarketplace, testNetwork)

	handle2, err := r.Resolve(ctx, testMarketplace, testNetwork, chain)
	require.NoError(t, err)
	require.Equal(t, 2, registry.MetadataCalls, "invalidate must force a refetch")

	// Handle identity is keyed by (address, network) and survives ABI refetch.
	require.Same(t, handle1, handle2)
}

func TestResolver_ABITTLExpiry(t *testing.T) {
	registry := testchain.NewRegistry()
	registerMarketplace(registry)
	r := newTestResolver(t, registry, resolver.WithABITTL(30*time.Millisecond))
	chain := testchain.NewChain()

	ctx := context.Background()
	_, err := r.Resolve(ctx, testMarketplace, testNetwork, chain)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, err = r.Resolve(ctx, testMarketplace, testNetwork, chain)
	require.NoError(t, err)
	require.Equal(t, 2, registry.MetadataCalls, "expired ABI must be refetched")
}

func TestResolver_UnknownContractType(t *testing.T) {
	registry := testchain.NewRegistry()
	r := newTestResolver(t, registry)
	chain := testchain.NewChain()

	_, err := r.Resolve(context.Background(), "unknown", testNetwork, chain)
	require.ErrorIs(t, err, resolver.ErrResolution)
}

func TestResolver_InvalidAddress(t *testing.T) {
	registry := testchain.NewRegistry()
	registerMarketplace(registry)
	r := newTestResolver(t, registry)
	chain := testchain.NewChain()

	_, err := r.Resolve(
		context.Background(),
		testMarketplace, testNetwork, chain,
		resolver.WithAddress("0xNOTANADDRESS"),
	)
	require.ErrorIs(t, err, resolver.ErrInvalidAddress)
}

func TestResolver_MalformedABI(t *testing.T) {
	registry := testchain.NewRegistry()
	registry.Register(testMarketplace, testNetwork, client.Metadata{
		Address: testAddressHex,
		ABIJSON: `{"this is": "not an ABI"`,
	})
	r := newTestResolver(t, registry)
	chain := testchain.NewChain()

	_, err := r.Resolve(context.Background(), testMarketplace, testNetwork, chain)
	require.ErrorIs(t, err, resolver.ErrInvalidABI)
}

func TestResolver_ResolveByAddressUsesABILookup(t *testing.T) {
	registry := testchain.NewRegistry()
	registerMarketplace(registry)
	r := newTestResolver(t, registry)
	chain := testchain.NewChain()

	handle, err := r.Resolve(
		context.Background(),
		testMarketplace, testNetwork, chain,
		resolver.WithAddress(testAddressHex),
	)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(testAddressHex), handle.Address())
	require.Equal(t, 1, registry.ABICalls)
	require.Equal(t, 0, registry.MetadataCalls)
}

func TestResolver_SignerBindsHandleForWrites(t *testing.T) {
	registry := testchain.NewRegistry()
	registerMarketplace(registry)
	r := newTestResolver(t, registry)
	chain := testchain.NewChain()

	handle, err := r.Resolve(
		context.Background(),
		testMarketplace, testNetwork, chain,
		resolver.WithSigner(stubSigner{}),
	)
	require.NoError(t, err)
	require.True(t, handle.CanWrite())
}

func TestResolver_ConcurrentMissesCoalesce(t *testing.T) {
	registry := testchain.NewRegistry()
	registerMarketplace(registry)
	registry.Delay = 50 * time.Millisecond
	r := newTestResolver(t, registry)
	chain := testchain.NewChain()

	const callers = 8
	handles := make([]*client.ContractHandle, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handle, err := r.Resolve(context.Background(), testMarketplace, testNetwork, chain)
			require.NoError(t, err)
			handles[i] = handle
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, registry.MetadataCalls, "concurrent misses must share one fetch")
	for i := 1; i < callers; i++ {
		require.Same(t, handles[0], handles[i])
	}
}

func TestVerifyStandard_FirstMatchWins(t *testing.T) {
	registry := testchain.NewRegistry()
	r := newTestResolver(t, registry)
	address := common.HexToAddress(testAddressHex)

	erc721ID := [4]byte{0x80, 0xac, 0x58, 0xcd}
	erc1155ID := [4]byte{0xd9, 0xb6, 0x7a, 0x26}

	supportsOnly := func(ids ...[4]byte) func(ethereum.CallMsg) ([]byte, error) {
		return func(call ethereum.CallMsg) ([]byte, error) {
			for _, id := range ids {
				if len(call.Data) >= 8 && bytes.Equal(call.Data[4:8], id[:]) {
					return common.LeftPadBytes([]byte{1}, 32), nil
				}
			}
			return common.LeftPadBytes([]byte{0}, 32), nil
		}
	}

	tests := []struct {
		name     string
		callFn   func(ethereum.CallMsg) ([]byte, error)
		expected client.Standard
	}{
		{"erc721 only", supportsOnly(erc721ID), client.StandardERC721},
		{"erc1155 only", supportsOnly(erc1155ID), client.StandardERC1155},
		{"both match reports erc721 first", supportsOnly(erc721ID, erc1155ID), client.StandardERC721},
		{"none match", supportsOnly(), client.StandardUnknown},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			chain := testchain.NewChain()
			chain.CallContractFn = test.callFn

			standard, err := r.VerifyStandard(context.Background(), address, chain)
			require.NoError(t, err)
			require.Equal(t, test.expected, standard)
		})
	}
}

func TestVerifyStandard_RevertingContractIsUnknown(t *testing.T) {
	registry := testchain.NewRegistry()
	r := newTestResolver(t, registry)
	chain := testchain.NewChain()
	chain.CallContractFn = func(ethereum.CallMsg) ([]byte, error) {
		return nil, errors.New("execution reverted")
	}

	standard, err := r.VerifyStandard(context.Background(), common.HexToAddress(testAddressHex), chain)
	require.NoError(t, err)
	require.Equal(t, client.StandardUnknown, standard)
}

type stubSigner struct{}

func (stubSigner) Address() common.Address { return common.HexToAddress("0x1") }
func (stubSigner) SignTx(tx *types.Transaction, _ *big.Int) (*types.Transaction, error) {
	return tx, nil
}
