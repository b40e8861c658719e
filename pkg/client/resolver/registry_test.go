package resolver_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/zunokit/zunogo/pkg/client/resolver"
)

const testRegistryJSON = `{
	"contracts": {
		"marketplace": {
			"abiVersion": "2.1.0",
			"abi": [{"inputs":[],"name":"totalListings","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}],
			"networks": {
				"1": "0x5FbDB2315678afecb367f032d93F642f64180aa3",
				"137": "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
			}
		}
	}
}`

func TestStaticRegistry_ContractMetadata(t *testing.T) {
	registry, err := resolver.NewStaticRegistry([]byte(testRegistryJSON))
	require.NoError(t, err)

	md, err := registry.ContractMetadata(context.Background(), "marketplace", "1")
	require.NoError(t, err)
	require.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", md.Address)
	require.Equal(t, "2.1.0", md.ABIVersion)
	require.Contains(t, md.ABIJSON, "totalListings")

	_, err = registry.ContractMetadata(context.Background(), "auctions", "1")
	require.ErrorIs(t, err, resolver.ErrResolution)

	_, err = registry.ContractMetadata(context.Background(), "marketplace", "42161")
	require.ErrorIs(t, err, resolver.ErrResolution)
}

func TestStaticRegistry_ABIByAddress(t *testing.T) {
	registry, err := resolver.NewStaticRegistry([]byte(testRegistryJSON))
	require.NoError(t, err)

	// Address matching is case-insensitive.
	abiJSON, err := registry.ABIByAddress(
		context.Background(),
		common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3"),
		"1",
	)
	require.NoError(t, err)
	require.Contains(t, abiJSON, "totalListings")

	_, err = registry.ABIByAddress(
		context.Background(),
		common.HexToAddress("0x000000000000000000000000000000000000dEaD"),
		"1",
	)
	require.ErrorIs(t, err, resolver.ErrResolution)
}

func TestStaticRegistry_InvalidDocuments(t *testing.T) {
	_, err := resolver.NewStaticRegistry([]byte(`{"contracts": `))
	require.ErrorIs(t, err, resolver.ErrInvalidRegistry)

	_, err = resolver.NewStaticRegistry([]byte(`{"no_contracts": {}}`))
	require.ErrorIs(t, err, resolver.ErrInvalidRegistry)
}
