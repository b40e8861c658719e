package signer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// Well-known throwaway key (hardhat/anvil account #0).
const testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNewPrivKeySigner(t *testing.T) {
	s, err := NewPrivKeySigner(testPrivKeyHex)
	require.NoError(t, err)
	require.Equal(t,
		common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		s.Address(),
	)

	// 0x prefix is accepted.
	prefixed, err := NewPrivKeySigner("0x" + testPrivKeyHex)
	require.NoError(t, err)
	require.Equal(t, s.Address(), prefixed.Address())

	_, err = NewPrivKeySigner("not-a-key")
	require.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestPrivKeySigner_SignTx(t *testing.T) {
	s, err := NewPrivKeySigner(testPrivKeyHex)
	require.NoError(t, err)

	chainID := big.NewInt(1)
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     0,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
	})

	signedTx, err := s.SignTx(tx, chainID)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signedTx)
	require.NoError(t, err)
	require.Equal(t, s.Address(), sender)
}
