// Package signer provides implementations of the client.Signer capability.
// Key custody remains with the caller: the SDK never generates, stores, or
// transmits private keys.
package signer

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zunokit/zunogo/pkg/client"
)

var _ client.Signer = (*PrivKeySigner)(nil)

// PrivKeySigner signs transactions with a locally held secp256k1 private key.
type PrivKeySigner struct {
	privKey *ecdsa.PrivateKey
	addr    common.Address
}

// NewPrivKeySigner constructs a signer from a hex-encoded private key, with
// or without a 0x prefix.
func NewPrivKeySigner(hexKey string) (*PrivKeySigner, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")

	privKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, ErrInvalidPrivateKey.Wrap(err.Error())
	}

	return &PrivKeySigner{
		privKey: privKey,
		addr:    crypto.PubkeyToAddress(privKey.PublicKey),
	}, nil
}

// Address returns the account the signer signs for.
func (s *PrivKeySigner) Address() common.Address {
	return s.addr
}

// SignTx returns a signed copy of the given transaction using the latest
// signer supported on the given chain.
func (s *PrivKeySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.privKey)
	if err != nil {
		return nil, ErrSigning.Wrap(err.Error())
	}
	return signedTx, nil
}
