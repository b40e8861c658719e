// Package client defines the interfaces and shared types which the zunogo
// SDK components implement and depend on. Concrete implementations live in
// the subpackages (client/resolver, client/tx) and in pkg/signer; keeping the
// interfaces here lets collaborators depend on behavior rather than on each
// other.
package client

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/zunokit/zunogo/pkg/observable"
)

// ChainContext is the execution-context capability set required from an EVM
// network connection. It is satisfied by *ethclient.Client, so any go-ethereum
// RPC client can back the SDK directly; tests substitute a fake.
type ChainContext interface {
	// ChainID returns the network's chain identifier, used for signing.
	ChainID(ctx context.Context) (*big.Int, error)
	// BlockNumber returns the most recent block number.
	BlockNumber(ctx context.Context) (uint64, error)
	// EstimateGas estimates the cost of executing the given call.
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	// SuggestGasPrice returns the suggested legacy gas price.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	// SuggestGasTipCap returns the suggested EIP-1559 priority fee.
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	// PendingNonceAt returns the next sequence number for the given account,
	// including pending transactions.
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	// SendTransaction broadcasts a signed transaction to the network.
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	// TransactionReceipt returns the receipt of a mined transaction, or
	// ethereum.NotFound while it is still pending.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	// CallContract executes a read-only contract call at the given block
	// (nil for latest).
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Metadata is a contract registry record: where a contract of a given type is
// deployed on a given network, and the ABI to talk to it.
type Metadata struct {
	// Address is the deployment address, as a 0x-prefixed hex string.
	Address string
	// ABIJSON is the contract's ABI document.
	ABIJSON string
	// ABIVersion identifies the ABI revision, when the registry tracks one.
	ABIVersion string
}

// MetadataService resolves contract deployment metadata. The production
// implementation is an external registry service; resolver.StaticRegistry
// provides an in-process implementation backed by a JSON document.
type MetadataService interface {
	// ContractMetadata returns the deployment metadata for the given contract
	// type on the given network.
	ContractMetadata(ctx context.Context, contractType, network string) (Metadata, error)
	// ABIByAddress returns the ABI for the contract deployed at the given
	// address on the given network.
	ABIByAddress(ctx context.Context, address common.Address, network string) (string, error)
}

// Signer is the externally supplied signing capability which binds a contract
// handle for write calls. Key custody stays with the implementation.
type Signer interface {
	// Address returns the account the signer signs for.
	Address() common.Address
	// SignTx returns a signed copy of the given transaction.
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// ContractResolver maps a logical contract identifier to a callable handle,
// caching ABIs (per contract type and network, with TTL) and handles (per
// address and network, by identity).
type ContractResolver interface {
	// Resolve returns the handle for the given contract type on the given
	// network. When no address is supplied via ResolveOption, it is looked up
	// through the MetadataService. Repeated resolutions for the same
	// (address, network) return the identical handle instance.
	Resolve(
		ctx context.Context,
		contractType, network string,
		chainCtx ChainContext,
		opts ...ResolveOption,
	) (*ContractHandle, error)
	// VerifyStandard probes the contract at the given address for known token
	// standards in a fixed order and returns the first match, or
	// StandardUnknown when none match.
	VerifyStandard(ctx context.Context, address common.Address, chainCtx ChainContext) (Standard, error)
	// Invalidate drops the cached ABI for the given contract type and network.
	Invalidate(contractType, network string)
	// InvalidateAll drops all cached ABIs and handles.
	InvalidateAll()
}

// TxClient submits state-changing contract calls and reads contract state.
type TxClient interface {
	// Send builds, signs, broadcasts, and confirms a transaction invoking the
	// given method, retrying transient failures with capped exponential
	// backoff. It blocks until a terminal outcome and records every attempt
	// in the transaction ledger.
	Send(
		ctx context.Context,
		handle *ContractHandle,
		method string,
		args []any,
		opts ...SendOption,
	) (*types.Receipt, error)
	// Call invokes a read-only method and unpacks the result into result.
	// No ledger entry is written and no retries are performed.
	Call(
		ctx context.Context,
		handle *ContractHandle,
		method string,
		args []any,
		result any,
	) error
	// EventsSequence returns an observable of transaction lifecycle events
	// (sent, retrying, confirmed, failed) across all sends on this client.
	EventsSequence() observable.Observable[TxEvent]
	// Close releases the client's event subscriptions.
	Close()
}

// TxClientOption configures a TxClient at construction time.
type TxClientOption func(TxClient)

// ResolveOption configures a single Resolve invocation.
type ResolveOption func(*ResolveConfig)

// ResolveConfig collects per-resolution overrides.
type ResolveConfig struct {
	// Address, when non-empty, skips the metadata address lookup. It must be
	// a valid 0x-prefixed hex address.
	Address string
	// Signer, when non-nil, binds the handle for write calls.
	Signer Signer
}

// SendOption configures a single Send invocation.
type SendOption func(*SendConfig)

// SendConfig collects per-send parameters and notification hooks.
type SendConfig struct {
	// Value is the native token amount to attach to the call.
	Value *big.Int
	// GasLimit, when non-zero, skips gas estimation.
	GasLimit uint64
	// GasPrice, when non-nil, forces a legacy transaction.
	GasPrice *big.Int
	// GasFeeCap and GasTipCap, when non-nil, force an EIP-1559 transaction.
	GasFeeCap *big.Int
	GasTipCap *big.Int
	// Nonce, when non-nil, overrides the pending sequence number lookup.
	Nonce *uint64
	// Action and Module label the ledger entry for observers.
	Action string
	Module string
	// MaxRetries, when non-nil, overrides the client's retry budget.
	MaxRetries *int
	// OnSent is invoked once with the broadcast hash after the first
	// successful broadcast.
	OnSent func(txHash string)
	// OnSuccess is invoked once with the receipt after confirmation.
	OnSuccess func(receipt *types.Receipt)
	// OnError is invoked once with the normalized error on terminal failure.
	OnError func(err error)
	// Cancellable, when true, aborts the retry loop when the caller's context
	// is canceled. By default a send runs to its terminal state even if the
	// caller stops waiting.
	Cancellable bool
}
