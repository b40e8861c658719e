// Package testchain provides hand-written fakes for the SDK's external
// collaborators: the EVM execution context and the contract metadata service.
package testchain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/zunokit/zunogo/pkg/client"
)

var _ client.ChainContext = (*Chain)(nil)

// Chain is a scripted, in-memory client.ChainContext. By default every
// broadcast transaction is immediately mined successfully; individual
// behaviors are overridden per test via the *Fn fields.
type Chain struct {
	mu sync.Mutex

	// ChainIDValue defaults to 31337.
	ChainIDValue *big.Int
	// Block is the current block number; bump it with AdvanceBlocks.
	Block uint64

	// Overrides. A nil field falls back to the default behavior.
	EstimateGasFn        func(call ethereum.CallMsg) (uint64, error)
	SendTransactionFn    func(tx *types.Transaction) error
	TransactionReceiptFn func(txHash common.Hash) (*types.Receipt, error)
	CallContractFn       func(call ethereum.CallMsg) ([]byte, error)
	PendingNonceFn       func(account common.Address) (uint64, error)

	// GasPrice and TipCap back SuggestGasPrice/SuggestGasTipCap.
	GasPrice *big.Int
	TipCap   *big.Int

	// EstimateGasValue is the default estimation result.
	EstimateGasValue uint64

	// Call counters.
	EstimateCalls int
	SendCalls     int
	ReceiptCalls  int

	// SentTxs records every broadcast transaction in order.
	SentTxs []*types.Transaction

	// receipts holds auto-mined receipts by tx hash.
	receipts map[common.Hash]*types.Receipt
}

// NewChain returns a Chain with defaults suitable for happy-path tests.
func NewChain() *Chain {
	return &Chain{
		ChainIDValue:     big.NewInt(31337),
		Block:            1,
		GasPrice:         big.NewInt(1_000_000_000),
		TipCap:           big.NewInt(100_000_000),
		EstimateGasValue: 100_000,
		receipts:         make(map[common.Hash]*types.Receipt),
	}
}

func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ChainIDValue, nil
}

func (c *Chain) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Block, nil
}

func (c *Chain) EstimateGas(_ context.Context, call ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	c.EstimateCalls++
	fn := c.EstimateGasFn
	value := c.EstimateGasValue
	c.mu.Unlock()

	if fn != nil {
		return fn(call)
	}
	return value, nil
}

func (c *Chain) SuggestGasPrice(context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.GasPrice, nil
}

func (c *Chain) SuggestGasTipCap(context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.TipCap, nil
}

func (c *Chain) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	fn := c.PendingNonceFn
	c.mu.Unlock()

	if fn != nil {
		return fn(account)
	}
	return 0, nil
}

// SendTransaction records the transaction and, unless overridden, mines a
// successful receipt for it at the current block.
func (c *Chain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	c.SendCalls++
	fn := c.SendTransactionFn
	c.mu.Unlock()

	if fn != nil {
		if err := fn(tx); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.SentTxs = append(c.SentTxs, tx)
	c.receipts[tx.Hash()] = &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     21_000,
		BlockNumber: new(big.Int).SetUint64(c.Block),
	}
	return nil
}

func (c *Chain) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	c.ReceiptCalls++
	fn := c.TransactionReceiptFn
	receipt := c.receipts[txHash]
	c.mu.Unlock()

	if fn != nil {
		return fn(txHash)
	}
	if receipt == nil {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (c *Chain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	fn := c.CallContractFn
	c.mu.Unlock()

	if fn != nil {
		return fn(call)
	}
	return nil, nil
}

// AdvanceBlocks bumps the current block number.
func (c *Chain) AdvanceBlocks(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Block += n
}

// SetReceipt scripts the receipt returned for the given hash.
func (c *Chain) SetReceipt(txHash common.Hash, receipt *types.Receipt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts[txHash] = receipt
}

// LastSentTx returns the most recently broadcast transaction, or nil.
func (c *Chain) LastSentTx() *types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.SentTxs) == 0 {
		return nil
	}
	return c.SentTxs[len(c.SentTxs)-1]
}
