package tx_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/depinject"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zunokit/zunogo/pkg/client"
	"github.com/zunokit/zunogo/pkg/client/tx"
	"github.com/zunokit/zunogo/pkg/ledger"
	"github.com/zunokit/zunogo/pkg/observable"
	"github.com/zunokit/zunogo/pkg/signer"
	"github.com/zunokit/zunogo/testutil/testchain"
)

const (
	testContractHex = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

	// Well-known hardhat/anvil development key #0.
	testPrivKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	testABIJSON = `[
		{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"buy","outputs":[],"stateMutability":"payable","type":"function"},
		{"inputs":[],"name":"totalListings","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
	]`
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, txLedger *ledger.Ledger, opts ...client.TxClientOption) client.TxClient {
	t.Helper()

	base := []client.TxClientOption{
		tx.WithBackoff(time.Millisecond, 2, 10*time.Millisecond),
		tx.WithConfirmTimeout(50 * time.Millisecond),
		tx.WithReceiptPollInterval(2 * time.Millisecond),
	}
	txc, err := tx.NewTxClient(depinject.Supply(txLedger), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(txc.Close)
	return txc
}

func newTestSigner(t *testing.T) *signer.PrivKeySigner {
	t.Helper()

	s, err := signer.NewPrivKeySigner(testPrivKeyHex)
	require.NoError(t, err)
	return s
}

func newTestHandle(t *testing.T, chainCtx client.ChainContext, s client.Signer) *client.ContractHandle {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(testABIJSON))
	require.NoError(t, err)
	return client.NewContractHandle(
		"marketplace", "31337",
		common.HexToAddress(testContractHex),
		"1.0.0", parsed, chainCtx, s,
	)
}

// nextEvent reads one lifecycle event from the observer, failing the test if
// none arrives promptly.
func nextEvent(t *testing.T, observer observable.Observer[client.TxEvent]) client.TxEvent {
	t.Helper()

	select {
	case event, ok := <-observer.Ch():
		require.True(t, ok, "event channel closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tx event")
		return client.TxEvent{}
	}
}

func TestSend_HappyPath(t *testing.T) {
	chain := testchain.NewChain()
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	ctx := context.Background()
	observer := txc.EventsSequence().Subscribe(ctx)
	defer observer.Unsubscribe()

	var sentHash string
	var gotReceipt *types.Receipt
	receipt, err := txc.Send(ctx, handle, "buy", []any{big.NewInt(1)},
		tx.WithValue(big.NewInt(1_000)),
		tx.WithAction("buy"),
		tx.WithModule("marketplace"),
		tx.WithOnSent(func(hash string) { sentHash = hash }),
		tx.WithOnSuccess(func(r *types.Receipt) { gotReceipt = r }),
	)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.Equal(t, 1, chain.SendCalls)
	require.Equal(t, receipt.TxHash.Hex(), sentHash)
	require.Same(t, receipt, gotReceipt)

	entries := txLedger.GetAll()
	require.Len(t, entries, 1)
	entry := entries[0]
	require.Equal(t, ledger.StatusSuccess, entry.Status)
	require.Equal(t, "buy", entry.Action)
	require.Equal(t, "marketplace", entry.Module)
	require.Equal(t, receipt.TxHash.Hex(), entry.Hash)
	require.Equal(t, "21000", entry.GasUsed)
	require.Zero(t, entry.RetryCount)
	require.False(t, entry.CanRetry)

	sent := nextEvent(t, observer)
	require.Equal(t, client.TxEventSent, sent.Type)
	require.Equal(t, entry.ID, sent.EntryID)

	confirmed := nextEvent(t, observer)
	require.Equal(t, client.TxEventConfirmed, confirmed.Type)
	require.Equal(t, entry.ID, confirmed.EntryID)
	require.Equal(t, uint64(21_000), confirmed.GasUsed)
}

func TestSend_InsufficientFundsIsTerminal(t *testing.T) {
	chain := testchain.NewChain()
	chain.SendTransactionFn = func(*types.Transaction) error {
		return errors.New("insufficient funds for gas * price + value")
	}
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	ctx := context.Background()
	observer := txc.EventsSequence().Subscribe(ctx)
	defer observer.Unsubscribe()

	var hookErr error
	_, err := txc.Send(ctx, handle, "buy", []any{big.NewInt(1)},
		tx.WithOnError(func(e error) { hookErr = e }),
	)
	require.Error(t, err)
	require.ErrorIs(t, err, tx.ErrBroadcast)
	require.Equal(t, err, hookErr)

	txErr, ok := tx.AsError(err)
	require.True(t, ok)
	require.Equal(t, "BROADCAST_FAILED", txErr.Code)
	require.Contains(t, txErr.Message, "insufficient funds")

	// A single attempt, no retries, and nothing was broadcast, so the ledger
	// stays empty.
	require.Equal(t, 1, chain.SendCalls)
	require.Empty(t, txLedger.GetAll())

	failed := nextEvent(t, observer)
	require.Equal(t, client.TxEventFailed, failed.Type)
	require.Empty(t, failed.EntryID)
}

func TestSend_RetriesBroadcastAfterTransientFailure(t *testing.T) {
	chain := testchain.NewChain()
	failures := 2
	chain.SendTransactionFn = func(*types.Transaction) error {
		if failures > 0 {
			failures--
			return errors.New("connection reset by peer")
		}
		return nil
	}
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	receipt, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)})
	require.NoError(t, err)
	require.Equal(t, 3, chain.SendCalls)

	// The entry is created at the first successful broadcast, so the failed
	// broadcasts leave no retry history on it.
	entries := txLedger.GetAll()
	require.Len(t, entries, 1)
	require.Equal(t, ledger.StatusSuccess, entries[0].Status)
	require.Equal(t, receipt.TxHash.Hex(), entries[0].Hash)
	require.Zero(t, entries[0].RetryCount)
}

func TestSend_RetriesAfterConfirmationTimeout(t *testing.T) {
	chain := testchain.NewChain()
	chain.TransactionReceiptFn = func(txHash common.Hash) (*types.Receipt, error) {
		// The first attempt never confirms; the rebroadcast does.
		if chain.SendCalls < 2 {
			return nil, ethereum.NotFound
		}
		return &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			TxHash:      txHash,
			GasUsed:     21_000,
			BlockNumber: big.NewInt(1),
		}, nil
	}
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	ctx := context.Background()
	observer := txc.EventsSequence().Subscribe(ctx)
	defer observer.Unsubscribe()

	_, err := txc.Send(ctx, handle, "buy", []any{big.NewInt(1)})
	require.NoError(t, err)
	require.Equal(t, 2, chain.SendCalls)

	entries := txLedger.GetAll()
	require.Len(t, entries, 1)
	entry := entries[0]
	require.Equal(t, ledger.StatusSuccess, entry.Status)
	require.Equal(t, 1, entry.RetryCount)
	require.Len(t, entry.PreviousAttempts, 1)
	require.Contains(t, entry.PreviousAttempts[0].Error, "confirmation timed out")

	require.Equal(t, client.TxEventSent, nextEvent(t, observer).Type)
	retrying := nextEvent(t, observer)
	require.Equal(t, client.TxEventRetrying, retrying.Type)
	require.Equal(t, entry.ID, retrying.EntryID)
	require.Equal(t, 1, retrying.Attempt)
	require.Equal(t, client.TxEventConfirmed, nextEvent(t, observer).Type)
}

func TestSend_RevertedIsTerminal(t *testing.T) {
	chain := testchain.NewChain()
	chain.TransactionReceiptFn = func(txHash common.Hash) (*types.Receipt, error) {
		return &types.Receipt{
			Status:      types.ReceiptStatusFailed,
			TxHash:      txHash,
			BlockNumber: big.NewInt(1),
		}, nil
	}
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	_, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)})
	require.ErrorIs(t, err, tx.ErrTxReverted)
	require.Equal(t, 1, chain.SendCalls, "reverted execution must not be retried")

	txErr, ok := tx.AsError(err)
	require.True(t, ok)
	require.Equal(t, "REVERTED", txErr.Code)

	entries := txLedger.GetAll()
	require.Len(t, entries, 1)
	require.Equal(t, ledger.StatusFailed, entries[0].Status)
	require.Zero(t, entries[0].RetryCount)
	require.True(t, entries[0].CanRetry, "budget remains for a manual retry")
}

func TestSend_RetriesExhausted(t *testing.T) {
	chain := testchain.NewChain()
	chain.TransactionReceiptFn = func(common.Hash) (*types.Receipt, error) {
		return nil, ethereum.NotFound
	}
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	_, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)},
		tx.WithMaxRetries(2),
	)
	require.ErrorIs(t, err, tx.ErrRetriesExhausted)
	require.ErrorIs(t, err, tx.ErrTxTimeout)
	require.Equal(t, 3, chain.SendCalls)

	txErr, ok := tx.AsError(err)
	require.True(t, ok)
	require.Equal(t, "RETRIES_EXHAUSTED", txErr.Code)

	entries := txLedger.GetAll()
	require.Len(t, entries, 1)
	entry := entries[0]
	require.Equal(t, ledger.StatusFailed, entry.Status)
	require.Equal(t, 2, entry.RetryCount)
	require.Equal(t, 2, entry.MaxRetries)
	require.Len(t, entry.PreviousAttempts, 2)
	require.False(t, entry.CanRetry)
	require.Empty(t, txLedger.GetFailedRetryable())
}

func TestSend_NoSigner(t *testing.T) {
	chain := testchain.NewChain()
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, nil)

	var hookErr error
	_, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)},
		tx.WithOnError(func(e error) { hookErr = e }),
	)
	require.ErrorIs(t, err, tx.ErrNoSigner)
	require.Equal(t, err, hookErr)

	txErr, ok := tx.AsError(err)
	require.True(t, ok)
	require.Equal(t, "NO_SIGNER", txErr.Code)

	require.Zero(t, chain.SendCalls)
	require.Empty(t, txLedger.GetAll())
}

func TestSend_UnknownMethod(t *testing.T) {
	chain := testchain.NewChain()
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	_, err := txc.Send(context.Background(), handle, "burn", []any{big.NewInt(1)})
	require.ErrorIs(t, err, tx.ErrUnknownMethod)
	require.Zero(t, chain.SendCalls)
}

func TestSend_InvalidArgs(t *testing.T) {
	chain := testchain.NewChain()
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	_, err := txc.Send(context.Background(), handle, "buy", []any{"not a uint256"})
	require.ErrorIs(t, err, tx.ErrInvalidArgs)
	require.Zero(t, chain.SendCalls)
}

func TestSend_GasEstimateGetsBuffer(t *testing.T) {
	chain := testchain.NewChain()
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	_, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)})
	require.NoError(t, err)

	// 100_000 estimate + 20% buffer.
	require.Equal(t, uint64(120_000), chain.LastSentTx().Gas())
}

func TestSend_EstimationFailureProceeds(t *testing.T) {
	chain := testchain.NewChain()
	chain.EstimateGasFn = func(ethereum.CallMsg) (uint64, error) {
		return 0, errors.New("node temporarily unavailable")
	}
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	_, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)})
	require.NoError(t, err)
	require.Equal(t, uint64(tx.FallbackGasLimit), chain.LastSentTx().Gas())
}

func TestSend_ExplicitGasLimitSkipsEstimation(t *testing.T) {
	chain := testchain.NewChain()
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	_, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)},
		tx.WithGasLimit(300_000),
	)
	require.NoError(t, err)
	require.Zero(t, chain.EstimateCalls)
	require.Equal(t, uint64(300_000), chain.LastSentTx().Gas())
}

func TestSend_FeeParameters(t *testing.T) {
	t.Run("defaults to dynamic fees", func(t *testing.T) {
		chain := testchain.NewChain()
		txLedger := ledger.New()
		defer txLedger.Close()
		txc := newTestClient(t, txLedger)
		handle := newTestHandle(t, chain, newTestSigner(t))

		_, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)})
		require.NoError(t, err)

		sent := chain.LastSentTx()
		require.Equal(t, uint8(types.DynamicFeeTxType), sent.Type())
		require.Zero(t, chain.TipCap.Cmp(sent.GasTipCap()))
		// fee cap = 2 * suggested gas price + tip.
		wantFeeCap := new(big.Int).Add(new(big.Int).Mul(chain.GasPrice, big.NewInt(2)), chain.TipCap)
		require.Zero(t, wantFeeCap.Cmp(sent.GasFeeCap()))
	})

	t.Run("explicit gas price forces legacy", func(t *testing.T) {
		chain := testchain.NewChain()
		txLedger := ledger.New()
		defer txLedger.Close()
		txc := newTestClient(t, txLedger)
		handle := newTestHandle(t, chain, newTestSigner(t))

		gasPrice := big.NewInt(5_000_000_000)
		_, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)},
			tx.WithGasPrice(gasPrice),
		)
		require.NoError(t, err)

		sent := chain.LastSentTx()
		require.Equal(t, uint8(types.LegacyTxType), sent.Type())
		require.Zero(t, gasPrice.Cmp(sent.GasPrice()))
	})

	t.Run("gas price and fee caps are mutually exclusive", func(t *testing.T) {
		chain := testchain.NewChain()
		txLedger := ledger.New()
		defer txLedger.Close()
		txc := newTestClient(t, txLedger)
		handle := newTestHandle(t, chain, newTestSigner(t))

		_, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)},
			tx.WithGasPrice(big.NewInt(1)),
			tx.WithFeeCaps(big.NewInt(2), big.NewInt(1)),
		)
		require.ErrorIs(t, err, tx.ErrTxClientConfig)
		require.Zero(t, chain.SendCalls)
	})
}

func TestSend_NonceOverride(t *testing.T) {
	chain := testchain.NewChain()
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	_, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)},
		tx.WithNonce(7),
	)
	require.NoError(t, err)
	require.Equal(t, uint64(7), chain.LastSentTx().Nonce())
}

func TestSend_DetachedFromCallerContext(t *testing.T) {
	chain := testchain.NewChain()
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// By default a send runs to its terminal state even though the caller's
	// context is already canceled.
	receipt, err := txc.Send(ctx, handle, "buy", []any{big.NewInt(1)})
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
}

func TestSend_CancellableAbortsOnContext(t *testing.T) {
	chain := testchain.NewChain()
	chain.TransactionReceiptFn = func(common.Hash) (*types.Receipt, error) {
		return nil, ethereum.NotFound
	}
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, newTestSigner(t))

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(10*time.Millisecond, cancel)
	defer timer.Stop()
	defer cancel()

	_, err := txc.Send(ctx, handle, "buy", []any{big.NewInt(1)},
		tx.WithCancellation(),
	)
	require.ErrorIs(t, err, context.Canceled)

	txErr, ok := tx.AsError(err)
	require.True(t, ok)
	require.Equal(t, "CANCELED", txErr.Code)
}

func TestSend_ConfirmationDepth(t *testing.T) {
	chain := testchain.NewChain()
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger,
		tx.WithConfirmationDepth(2),
		tx.WithConfirmTimeout(time.Second),
	)
	handle := newTestHandle(t, chain, newTestSigner(t))

	done := make(chan error, 1)
	go func() {
		_, err := txc.Send(context.Background(), handle, "buy", []any{big.NewInt(1)})
		done <- err
	}()

	// The receipt lands at block 1; one more block is needed before the send
	// is considered confirmed.
	time.Sleep(20 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("send completed before confirmation depth was reached: %v", err)
	default:
	}

	chain.AdvanceBlocks(1)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("send did not complete after confirmation depth was reached")
	}
}

func TestNewTxClient_ConfigValidation(t *testing.T) {
	txLedger := ledger.New()
	defer txLedger.Close()

	_, err := tx.NewTxClient(
		depinject.Supply(txLedger),
		tx.WithBackoff(time.Millisecond, 0.5, time.Second),
		tx.WithDefaultMaxRetries(-1),
	)
	require.ErrorIs(t, err, tx.ErrTxClientConfig)
	require.Contains(t, err.Error(), "backoff multiplier")
	require.Contains(t, err.Error(), "max retries")
}

func TestCall_UnpacksResult(t *testing.T) {
	chain := testchain.NewChain()
	chain.CallContractFn = func(call ethereum.CallMsg) ([]byte, error) {
		return common.LeftPadBytes(big.NewInt(42).Bytes(), 32), nil
	}
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, nil)

	var total *big.Int
	err := txc.Call(context.Background(), handle, "totalListings", nil, &total)
	require.NoError(t, err)
	require.Equal(t, int64(42), total.Int64())

	// Reads never touch the ledger.
	require.Empty(t, txLedger.GetAll())
}

func TestCall_Failures(t *testing.T) {
	chain := testchain.NewChain()
	txLedger := ledger.New()
	defer txLedger.Close()
	txc := newTestClient(t, txLedger)
	handle := newTestHandle(t, chain, nil)

	var out *big.Int
	err := txc.Call(context.Background(), handle, "nope", nil, &out)
	require.ErrorIs(t, err, tx.ErrUnknownMethod)

	chain.CallContractFn = func(ethereum.CallMsg) ([]byte, error) {
		return nil, errors.New("execution reverted")
	}
	err = txc.Call(context.Background(), handle, "totalListings", nil, &out)
	require.ErrorIs(t, err, tx.ErrCallFailed)
}
