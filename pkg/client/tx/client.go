// Package tx provides the transaction submitter: it packs contract calls,
// signs and broadcasts them, waits for confirmation, retries transient
// failures with capped exponential backoff, and records every attempt in the
// transaction ledger. Callers observe progress through callbacks, the event
// stream, or ledger subscriptions.
package tx

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"time"

	"cosmossdk.io/depinject"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/zunokit/zunogo/pkg/client"
	"github.com/zunokit/zunogo/pkg/ledger"
	"github.com/zunokit/zunogo/pkg/observable"
	"github.com/zunokit/zunogo/pkg/observable/channel"
	"github.com/zunokit/zunogo/pkg/retry"
)

var _ client.TxClient = (*txClient)(nil)

// eventsPublisher is the subset of the channel observable the client uses to
// fan out lifecycle events.
type eventsPublisher interface {
	observable.Observable[client.TxEvent]
	Publish(client.TxEvent)
}

// txClient implements the client.TxClient interface.
type txClient struct {
	// txLedger records every submission attempt. Required dependency.
	txLedger *ledger.Ledger

	maxRetries        int
	initialBackoff    time.Duration
	backoffMultiplier float64
	backoffCap        time.Duration
	gasBufferPercent  uint64
	confirmationDepth uint64
	confirmTimeout    time.Duration
	pollInterval      time.Duration

	// events fans out lifecycle notifications for all sends on this client.
	events eventsPublisher
}

// NewTxClient constructs a transaction submitter.
//
// Required dependencies:
//   - *ledger.Ledger
//
// Available options:
//   - WithDefaultMaxRetries
//   - WithBackoff
//   - WithGasBufferPercent
//   - WithConfirmationDepth
//   - WithConfirmTimeout
//   - WithReceiptPollInterval
func NewTxClient(deps depinject.Config, opts ...client.TxClientOption) (client.TxClient, error) {
	txc := &txClient{
		maxRetries:        DefaultMaxRetries,
		initialBackoff:    DefaultInitialBackoff,
		backoffMultiplier: DefaultBackoffMultiplier,
		backoffCap:        DefaultBackoffCap,
		gasBufferPercent:  DefaultGasBufferPercent,
		confirmationDepth: DefaultConfirmationDepth,
		confirmTimeout:    DefaultConfirmTimeout,
		pollInterval:      DefaultReceiptPollInterval,
		events:            channel.NewObservable[client.TxEvent](),
	}

	if err := depinject.Inject(deps, &txc.txLedger); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(txc)
	}

	if err := txc.validateConfig(); err != nil {
		return nil, err
	}

	return txc, nil
}

func (c *txClient) validateConfig() error {
	var err error
	if c.maxRetries < 0 {
		err = multierr.Append(err, ErrTxClientConfig.Wrap("max retries must not be negative"))
	}
	if c.backoffMultiplier < 1 {
		err = multierr.Append(err, ErrTxClientConfig.Wrap("backoff multiplier must be >= 1"))
	}
	if c.confirmationDepth == 0 {
		err = multierr.Append(err, ErrTxClientConfig.Wrap("confirmation depth must be positive"))
	}
	if c.confirmTimeout <= 0 {
		err = multierr.Append(err, ErrTxClientConfig.Wrap("confirm timeout must be positive"))
	}
	if c.pollInterval <= 0 {
		err = multierr.Append(err, ErrTxClientConfig.Wrap("receipt poll interval must be positive"))
	}
	return err
}

// Send builds, signs, broadcasts, and confirms a transaction invoking the
// given method, blocking until a terminal outcome.
//
// Unless WithCancellation is supplied, the submission detaches from the
// caller's cancellation once underway: a caller that stops waiting does not
// orphan an in-flight transaction, and the ledger records the real outcome.
func (c *txClient) Send(
	ctx context.Context,
	handle *client.ContractHandle,
	method string,
	args []any,
	opts ...client.SendOption,
) (*types.Receipt, error) {
	cfg := &client.SendConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	// Configuration failures are reported directly: nothing was broadcast,
	// so there is no ledger entry and nothing to retry.
	if handle == nil {
		return nil, failSend(cfg, ErrTxClientConfig.Wrap("contract handle is required"))
	}
	if err := validateSendConfig(cfg); err != nil {
		return nil, failSend(cfg, err)
	}

	chainCtx := handle.ChainContext()
	if chainCtx == nil {
		return nil, failSend(cfg, ErrTxClientConfig.Wrap("handle has no chain context bound"))
	}
	signer := handle.Signer()
	if signer == nil {
		return nil, failSend(cfg, ErrNoSigner.Wrapf("contract type %q", handle.ContractType()))
	}
	if _, ok := handle.Method(method); !ok {
		return nil, failSend(cfg, ErrUnknownMethod.Wrapf("%s.%s", handle.ContractType(), method))
	}

	calldata, err := handle.ABI().Pack(method, args...)
	if err != nil {
		return nil, failSend(cfg, ErrInvalidArgs.Wrapf("%s: %s", method, err))
	}

	logger := zerolog.Ctx(ctx).With().
		Str("method", method).
		Str("contract", handle.Address().Hex()).
		Str("network", handle.Network()).
		Logger()

	if !cfg.Cancellable {
		ctx = context.WithoutCancel(ctx)
	}
	ctx = logger.WithContext(ctx)

	maxRetries := c.maxRetries
	if cfg.MaxRetries != nil {
		maxRetries = *cfg.MaxRetries
	}
	policy := retry.Policy{
		MaxRetries:   maxRetries,
		InitialDelay: c.initialBackoff,
		Multiplier:   c.backoffMultiplier,
		Cap:          c.backoffCap,
	}

	// entryID is assigned at the first successful broadcast; lastHash tracks
	// the most recent broadcast identifier for retry and failure events.
	var (
		entryID  string
		lastHash string
	)

	attempt := func(ctx context.Context, attemptIndex int) (*types.Receipt, error) {
		// Parameters are rebuilt on every attempt: nonce, fees, and gas may
		// all have moved since the previous broadcast.
		signedTx, buildErr := c.buildAndSign(ctx, chainCtx, signer, handle, calldata, cfg)
		if buildErr != nil {
			return nil, buildErr
		}

		if sendErr := chainCtx.SendTransaction(ctx, signedTx); sendErr != nil {
			return nil, ErrBroadcast.Wrap(sendErr.Error())
		}

		hash := signedTx.Hash().Hex()
		lastHash = hash
		logger.Info().
			Str("tx_hash", hash).
			Int("attempt", attemptIndex+1).
			Msg("transaction broadcast")

		if entryID == "" {
			entryID = c.txLedger.Add(ledger.Entry{
				Hash:       hash,
				Action:     cfg.Action,
				Module:     cfg.Module,
				Status:     ledger.StatusPending,
				MaxRetries: maxRetries,
			})
			c.events.Publish(client.TxEvent{
				Type:    client.TxEventSent,
				EntryID: entryID,
				Hash:    hash,
			})
			if cfg.OnSent != nil {
				cfg.OnSent(hash)
			}
		} else if updateErr := c.txLedger.Update(entryID, ledger.EntryUpdate{Hash: &hash}); updateErr != nil {
			logger.Warn().Err(updateErr).Msg("failed to record rebroadcast hash")
		}

		receipt, waitErr := c.waitForConfirmation(ctx, chainCtx, signedTx.Hash())
		if waitErr != nil {
			return nil, waitErr
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			return nil, ErrTxReverted.Wrapf("hash: %s", hash)
		}
		return receipt, nil
	}

	onRetry := func(retryNumber int, attemptErr error) {
		if entryID != "" {
			if recordErr := c.txLedger.RecordRetry(entryID, attemptErr.Error(), ""); recordErr != nil {
				logger.Warn().Err(recordErr).Msg("failed to record retry attempt")
			}
		}
		c.events.Publish(client.TxEvent{
			Type:    client.TxEventRetrying,
			EntryID: entryID,
			Hash:    lastHash,
			Attempt: retryNumber,
			Err:     attemptErr,
		})
	}

	receipt, err := retry.Do(ctx, policy, attempt, onRetry)
	if err != nil {
		normalized := normalizeSendError(err, maxRetries)
		logger.Error().
			Err(normalized).
			Str("tx_hash", lastHash).
			Msg("transaction failed")

		if entryID != "" {
			if failErr := c.txLedger.RetryFailed(entryID, normalized.Error()); failErr != nil {
				logger.Warn().Err(failErr).Msg("failed to record terminal failure")
			}
		}
		c.events.Publish(client.TxEvent{
			Type:    client.TxEventFailed,
			EntryID: entryID,
			Hash:    lastHash,
			Err:     normalized,
		})
		if cfg.OnError != nil {
			cfg.OnError(normalized)
		}
		return nil, normalized
	}

	confirmedHash := receipt.TxHash.Hex()
	gasUsed := strconv.FormatUint(receipt.GasUsed, 10)
	logger.Info().
		Str("tx_hash", confirmedHash).
		Str("gas_used", gasUsed).
		Msg("transaction confirmed")

	if successErr := c.txLedger.RetrySuccess(entryID, confirmedHash, gasUsed); successErr != nil {
		logger.Warn().Err(successErr).Msg("failed to record confirmation")
	}
	c.events.Publish(client.TxEvent{
		Type:    client.TxEventConfirmed,
		EntryID: entryID,
		Hash:    confirmedHash,
		GasUsed: receipt.GasUsed,
	})
	if cfg.OnSuccess != nil {
		cfg.OnSuccess(receipt)
	}
	return receipt, nil
}

// failSend normalizes a pre-broadcast configuration error and routes it
// through the OnError hook for parity with in-flight failures. Nothing was
// broadcast, so no ledger entry is written.
func failSend(cfg *client.SendConfig, err error) error {
	normalized := &Error{Code: codeFor(err), Message: err.Error(), Cause: err}
	if cfg.OnError != nil {
		cfg.OnError(normalized)
	}
	return normalized
}

func validateSendConfig(cfg *client.SendConfig) error {
	var err error
	if cfg.Value != nil && cfg.Value.Sign() < 0 {
		err = multierr.Append(err, ErrTxClientConfig.Wrap("value must not be negative"))
	}
	if cfg.GasPrice != nil && (cfg.GasFeeCap != nil || cfg.GasTipCap != nil) {
		err = multierr.Append(err, ErrTxClientConfig.Wrap("gas price and fee caps are mutually exclusive"))
	}
	if cfg.MaxRetries != nil && *cfg.MaxRetries < 0 {
		err = multierr.Append(err, ErrTxClientConfig.Wrap("max retries must not be negative"))
	}
	return err
}

// buildAndSign assembles and signs one transaction attempt: nonce, gas limit
// (estimated with a safety buffer unless supplied), and fee parameters
// (EIP-1559 unless an explicit gas price forces a legacy transaction).
func (c *txClient) buildAndSign(
	ctx context.Context,
	chainCtx client.ChainContext,
	signer client.Signer,
	handle *client.ContractHandle,
	calldata []byte,
	cfg *client.SendConfig,
) (*types.Transaction, error) {
	logger := zerolog.Ctx(ctx)
	from := signer.Address()
	to := handle.Address()

	nonce := uint64(0)
	if cfg.Nonce != nil {
		nonce = *cfg.Nonce
	} else {
		pending, err := chainCtx.PendingNonceAt(ctx, from)
		if err != nil {
			return nil, ErrTxParams.Wrapf("fetching nonce: %s", err)
		}
		nonce = pending
	}

	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		estimate, err := chainCtx.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    &to,
			Value: cfg.Value,
			Data:  calldata,
		})
		if err != nil {
			// Estimation failures do not block the send; the node enforces
			// the real limit at execution time.
			logger.Warn().
				Err(err).
				Uint64("fallback_gas_limit", FallbackGasLimit).
				Msg("gas estimation failed, proceeding with fallback limit")
			gasLimit = FallbackGasLimit
		} else {
			gasLimit = estimate + estimate*c.gasBufferPercent/100
		}
	}

	chainID, err := chainCtx.ChainID(ctx)
	if err != nil {
		return nil, ErrTxParams.Wrapf("fetching chain id: %s", err)
	}

	var unsigned *types.Transaction
	if cfg.GasPrice != nil {
		unsigned = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: cfg.GasPrice,
			Gas:      gasLimit,
			To:       &to,
			Value:    cfg.Value,
			Data:     calldata,
		})
	} else {
		tipCap := cfg.GasTipCap
		if tipCap == nil {
			tipCap, err = chainCtx.SuggestGasTipCap(ctx)
			if err != nil {
				return nil, ErrTxParams.Wrapf("fetching gas tip cap: %s", err)
			}
		}
		feeCap := cfg.GasFeeCap
		if feeCap == nil {
			gasPrice, err := chainCtx.SuggestGasPrice(ctx)
			if err != nil {
				return nil, ErrTxParams.Wrapf("fetching gas price: %s", err)
			}
			// Headroom for base fee growth while the transaction is pending.
			feeCap = new(big.Int).Add(new(big.Int).Mul(gasPrice, big.NewInt(2)), tipCap)
		}
		unsigned = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tipCap,
			GasFeeCap: feeCap,
			Gas:       gasLimit,
			To:        &to,
			Value:     cfg.Value,
			Data:      calldata,
		})
	}

	signedTx, err := signer.SignTx(unsigned, chainID)
	if err != nil {
		return nil, ErrTxParams.Wrapf("signing: %s", err)
	}
	return signedTx, nil
}

// waitForConfirmation polls for the transaction's receipt until it is buried
// under the configured confirmation depth, the confirmation timeout elapses,
// or ctx is canceled.
func (c *txClient) waitForConfirmation(
	ctx context.Context,
	chainCtx client.ChainContext,
	txHash common.Hash,
) (*types.Receipt, error) {
	logger := zerolog.Ctx(ctx)
	deadline := time.Now().Add(c.confirmTimeout)

	for {
		receipt, err := chainCtx.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil && receipt != nil:
			if c.confirmationDepth <= 1 {
				return receipt, nil
			}
			head, headErr := chainCtx.BlockNumber(ctx)
			if headErr != nil {
				logger.Debug().Err(headErr).Msg("head lookup failed during confirmation wait")
			} else if receipt.BlockNumber != nil && head >= receipt.BlockNumber.Uint64() &&
				head-receipt.BlockNumber.Uint64()+1 >= c.confirmationDepth {
				return receipt, nil
			}
		case err != nil && !errors.Is(err, ethereum.NotFound):
			// Transient lookup failures do not abort the wait; the receipt
			// may still appear within the timeout.
			logger.Debug().Err(err).Msg("receipt lookup failed during confirmation wait")
		}

		if time.Now().After(deadline) {
			return nil, ErrTxTimeout.Wrapf("hash %s after %s", txHash.Hex(), c.confirmTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// Call invokes a read-only method and unpacks the result into result, which
// must be a pointer appropriate for the method's outputs. Passing a nil
// result discards the output.
func (c *txClient) Call(
	ctx context.Context,
	handle *client.ContractHandle,
	method string,
	args []any,
	result any,
) error {
	if handle == nil {
		return ErrCallFailed.Wrap("contract handle is required")
	}
	chainCtx := handle.ChainContext()
	if chainCtx == nil {
		return ErrCallFailed.Wrap("handle has no chain context bound")
	}
	if _, ok := handle.Method(method); !ok {
		return ErrUnknownMethod.Wrapf("%s.%s", handle.ContractType(), method)
	}

	calldata, err := handle.ABI().Pack(method, args...)
	if err != nil {
		return ErrInvalidArgs.Wrapf("%s: %s", method, err)
	}

	to := handle.Address()
	output, err := chainCtx.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: calldata,
	}, nil)
	if err != nil {
		return ErrCallFailed.Wrapf("%s: %s", method, err)
	}

	if result == nil {
		return nil
	}
	if err = handle.ABI().UnpackIntoInterface(result, method, output); err != nil {
		return ErrCallFailed.Wrapf("unpacking %s output: %s", method, err)
	}
	return nil
}

// EventsSequence returns the observable of lifecycle events for all sends on
// this client.
func (c *txClient) EventsSequence() observable.Observable[client.TxEvent] {
	return c.events
}

// Close unsubscribes all event observers. In-flight sends are unaffected.
func (c *txClient) Close() {
	c.events.UnsubscribeAll()
}
