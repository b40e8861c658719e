package tx

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/zunokit/zunogo/pkg/client"
)

const (
	// DefaultMaxRetries is the number of reattempts after the initial attempt.
	DefaultMaxRetries = 3
	// DefaultInitialBackoff is the delay before the first reattempt.
	DefaultInitialBackoff = time.Second
	// DefaultBackoffMultiplier is the exponential backoff growth factor.
	DefaultBackoffMultiplier = 2.0
	// DefaultBackoffCap bounds the backoff delay.
	DefaultBackoffCap = 30 * time.Second
	// DefaultGasBufferPercent is the safety margin added to gas estimates.
	DefaultGasBufferPercent = 20
	// DefaultConfirmationDepth is the number of blocks a transaction's block
	// must be buried under before the send is considered confirmed.
	DefaultConfirmationDepth = 1
	// DefaultConfirmTimeout bounds the confirmation wait per attempt.
	DefaultConfirmTimeout = 2 * time.Minute
	// DefaultReceiptPollInterval is the delay between receipt lookups.
	DefaultReceiptPollInterval = 5 * time.Second
	// FallbackGasLimit is used when gas estimation fails and the caller did
	// not supply an explicit limit.
	FallbackGasLimit = 1_000_000
)

// WithDefaultMaxRetries sets the client-wide retry budget. Individual sends
// may override it via WithMaxRetries.
func WithDefaultMaxRetries(maxRetries int) client.TxClientOption {
	return func(txc client.TxClient) {
		txc.(*txClient).maxRetries = maxRetries
	}
}

// WithBackoff sets the capped exponential backoff parameters applied between
// send attempts.
func WithBackoff(initial time.Duration, multiplier float64, capDelay time.Duration) client.TxClientOption {
	return func(txc client.TxClient) {
		c := txc.(*txClient)
		c.initialBackoff = initial
		c.backoffMultiplier = multiplier
		c.backoffCap = capDelay
	}
}

// WithGasBufferPercent sets the safety margin added on top of gas estimates,
// as a percentage of the estimate.
func WithGasBufferPercent(percent uint64) client.TxClientOption {
	return func(txc client.TxClient) {
		txc.(*txClient).gasBufferPercent = percent
	}
}

// WithConfirmationDepth sets how many blocks must include or follow the
// transaction's block before the send is considered confirmed.
func WithConfirmationDepth(depth uint64) client.TxClientOption {
	return func(txc client.TxClient) {
		txc.(*txClient).confirmationDepth = depth
	}
}

// WithConfirmTimeout bounds how long a single attempt waits for its
// transaction to confirm before the attempt is treated as a transient
// failure.
func WithConfirmTimeout(timeout time.Duration) client.TxClientOption {
	return func(txc client.TxClient) {
		txc.(*txClient).confirmTimeout = timeout
	}
}

// WithReceiptPollInterval sets the delay between receipt lookups during the
// confirmation wait.
func WithReceiptPollInterval(interval time.Duration) client.TxClientOption {
	return func(txc client.TxClient) {
		txc.(*txClient).pollInterval = interval
	}
}

// WithValue attaches a native token amount to the call.
func WithValue(value *big.Int) client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.Value = value
	}
}

// WithGasLimit sets an explicit gas limit, skipping estimation.
func WithGasLimit(gasLimit uint64) client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.GasLimit = gasLimit
	}
}

// WithGasPrice forces a legacy transaction at the given gas price.
func WithGasPrice(gasPrice *big.Int) client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.GasPrice = gasPrice
	}
}

// WithFeeCaps sets explicit EIP-1559 fee parameters.
func WithFeeCaps(gasFeeCap, gasTipCap *big.Int) client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.GasFeeCap = gasFeeCap
		cfg.GasTipCap = gasTipCap
	}
}

// WithNonce overrides the pending sequence number lookup.
func WithNonce(nonce uint64) client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.Nonce = &nonce
	}
}

// WithAction labels the ledger entry with the business action being performed
// (e.g. "buy", "list", "cancel").
func WithAction(action string) client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.Action = action
	}
}

// WithModule labels the ledger entry with the originating module.
func WithModule(module string) client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.Module = module
	}
}

// WithMaxRetries overrides the client's retry budget for this send only.
func WithMaxRetries(maxRetries int) client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.MaxRetries = &maxRetries
	}
}

// WithOnSent registers a hook invoked once with the broadcast hash after the
// first successful broadcast.
func WithOnSent(onSent func(txHash string)) client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.OnSent = onSent
	}
}

// WithOnSuccess registers a hook invoked once with the receipt after
// confirmation.
func WithOnSuccess(onSuccess func(receipt *types.Receipt)) client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.OnSuccess = onSuccess
	}
}

// WithOnError registers a hook invoked once with the normalized error on
// terminal failure.
func WithOnError(onError func(err error)) client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.OnError = onError
	}
}

// WithCancellation ties the send's lifetime to the caller's context. Without
// it a send runs to its terminal state even if the caller stops waiting, so
// the ledger always records the real outcome.
func WithCancellation() client.SendOption {
	return func(cfg *client.SendConfig) {
		cfg.Cancellable = true
	}
}
