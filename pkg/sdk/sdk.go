// Package sdk is the front door of the zunogo SDK: one constructor wiring the
// contract resolver, transaction submitter, and transaction ledger together,
// for consumers that do not want to assemble the components through depinject
// themselves.
package sdk

import (
	"context"

	"cosmossdk.io/depinject"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/zunokit/zunogo/pkg/client"
	"github.com/zunokit/zunogo/pkg/client/resolver"
	"github.com/zunokit/zunogo/pkg/client/tx"
	"github.com/zunokit/zunogo/pkg/ledger"
	"github.com/zunokit/zunogo/pkg/observable"
)

// Config is the configuration for New.
type Config struct {
	// RPCURL is dialed to back the SDK's chain context when ChainContext is
	// not supplied.
	RPCURL string
	// ChainContext, when non-nil, is used instead of dialing RPCURL. The
	// caller keeps ownership of the underlying connection.
	ChainContext client.ChainContext

	// MetadataService resolves contract deployment metadata. Exactly one of
	// MetadataService and RegistryJSON must be set, unless Deps already
	// supplies one.
	MetadataService client.MetadataService
	// RegistryJSON is a static contract registry document served in-process.
	RegistryJSON []byte

	// Signer, when non-nil, is bound to every handle the SDK resolves, so
	// handles can submit transactions. Individual Resolve calls may override
	// it.
	Signer client.Signer

	// Deps optionally provides the component dependencies directly. When set
	// it replaces the SDK's own dependency wiring.
	Deps depinject.Config

	// Component options, forwarded at construction time.
	ResolverOpts []resolver.ResolverOptionFn
	TxClientOpts []client.TxClientOption
	LedgerOpts   []ledger.Option
}

// SDK bundles the resolver, submitter, and ledger behind one handle-oriented
// surface.
type SDK struct {
	chainCtx client.ChainContext
	resolver client.ContractResolver
	txClient client.TxClient
	txLedger *ledger.Ledger
	signer   client.Signer

	// ownedConn is the RPC connection the SDK dialed itself, closed on Close.
	// Nil when the caller supplied the chain context.
	ownedConn *ethclient.Client
}

// New constructs an SDK instance from the given configuration.
func New(ctx context.Context, config *Config) (*SDK, error) {
	if config == nil {
		return nil, ErrSDKConfig.Wrap("config is required")
	}

	s := &SDK{
		chainCtx: config.ChainContext,
		signer:   config.Signer,
	}

	if s.chainCtx == nil {
		if config.RPCURL == "" {
			return nil, ErrSDKConfig.Wrap("either ChainContext or RPCURL is required")
		}
		conn, err := ethclient.DialContext(ctx, config.RPCURL)
		if err != nil {
			return nil, ErrSDKDial.Wrapf("%s: %s", config.RPCURL, err)
		}
		s.ownedConn = conn
		s.chainCtx = conn
	}

	deps := config.Deps
	if deps == nil {
		var err error
		if deps, err = buildDeps(config); err != nil {
			s.closeOwnedConn()
			return nil, err
		}
	}

	if err := depinject.Inject(deps, &s.txLedger); err != nil {
		s.closeOwnedConn()
		return nil, err
	}

	var err error
	if s.resolver, err = resolver.NewContractResolver(deps, config.ResolverOpts...); err != nil {
		s.closeOwnedConn()
		return nil, err
	}
	if s.txClient, err = tx.NewTxClient(deps, config.TxClientOpts...); err != nil {
		s.closeOwnedConn()
		return nil, err
	}

	return s, nil
}

// Resolve returns the callable handle for the given contract type on the
// given network, bound to the SDK's chain context and default signer.
func (s *SDK) Resolve(
	ctx context.Context,
	contractType, network string,
	opts ...client.ResolveOption,
) (*client.ContractHandle, error) {
	if s.signer != nil {
		// The default signer goes first so per-call options can override it.
		opts = append([]client.ResolveOption{resolver.WithSigner(s.signer)}, opts...)
	}
	return s.resolver.Resolve(ctx, contractType, network, s.chainCtx, opts...)
}

// VerifyStandard probes the contract at the given address for known token
// standards.
func (s *SDK) VerifyStandard(ctx context.Context, address common.Address) (client.Standard, error) {
	return s.resolver.VerifyStandard(ctx, address, s.chainCtx)
}

// Send submits a state-changing contract call and blocks until a terminal
// outcome. See client.TxClient for the full semantics.
func (s *SDK) Send(
	ctx context.Context,
	handle *client.ContractHandle,
	method string,
	args []any,
	opts ...client.SendOption,
) (*types.Receipt, error) {
	return s.txClient.Send(ctx, handle, method, args, opts...)
}

// Call invokes a read-only contract method and unpacks the result into
// result.
func (s *SDK) Call(
	ctx context.Context,
	handle *client.ContractHandle,
	method string,
	args []any,
	result any,
) error {
	return s.txClient.Call(ctx, handle, method, args, result)
}

// Ledger returns the transaction ledger recording every submission attempt.
func (s *SDK) Ledger() *ledger.Ledger {
	return s.txLedger
}

// TxEvents returns the observable of transaction lifecycle events across all
// sends on this SDK instance.
func (s *SDK) TxEvents() observable.Observable[client.TxEvent] {
	return s.txClient.EventsSequence()
}

// Resolver exposes the contract resolver for cache management
// (Invalidate/InvalidateAll).
func (s *SDK) Resolver() client.ContractResolver {
	return s.resolver
}

// Close releases event subscriptions and, when the SDK dialed the RPC
// endpoint itself, the underlying connection.
func (s *SDK) Close() {
	s.txClient.Close()
	s.txLedger.Close()
	s.closeOwnedConn()
}

func (s *SDK) closeOwnedConn() {
	if s.ownedConn != nil {
		s.ownedConn.Close()
	}
}
