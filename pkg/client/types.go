package client

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Standard identifies a token standard detected by
// ContractResolver#VerifyStandard.
type Standard string

const (
	StandardERC721  Standard = "ERC721"
	StandardERC1155 Standard = "ERC1155"
	// StandardUnknown is returned when none of the probed standards match.
	StandardUnknown Standard = "Unknown"
)

// ContractHandle is a resolved, callable reference to a deployed contract,
// bound to an address, network, and execution context. Handles are immutable
// and owned by the resolver cache: all callers resolving the same
// (address, network) share the same instance, so handles compare cheaply by
// pointer identity.
type ContractHandle struct {
	contractType string
	network      string
	address      common.Address
	abiVersion   string
	contractABI  abi.ABI
	chainCtx     ChainContext
	signer       Signer
}

// NewContractHandle binds a contract's ABI to an address, network, and
// execution context. It is exported for the resolver's use; SDK callers
// should obtain handles via ContractResolver#Resolve so that caching and
// identity guarantees hold.
func NewContractHandle(
	contractType, network string,
	address common.Address,
	abiVersion string,
	contractABI abi.ABI,
	chainCtx ChainContext,
	signer Signer,
) *ContractHandle {
	return &ContractHandle{
		contractType: contractType,
		network:      network,
		address:      address,
		abiVersion:   abiVersion,
		contractABI:  contractABI,
		chainCtx:     chainCtx,
		signer:       signer,
	}
}

// ContractType returns the logical contract identifier the handle was
// resolved for.
func (h *ContractHandle) ContractType() string { return h.contractType }

// Network returns the network identifier the handle is bound to.
func (h *ContractHandle) Network() string { return h.network }

// Address returns the deployment address the handle is bound to.
func (h *ContractHandle) Address() common.Address { return h.address }

// ABIVersion returns the ABI revision reported by the registry, if any.
func (h *ContractHandle) ABIVersion() string { return h.abiVersion }

// ABI returns the parsed contract ABI.
func (h *ContractHandle) ABI() abi.ABI { return h.contractABI }

// Method looks the given method name up in the handle's method registry,
// which is built statically from the ABI at resolution time.
func (h *ContractHandle) Method(name string) (abi.Method, bool) {
	method, ok := h.contractABI.Methods[name]
	return method, ok
}

// ChainContext returns the execution context the handle is bound to.
func (h *ContractHandle) ChainContext() ChainContext { return h.chainCtx }

// Signer returns the signing capability bound to the handle, or nil for a
// read-only handle.
func (h *ContractHandle) Signer() Signer { return h.signer }

// CanWrite reports whether the handle is bound for state-changing calls.
func (h *ContractHandle) CanWrite() bool { return h.signer != nil }

// TxEventType enumerates transaction lifecycle event kinds.
type TxEventType string

const (
	// TxEventSent is emitted after a transaction is first broadcast.
	TxEventSent TxEventType = "sent"
	// TxEventRetrying is emitted before each reattempt of a failed send.
	TxEventRetrying TxEventType = "retrying"
	// TxEventConfirmed is emitted once a transaction is confirmed.
	TxEventConfirmed TxEventType = "confirmed"
	// TxEventFailed is emitted when a send reaches a terminal failure.
	TxEventFailed TxEventType = "failed"
)

// TxEvent is a transaction lifecycle notification published by the TxClient.
type TxEvent struct {
	Type TxEventType
	// EntryID is the ledger entry id the event pertains to. Empty when the
	// transaction never reached a successful broadcast.
	EntryID string
	// Hash is the current broadcast identifier, when known.
	Hash string
	// Attempt is the one-based retry number for TxEventRetrying events.
	Attempt int
	// GasUsed is set on TxEventConfirmed events.
	GasUsed uint64
	// Err is set on TxEventRetrying and TxEventFailed events.
	Err error
}
