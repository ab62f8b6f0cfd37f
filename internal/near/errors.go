package near

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrChainQuery matches every *ChainQueryError.
	ErrChainQuery = errors.New("chain query failed")

	// ErrNoBalanceRegistered is returned by ft_balance_of when the contract
	// has no storage entry for the account. Callers treat it as zero.
	ErrNoBalanceRegistered = errors.New("no balance registered")

	// ErrUnavailable is returned when the RPC endpoint keeps failing with
	// transient errors after all retries.
	ErrUnavailable = errors.New("rpc unavailable")
)

// Chain query failure kinds.
const (
	KindUnknownBlock          = "unknown_block"
	KindGarbageCollectedBlock = "garbage_collected_block"
	KindUnknownAccount        = "unknown_account"
	KindNoContractCode        = "no_contract_code"
	KindContractExecution     = "contract_execution"
	KindHeightMismatch        = "height_mismatch"
	KindMalformedResult       = "malformed_result"
)

// ChainQueryError reports that the chain could not answer a query at the
// requested block.
type ChainQueryError struct {
	Kind     string
	Contract string
	Block    string
	Message  string
}

func (e *ChainQueryError) Error() string {
	if e.Contract == "" {
		return fmt.Sprintf("%s: %s at block %s: %s", ErrChainQuery, e.Kind, e.Block, e.Message)
	}
	return fmt.Sprintf("%s: %s on %s at block %s: %s", ErrChainQuery, e.Kind, e.Contract, e.Block, e.Message)
}

// Is makes errors.Is(err, ErrChainQuery) hold.
func (e *ChainQueryError) Is(target error) bool {
	return target == ErrChainQuery
}

// RPC error cause names returned by nearcore.
const (
	causeUnknownBlock           = "UNKNOWN_BLOCK"
	causeGarbageCollectedBlock  = "GARBAGE_COLLECTED_BLOCK"
	causeUnknownAccount         = "UNKNOWN_ACCOUNT"
	causeInvalidAccount         = "INVALID_ACCOUNT"
	causeNoContractCode         = "NO_CONTRACT_CODE"
	causeContractExecutionError = "CONTRACT_EXECUTION_ERROR"
	causeNoSyncedBlocks         = "NO_SYNCED_BLOCKS"
	causeUnavailableShard       = "UNAVAILABLE_SHARD"
	causeTimeoutError           = "TIMEOUT_ERROR"
	causeInternalError          = "INTERNAL_ERROR"
)

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Name    string          `json:"name,omitempty"`
	Cause   *RPCErrorCause  `json:"cause,omitempty"`
}

// RPCErrorCause names the reason of a handler error.
type RPCErrorCause struct {
	Name string          `json:"name"`
	Info json.RawMessage `json:"info,omitempty"`
}

func (e *RPCError) Error() string {
	if cause := e.CauseName(); cause != "" {
		return fmt.Sprintf("RPC error %d: %s (%s)", e.Code, e.Message, cause)
	}
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// CauseName returns the error cause name, or "" when the node sent none.
func (e *RPCError) CauseName() string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Name
}

// Transient reports whether the same request may succeed later.
func (e *RPCError) Transient() bool {
	switch e.CauseName() {
	case causeNoSyncedBlocks, causeUnavailableShard, causeTimeoutError, causeInternalError:
		return true
	}
	return false
}

// chainError converts RPC errors that describe the chain state into
// *ChainQueryError. Other errors are returned unchanged.
func chainError(err error, contract string, block BlockRef) error {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return err
	}

	var kind string
	switch rpcErr.CauseName() {
	case causeUnknownBlock:
		kind = KindUnknownBlock
	case causeGarbageCollectedBlock:
		kind = KindGarbageCollectedBlock
	case causeUnknownAccount, causeInvalidAccount:
		kind = KindUnknownAccount
	case causeNoContractCode:
		kind = KindNoContractCode
	case causeContractExecutionError:
		kind = KindContractExecution
	default:
		return err
	}

	msg := rpcErr.Message
	if len(rpcErr.Data) > 0 {
		msg = string(rpcErr.Data)
	}
	return &ChainQueryError{Kind: kind, Contract: contract, Block: block.String(), Message: msg}
}
