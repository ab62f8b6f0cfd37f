package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"balance-history/internal/near"
)

// callKey identifies a stubbed call_function query.
type callKey struct {
	contract string
	method   string
	args     string
	block    string
}

// RPCClient implements near.RPCClient for testing.
type RPCClient struct {
	mu     sync.Mutex
	calls  map[callKey]*near.CallResult
	errs   map[callKey]error
	blocks map[string]*near.BlockHeader
	count  int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		calls:  make(map[callKey]*near.CallResult),
		errs:   make(map[callKey]error),
		blocks: make(map[string]*near.BlockHeader),
	}
}

// Compile-time interface check.
var _ near.RPCClient = (*RPCClient)(nil)

func newCallKey(contract, method string, args interface{}, block near.BlockRef) callKey {
	encoded, err := json.Marshal(args)
	if err != nil {
		panic(fmt.Sprintf("stub: marshal args: %v", err))
	}
	return callKey{contract: contract, method: method, args: string(encoded), block: block.String()}
}

// CallFunction returns the stubbed result for the exact call.
func (c *RPCClient) CallFunction(_ context.Context, contract, method string, args interface{}, block near.BlockRef) (*near.CallResult, error) {
	key := newCallKey(contract, method, args, block)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++

	if err, ok := c.errs[key]; ok {
		return nil, err
	}
	res, ok := c.calls[key]
	if !ok {
		return nil, &near.RPCError{
			Code:    -32000,
			Message: "Server error",
			Name:    "HANDLER_ERROR",
			Cause:   &near.RPCErrorCause{Name: "UNKNOWN_BLOCK"},
		}
	}
	return res, nil
}

// Block returns the stubbed header.
func (c *RPCClient) Block(_ context.Context, block near.BlockRef) (*near.BlockHeader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++

	header, ok := c.blocks[block.String()]
	if !ok {
		return nil, &near.RPCError{
			Code:    -32000,
			Message: "Server error",
			Name:    "HANDLER_ERROR",
			Cause:   &near.RPCErrorCause{Name: "UNKNOWN_BLOCK"},
		}
	}
	return header, nil
}

// SetBalance stubs ft_balance_of for account at height. A nil balance
// stubs a null result.
func (c *RPCClient) SetBalance(contract, account string, height uint64, balance *string) {
	result, _ := json.Marshal(balance)
	c.SetCall(contract, "ft_balance_of", map[string]string{"account_id": account}, near.AtHeight(height),
		&near.CallResult{Result: result, BlockHeight: height})
}

// SetMetadata stubs ft_metadata of contract at the final block.
func (c *RPCClient) SetMetadata(contract string, meta interface{}) {
	result, err := json.Marshal(meta)
	if err != nil {
		panic(fmt.Sprintf("stub: marshal metadata: %v", err))
	}
	c.SetCall(contract, "ft_metadata", struct{}{}, near.Final(), &near.CallResult{Result: result})
}

// SetCall stubs an arbitrary call_function query.
func (c *RPCClient) SetCall(contract, method string, args interface{}, block near.BlockRef, res *near.CallResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[newCallKey(contract, method, args, block)] = res
}

// FailCall makes a call_function query fail with err.
func (c *RPCClient) FailCall(contract, method string, args interface{}, block near.BlockRef, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[newCallKey(contract, method, args, block)] = err
}

// AddBlock stubs a header, reachable by height and by hash.
func (c *RPCClient) AddBlock(header *near.BlockHeader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks[near.AtHeight(header.Height).String()] = header
	c.blocks[header.Hash] = header
}

// Calls returns the number of requests served.
func (c *RPCClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
