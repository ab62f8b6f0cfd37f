package near

import "context"

// RPCClient defines the NEAR JSON-RPC methods used by the service.
type RPCClient interface {
	// CallFunction runs view method of contract at block with JSON args.
	CallFunction(ctx context.Context, contract, method string, args interface{}, block BlockRef) (*CallResult, error)

	// Block retrieves a block header.
	Block(ctx context.Context, block BlockRef) (*BlockHeader, error)
}
