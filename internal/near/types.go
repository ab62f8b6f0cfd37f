package near

import "fmt"

// BlockRef selects the block a query runs against. The zero value means the
// latest final block.
type BlockRef struct {
	Height *uint64
	Hash   string
}

// AtHeight references a block by height.
func AtHeight(h uint64) BlockRef {
	return BlockRef{Height: &h}
}

// AtHash references a block by base58 hash.
func AtHash(hash string) BlockRef {
	return BlockRef{Hash: hash}
}

// Final references the latest final block.
func Final() BlockRef {
	return BlockRef{}
}

// String returns the reference as it appears in logs.
func (r BlockRef) String() string {
	switch {
	case r.Height != nil:
		return fmt.Sprintf("%d", *r.Height)
	case r.Hash != "":
		return r.Hash
	default:
		return "final"
	}
}

// params adds the block selector to JSON-RPC params.
func (r BlockRef) params(p map[string]interface{}) {
	switch {
	case r.Height != nil:
		p["block_id"] = *r.Height
	case r.Hash != "":
		p["block_id"] = r.Hash
	default:
		p["finality"] = "final"
	}
}

// CallResult is the result of a call_function query.
type CallResult struct {
	Result      []byte // raw bytes returned by the contract, usually JSON
	Logs        []string
	BlockHeight uint64
	BlockHash   string
}

// BlockHeader is the subset of a block header the service needs.
type BlockHeader struct {
	Height    uint64
	Timestamp uint64 // nanoseconds since epoch
	Hash      string
	PrevHash  string
}
