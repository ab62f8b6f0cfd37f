package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// BlockHashLen is the size of a decoded block hash.
const BlockHashLen = 32

// Block is an indexed block header.
type Block struct {
	Height    uint64 // block height
	Timestamp uint64 // block timestamp, nanoseconds since epoch
	Hash      string // base58 block hash
}

// ParseBlockHash decodes a base58 block hash and checks its length.
func ParseBlockHash(s string) ([]byte, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidBlockHash, s, err)
	}
	if len(decoded) != BlockHashLen {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidBlockHash, s, len(decoded))
	}
	return decoded, nil
}
