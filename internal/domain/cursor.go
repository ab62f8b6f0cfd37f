package domain

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// Cursor bounds one page of history.
//
// Readers return events strictly older than BlockTimestamp, newest first, at
// most Limit of them. BlockHeight does not filter events: it pins the balance
// oracle to the height whose state includes exactly the events older than
// BlockTimestamp.
type Cursor struct {
	BlockHeight    uint64
	BlockTimestamp uint64 // exclusive upper bound, nanoseconds
	Limit          int
}

// StartCursor returns the cursor for the first page ending at block b.
// The timestamp bound is moved past b so that b's own events are included,
// matching the state at b.Height.
func StartCursor(b Block, limit int) Cursor {
	return Cursor{
		BlockHeight:    b.Height,
		BlockTimestamp: b.Timestamp + 1,
		Limit:          limit,
	}
}

// Validate checks the limit. The upper bound on Limit is request policy and
// is enforced by the API layer.
func (c Cursor) Validate() error {
	if c.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidCursor, c.Limit)
	}
	return nil
}

// Encode returns an opaque token for (BlockHeight, BlockTimestamp).
// The limit is not part of the token.
func (c Cursor) Encode() string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], c.BlockHeight)
	binary.BigEndian.PutUint64(buf[8:], c.BlockTimestamp)
	return base58.Encode(buf[:])
}

// DecodeCursor parses a token produced by Encode and attaches limit.
func DecodeCursor(token string, limit int) (Cursor, error) {
	raw, err := base58.Decode(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if len(raw) != 16 {
		return Cursor{}, fmt.Errorf("%w: token decodes to %d bytes", ErrInvalidCursor, len(raw))
	}
	c := Cursor{
		BlockHeight:    binary.BigEndian.Uint64(raw[:8]),
		BlockTimestamp: binary.BigEndian.Uint64(raw[8:]),
		Limit:          limit,
	}
	return c, c.Validate()
}
