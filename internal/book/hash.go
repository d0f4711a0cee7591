package book

import (
	"crypto/sha256"

	"vidar/internal/common"
)

// ComputeStateRoot returns the canonical SHA-256 digest of the book's
// logical contents. The digest depends only on the resting orders and their
// priority, never on arena handle values or btree internals:
//
//  1. Bid levels in descending price order, then ask levels ascending.
//  2. Orders within a level head to tail (FIFO order).
//  3. Each order as its canonical 50-byte little-endian record.
//
// Two books holding the same logical state therefore hash to the same root,
// which is what replay verification compares.
func (b *Book) ComputeStateRoot() [32]byte {
	h := sha256.New()
	var rec [common.OrderEncodedLen]byte

	walk := func(level *PriceLevel) bool {
		for n := level.head; n != NilHandle; n = b.arena.at(n).next {
			b.arena.at(n).order.EncodeTo(rec[:])
			h.Write(rec[:])
		}
		return true
	}
	b.bids.scan(walk)
	b.asks.scan(walk)

	var root [32]byte
	h.Sum(root[:0])
	return root
}
