package book_test

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidar/internal/book"
	"vidar/internal/common"
)

func TestStateRoot_EmptyBook(t *testing.T) {
	b := book.New(16)
	assert.Equal(t, sha256.Sum256(nil), b.ComputeStateRoot())
}

func TestStateRoot_MatchesManualEncoding(t *testing.T) {
	b := book.New(16)

	// Two bid levels, one ask level, two orders on the best bid.
	bid1 := buy(1, 100, px50010, qty1)
	bid2 := buy(2, 101, px50010, qty1)
	bid3 := buy(3, 102, px50000, qty1)
	ask1 := sell(4, 103, uint64(5_002_000_000_000), qty1)
	for _, o := range []common.Order{bid3, bid1, bid2, ask1} {
		mustAdd(t, b, o)
	}

	// Canonical walk: bids descending, asks ascending, FIFO within level.
	var data []byte
	for _, o := range []common.Order{bid1, bid2, bid3, ask1} {
		data = append(data, o.Encode()...)
	}
	assert.Equal(t, sha256.Sum256(data), b.ComputeStateRoot())
}

func TestStateRoot_IgnoresArenaLayout(t *testing.T) {
	build := func(withChurn bool) [32]byte {
		b := book.New(16)
		if withChurn {
			// Extra inserts and cancels shuffle the arena's handle
			// assignment without changing the final logical state.
			mustAdd(t, b, sell(90, 1, px50000, qty1))
			mustAdd(t, b, sell(91, 1, px50010, qty1))
			_, ok := b.CancelOrder(90)
			require.True(t, ok)
			_, ok = b.CancelOrder(91)
			require.True(t, ok)
		}
		mustAdd(t, b, buy(1, 100, px50000, qty1))
		mustAdd(t, b, sell(2, 101, px50010, qty1))
		return b.ComputeStateRoot()
	}

	assert.Equal(t, build(false), build(true))
}

func TestStateRoot_SensitiveToState(t *testing.T) {
	base := book.New(16)
	mustAdd(t, base, buy(1, 100, px50000, qty1))
	baseRoot := base.ComputeStateRoot()

	other := book.New(16)
	mustAdd(t, other, buy(1, 100, px50000, qty1+1))
	assert.NotEqual(t, baseRoot, other.ComputeStateRoot())

	// FIFO position is part of the state: swapping insertion order of two
	// orders at the same price changes the root.
	ab := book.New(16)
	mustAdd(t, ab, buy(1, 100, px50000, qty1))
	mustAdd(t, ab, buy(2, 100, px50000, qty1))

	ba := book.New(16)
	mustAdd(t, ba, buy(2, 100, px50000, qty1))
	mustAdd(t, ba, buy(1, 100, px50000, qty1))

	assert.NotEqual(t, ab.ComputeStateRoot(), ba.ComputeStateRoot())
}
