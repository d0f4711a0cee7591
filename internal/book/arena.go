// Package book implements the central limit order book: a slab arena of
// order nodes, intrusive FIFO price levels, two btree-indexed sides and the
// canonical state hasher.
//
// Layout:
//
//   - Arena: dense storage issuing recyclable integer handles, O(1)
//     insert/remove/lookup.
//   - PriceLevel: doubly-linked FIFO queue of handles at one price.
//   - Book: bids (descending) and asks (ascending) btrees of price levels,
//     plus an order-id index for O(1) cancels.
//
// The Book never matches against itself; crossing is the matching engine's
// job. All mutation assumes a single writer.
package book

import "vidar/internal/common"

// Handle is an opaque index into the arena. It is stable while the node is
// live and may be recycled after removal, so callers must not retain handles
// across operations; order ids are the durable reference.
type Handle int

// NilHandle marks the absence of a node.
const NilHandle Handle = -1

// freeSentinel marks a vacant slot's prev link so dead handles are
// distinguishable from live ones.
const freeSentinel Handle = -2

// node wraps an order with intrusive links into its price-level queue.
// prev points toward the head (older), next toward the tail (newer).
type node struct {
	order common.Order
	prev  Handle
	next  Handle
}

// Arena is a slab-style store of order nodes. Freed slots are kept on a free
// list and reused, so steady-state operation allocates nothing once the
// capacity hint is reached.
type Arena struct {
	nodes []node
	free  []Handle
	live  int
}

// NewArena pre-allocates storage for capacity nodes.
func NewArena(capacity int) *Arena {
	return &Arena{
		nodes: make([]node, 0, capacity),
		free:  make([]Handle, 0, capacity),
	}
}

// Insert stores an order and returns its handle.
func (a *Arena) Insert(order common.Order) Handle {
	a.live++
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.nodes[h] = node{order: order, prev: NilHandle, next: NilHandle}
		return h
	}
	a.nodes = append(a.nodes, node{order: order, prev: NilHandle, next: NilHandle})
	return Handle(len(a.nodes) - 1)
}

// Remove frees the node at h and returns its order. The handle becomes
// available for reuse.
func (a *Arena) Remove(h Handle) common.Order {
	n := a.at(h)
	order := n.order
	*n = node{prev: freeSentinel, next: NilHandle}
	a.free = append(a.free, h)
	a.live--
	return order
}

// Get returns the order at h, or nil if the handle is not live.
func (a *Arena) Get(h Handle) *common.Order {
	if h < 0 || int(h) >= len(a.nodes) || a.nodes[h].prev == freeSentinel {
		return nil
	}
	return &a.nodes[h].order
}

// Len is the number of live nodes.
func (a *Arena) Len() int {
	return a.live
}

// Cap is the number of pre-allocated slots.
func (a *Arena) Cap() int {
	return cap(a.nodes)
}

// at returns the node at h. A dead or out-of-range handle here means an
// intrusive-list invariant was broken, which is an implementation bug.
func (a *Arena) at(h Handle) *node {
	if h < 0 || int(h) >= len(a.nodes) || a.nodes[h].prev == freeSentinel {
		panic("book: dangling arena handle")
	}
	return &a.nodes[h]
}
