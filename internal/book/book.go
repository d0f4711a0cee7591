package book

import (
	"errors"

	"github.com/tidwall/btree"

	"vidar/internal/common"
)

// ErrDuplicateOrderID is returned when an explicit order id is already
// resting on the book. Supply id 0 to have the book assign one.
var ErrDuplicateOrderID = errors.New("duplicate order id")

type priceLevels = btree.BTreeG[*PriceLevel]

// bookSide is one side of the book: a btree of price levels whose comparator
// puts the best price first, plus a cached resting-order count.
type bookSide struct {
	levels *priceLevels
	count  uint64
}

// Sorted best-first: highest price for bids.
func newBidSide() bookSide {
	return bookSide{levels: btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.price > b.price
	})}
}

// Sorted best-first: lowest price for asks.
func newAskSide() bookSide {
	return bookSide{levels: btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.price < b.price
	})}
}

func (s *bookSide) get(price uint64) *PriceLevel {
	level, ok := s.levels.GetMut(&PriceLevel{price: price})
	if !ok {
		return nil
	}
	return level
}

func (s *bookSide) getOrCreate(price uint64) *PriceLevel {
	if level := s.get(price); level != nil {
		return level
	}
	level := newPriceLevel(price)
	s.levels.Set(level)
	return level
}

func (s *bookSide) removeLevel(price uint64) {
	s.levels.Delete(&PriceLevel{price: price})
}

// best returns the best-priced level on this side, or nil if empty.
func (s *bookSide) best() *PriceLevel {
	level, ok := s.levels.MinMut()
	if !ok {
		return nil
	}
	return level
}

// scan visits levels best-first until fn returns false.
func (s *bookSide) scan(fn func(*PriceLevel) bool) {
	s.levels.Scan(fn)
}

// Book is the central limit order book for a single symbol. It owns the node
// arena, both sides and the order-id index exclusively; callers must
// serialize access. The Book never crosses itself: AddOrder only rests
// residual quantity, matching is the engine's responsibility.
type Book struct {
	arena *Arena
	bids  bookSide
	asks  bookSide

	// Order id to arena handle, for O(1) cancel.
	index map[uint64]Handle

	nextOrderID uint64
	nextTradeID uint64
}

// New creates an empty book. The capacity hint pre-allocates the arena and
// index so steady-state operation does not reallocate.
func New(capacity int) *Book {
	return &Book{
		arena:       NewArena(capacity),
		bids:        newBidSide(),
		asks:        newAskSide(),
		index:       make(map[uint64]Handle, capacity),
		nextOrderID: 1,
		nextTradeID: 1,
	}
}

func (b *Book) sideOf(s common.Side) *bookSide {
	if s == common.Buy {
		return &b.bids
	}
	return &b.asks
}

// AllocOrderID returns the next auto-assigned order id, skipping any id
// already resting on the book under an explicit assignment.
func (b *Book) AllocOrderID() uint64 {
	id := b.nextOrderID
	b.nextOrderID++
	for b.ContainsOrder(id) {
		id = b.nextOrderID
		b.nextOrderID++
	}
	return id
}

// NextTradeID returns the next trade id. Trade ids are strictly monotonic
// across all matches on this book.
func (b *Book) NextTradeID() uint64 {
	id := b.nextTradeID
	b.nextTradeID++
	return id
}

// AddOrder rests an order on its side at its price, appending at the FIFO
// tail and creating the level if absent. It performs no matching. An id of 0
// is auto-assigned; an explicit id that is already resting is rejected.
func (b *Book) AddOrder(order common.Order) (Handle, error) {
	if order.ID == 0 {
		order.ID = b.AllocOrderID()
	} else if _, exists := b.index[order.ID]; exists {
		return NilHandle, ErrDuplicateOrderID
	}

	h := b.arena.Insert(order)
	b.index[order.ID] = h

	side := b.sideOf(order.Side)
	side.getOrCreate(order.Price).pushBack(h, b.arena)
	side.count++
	return h, nil
}

// RemoveOrder unlinks the order at h from its level, deletes the level if it
// emptied, erases the index entry and frees the arena slot. Reports false if
// the handle is not live.
func (b *Book) RemoveOrder(h Handle) (common.Order, bool) {
	resting := b.arena.Get(h)
	if resting == nil {
		return common.Order{}, false
	}

	side := b.sideOf(resting.Side)
	if level := side.get(resting.Price); level != nil {
		level.remove(h, b.arena)
		side.count--
		if level.IsEmpty() {
			side.removeLevel(resting.Price)
		}
	}

	delete(b.index, resting.ID)
	return b.arena.Remove(h), true
}

// CancelOrder removes the resting order with the given id. Reports false if
// no such order exists; cancelling twice is a no-op.
func (b *Book) CancelOrder(id uint64) (common.Order, bool) {
	h, ok := b.index[id]
	if !ok {
		return common.Order{}, false
	}
	return b.RemoveOrder(h)
}

// GetOrder returns the live resting order with the given id.
func (b *Book) GetOrder(id uint64) (*common.Order, bool) {
	h, ok := b.index[id]
	if !ok {
		return nil, false
	}
	return b.arena.Get(h), true
}

// Order returns the order at h, or nil if the handle is not live.
func (b *Book) Order(h Handle) *common.Order {
	return b.arena.Get(h)
}

// HandleOf returns the arena handle for a resting order id.
func (b *Book) HandleOf(id uint64) (Handle, bool) {
	h, ok := b.index[id]
	return h, ok
}

// ContainsOrder reports whether an order with the given id is resting.
func (b *Book) ContainsOrder(id uint64) bool {
	_, ok := b.index[id]
	return ok
}

// BestBid returns the highest bid price.
func (b *Book) BestBid() (uint64, bool) {
	if level := b.bids.best(); level != nil {
		return level.price, true
	}
	return 0, false
}

// BestAsk returns the lowest ask price.
func (b *Book) BestAsk() (uint64, bool) {
	if level := b.asks.best(); level != nil {
		return level.price, true
	}
	return 0, false
}

// Spread returns best ask minus best bid when both sides are populated and
// not crossed.
func (b *Book) Spread() (uint64, bool) {
	bid, bidOk := b.BestBid()
	ask, askOk := b.BestAsk()
	if !bidOk || !askOk || ask < bid {
		return 0, false
	}
	return ask - bid, true
}

// BestBidLevel returns the best bid price level, or nil.
func (b *Book) BestBidLevel() *PriceLevel {
	return b.bids.best()
}

// BestAskLevel returns the best ask price level, or nil.
func (b *Book) BestAskLevel() *PriceLevel {
	return b.asks.best()
}

// BestOpposing returns the best level on the side a taker of the given side
// matches against: the best ask for a Buy, the best bid for a Sell.
func (b *Book) BestOpposing(taker common.Side) *PriceLevel {
	if taker == common.Buy {
		return b.asks.best()
	}
	return b.bids.best()
}

// OrderCount is the total number of resting orders.
func (b *Book) OrderCount() int {
	return b.arena.Len()
}

// BidCount is the number of resting bid orders.
func (b *Book) BidCount() uint64 {
	return b.bids.count
}

// AskCount is the number of resting ask orders.
func (b *Book) AskCount() uint64 {
	return b.asks.count
}

// BidLevels is the number of bid price levels.
func (b *Book) BidLevels() int {
	return b.bids.levels.Len()
}

// AskLevels is the number of ask price levels.
func (b *Book) AskLevels() int {
	return b.asks.levels.Len()
}

// Capacity is the arena's pre-allocated slot count.
func (b *Book) Capacity() int {
	return b.arena.Cap()
}

// IsEmpty reports whether no orders rest on either side.
func (b *Book) IsEmpty() bool {
	return b.arena.Len() == 0
}

// Clear removes every resting order. Id counters keep advancing so ids stay
// unique across the clear.
func (b *Book) Clear() {
	b.arena = NewArena(b.arena.Cap())
	b.bids = newBidSide()
	b.asks = newAskSide()
	clear(b.index)
}
