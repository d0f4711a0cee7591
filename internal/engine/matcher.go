// Package engine applies incoming order commands to a book. MatchingEngine
// is the price-time-priority state machine for a single command; Engine is
// the facade the gateway drives, adding trade reporting, batch receipts and
// metrics around the kernel.
package engine

import (
	"vidar/internal/book"
	"vidar/internal/common"
)

// MatchResult is the outcome of applying one incoming order.
type MatchResult struct {
	// Trades executed, in match order. Prices are monotonically
	// non-decreasing for a Buy taker and non-increasing for a Sell.
	Trades []common.Trade

	// FullyFilled reports that no residual quantity rested on the book.
	FullyFilled bool

	// ExecutedQuantity is the total quantity traded.
	ExecutedQuantity uint64

	// RestingHandle locates the residual resting order, NilHandle if none.
	// Handles are only valid until the next book operation.
	RestingHandle book.Handle
}

// MatchingEngine executes the match protocol for one incoming command
// against a Book. It holds no state of its own; the trade-id counter lives
// on the Book.
type MatchingEngine struct{}

func NewMatchingEngine() *MatchingEngine {
	return &MatchingEngine{}
}

// crosses reports whether a taker limited at takerPrice may trade against a
// maker level at makerPrice. Buy takers reach up to their limit, Sell takers
// down to theirs.
func crosses(taker common.Side, takerPrice, makerPrice uint64) bool {
	if taker == common.Buy {
		return makerPrice <= takerPrice
	}
	return makerPrice >= takerPrice
}

// MatchOrder applies an incoming limit order to the book.
//
// While the best opposing level crosses the incoming price and quantity
// remains, the oldest maker at that level is filled at the maker's resting
// price. Fully filled makers are unlinked and their level removed when it
// empties. Residual quantity rests on the book; a zero-quantity order is a
// no-op that reports fully filled.
//
// An explicit incoming id that is already resting is rejected before any
// state is touched. Matching itself cannot fail.
func (m *MatchingEngine) MatchOrder(b *book.Book, order common.Order, timestamp uint64) (MatchResult, error) {
	result := MatchResult{RestingHandle: book.NilHandle}

	if order.ID == 0 {
		order.ID = b.AllocOrderID()
	} else if b.ContainsOrder(order.ID) {
		return result, book.ErrDuplicateOrderID
	}

	if order.Remaining == 0 {
		result.FullyFilled = true
		return result, nil
	}

	for order.Remaining > 0 {
		level := b.BestOpposing(order.Side)
		if level == nil || !crosses(order.Side, order.Price, level.Price()) {
			break
		}

		h := level.PeekHead()
		maker := b.Order(h)
		qty := min(order.Remaining, maker.Remaining)

		result.Trades = append(result.Trades, common.Trade{
			ID:           b.NextTradeID(),
			MakerOrderID: maker.ID,
			TakerOrderID: order.ID,
			MakerUserID:  maker.UserID,
			TakerUserID:  order.UserID,
			Price:        maker.Price,
			Quantity:     qty,
			Timestamp:    timestamp,
		})

		maker.Remaining -= qty
		order.Remaining -= qty
		result.ExecutedQuantity += qty
		level.ReduceQuantity(qty)

		if maker.Remaining == 0 {
			b.RemoveOrder(h)
		}
	}

	if order.Remaining > 0 {
		h, err := b.AddOrder(order)
		if err != nil {
			return result, err
		}
		result.RestingHandle = h
	} else {
		result.FullyFilled = true
	}
	return result, nil
}
