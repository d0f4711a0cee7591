package engine

import (
	"time"

	"github.com/rs/zerolog/log"

	"vidar/internal/book"
	"vidar/internal/common"
	"vidar/internal/fixed"
	"vidar/internal/metrics"
)

// Reporter receives executed trades. The gateway implements this to fire
// execution reports at the counterparties.
type Reporter interface {
	ReportTrade(trade common.Trade) error
}

// Engine owns a Book and applies commands to it through the matching
// engine. It is single-writer: the caller serializes commands into it in
// whatever sequence establishes the authoritative order.
type Engine struct {
	book      *book.Book
	matcher   *MatchingEngine
	reporter  Reporter
	collector *metrics.Collector

	nextBatchID uint64
}

// New creates an engine over an empty book sized to the capacity hint.
func New(capacity int) *Engine {
	return &Engine{
		book:    book.New(capacity),
		matcher: NewMatchingEngine(),
	}
}

// SetReporter installs the trade reporter. Reporting failures are logged,
// never propagated: the match has already happened.
func (e *Engine) SetReporter(r Reporter) {
	e.reporter = r
}

// SetCollector installs the metrics collector.
func (e *Engine) SetCollector(c *metrics.Collector) {
	e.collector = c
}

// Book exposes the underlying order book for read access and direct kernel
// use (tests, state-root verification).
func (e *Engine) Book() *book.Book {
	return e.book
}

// PlaceOrder matches an incoming limit order, reports the resulting trades
// and rests any residual quantity.
func (e *Engine) PlaceOrder(order common.Order, timestamp uint64) (MatchResult, error) {
	start := time.Now()
	result, err := e.matcher.MatchOrder(e.book, order, timestamp)
	if err != nil {
		return result, err
	}

	if e.reporter != nil {
		for _, trade := range result.Trades {
			if rerr := e.reporter.ReportTrade(trade); rerr != nil {
				log.Error().
					Err(rerr).
					Uint64("tradeID", trade.ID).
					Msg("unable to report trade")
			}
		}
	}

	e.observe(order.Side, result, time.Since(start))
	return result, nil
}

// CancelOrder removes a resting order by id. A missing id reports false.
func (e *Engine) CancelOrder(id uint64) (common.Order, bool) {
	order, ok := e.book.CancelOrder(id)
	if ok && e.collector != nil {
		e.collector.CancelsTotal.Inc()
		e.refreshBookGauges()
	}
	return order, ok
}

// StateRoot returns the canonical 32-byte digest of the current book state.
func (e *Engine) StateRoot() [32]byte {
	return e.book.ComputeStateRoot()
}

// ProcessBatch applies a sequence of order commands, each matched at its own
// Timestamp, and returns the receipt carrying the post-batch state root.
// A rejected command aborts the batch with the error; commands already
// applied stay applied, mirroring replay semantics where a bad command is a
// sequencing fault upstream.
func (e *Engine) ProcessBatch(orders []common.Order, completedAt uint64) (common.ExecutionReceipt, error) {
	e.nextBatchID++
	var executed uint64
	for _, order := range orders {
		result, err := e.PlaceOrder(order, order.Timestamp)
		if err != nil {
			return common.ExecutionReceipt{}, err
		}
		executed += uint64(len(result.Trades))
	}
	return common.ExecutionReceipt{
		BatchID:         e.nextBatchID,
		OrdersProcessed: uint64(len(orders)),
		TradesExecuted:  executed,
		StateRoot:       e.book.ComputeStateRoot(),
		Timestamp:       completedAt,
	}, nil
}

// LogBook dumps the book's top of book and population to the log.
func (e *Engine) LogBook() {
	ev := log.Info().
		Int("orders", e.book.OrderCount()).
		Uint64("bidCount", e.book.BidCount()).
		Uint64("askCount", e.book.AskCount()).
		Int("bidLevels", e.book.BidLevels()).
		Int("askLevels", e.book.AskLevels())
	if bid, ok := e.book.BestBid(); ok {
		ev = ev.Str("bestBid", fixed.FromFixed(bid))
	}
	if ask, ok := e.book.BestAsk(); ok {
		ev = ev.Str("bestAsk", fixed.FromFixed(ask))
	}
	ev.Msg("book state")
}

func (e *Engine) observe(side common.Side, result MatchResult, elapsed time.Duration) {
	if e.collector == nil {
		return
	}
	e.collector.ObserveMatch(sideLabel(side), len(result.Trades), result.ExecutedQuantity, elapsed)
	e.refreshBookGauges()
}

func (e *Engine) refreshBookGauges() {
	spread, haveSpread := e.book.Spread()
	e.collector.SetBookState(
		e.book.BidCount(), e.book.AskCount(),
		e.book.BidLevels(), e.book.AskLevels(),
		spread, haveSpread,
	)
}

func sideLabel(s common.Side) string {
	if s == common.Buy {
		return "buy"
	}
	return "sell"
}
