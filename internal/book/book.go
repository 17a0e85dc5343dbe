package book

import (
	"fmt"
	"math"
	"time"

	"ironbook/internal/collector"
	"ironbook/internal/level"
	"ironbook/internal/model"
)

// Quote is a price paired with the aggregated size resting at it.
type Quote struct {
	Price float64
	Size  float64
}

// OrderBook is the matching core for one instrument: two sorted
// ladders, the submit/cancel API, and depth queries. Errors are
// returned; only an internal invariant violation panics.
type OrderBook struct {
	Instrument string
	Exchange   string
	Bids       *Ladder
	Asks       *Ladder

	collector *collector.Collector
}

// New creates an empty book publishing events to sink. A nil sink is
// replaced with a no-op, mirroring the Python original's callback=print
// default but without the side effect of writing to stdout from a
// library.
func New(instrument, exchange string, sink collector.Sink) *OrderBook {
	if sink == nil {
		sink = func(model.Event) {}
	}
	return &OrderBook{
		Instrument: instrument,
		Exchange:   exchange,
		Bids:       NewLadder(model.Buy),
		Asks:       NewLadder(model.Sell),
		collector:  collector.New(sink),
	}
}

// SetCallback replaces the event sink.
func (b *OrderBook) SetCallback(sink collector.Sink) {
	b.collector.SetCallback(sink)
}

func (b *OrderBook) ladder(side model.Side) *Ladder {
	if side == model.Buy {
		return b.Bids
	}
	return b.Asks
}

func opposite(side model.Side) model.Side {
	if side == model.Buy {
		return model.Sell
	}
	return model.Buy
}

// crosses reports whether order would cross a resting level at price:
// a BUY crosses when its price is at or above top; a SELL crosses
// when its price is at or below top. MARKET orders always cross.
func crosses(order *model.Order, price float64) bool {
	if order.OrderType == model.MarketOrder {
		return true
	}
	if order.Side == model.Buy {
		return model.Tick(order.Price) >= model.Tick(price)
	}
	return model.Tick(order.Price) <= model.Tick(price)
}

// canFullyFill performs a read-only scan of the levels order would
// cross, without mutating anything, to decide whether a FILL_OR_KILL
// or ALL_OR_NONE order can fully fill. This avoids crossing on a
// shadow copy and undoing it: a real cross never starts for these
// flags unless the walk has already proven it will finish the order.
func canFullyFill(opp *Ladder, order *model.Order) bool {
	needed := order.Remaining()
	var acc float64
	full := false
	opp.Iterate(func(lvl *level.PriceLevel) bool {
		if !crosses(order, lvl.Price()) {
			return false
		}
		acc += lvl.Volume()
		if acc >= needed {
			full = true
			return false
		}
		return true
	})
	return full
}

// Submit is the matching core's primary entry point.
func (b *OrderBook) Submit(order *model.Order) error {
	switch order.OrderType {
	case model.LimitOrder, model.MarketOrder:
	default:
		return model.ErrUnsupportedOrderType
	}
	if order.Volume <= 0 {
		return fmt.Errorf("orderbook: submit rejected: volume must be positive")
	}
	if order.OrderType == model.LimitOrder && order.Price <= 0 {
		return fmt.Errorf("orderbook: submit rejected: limit price must be positive")
	}
	if order.Filled != 0 {
		return fmt.Errorf("orderbook: submit rejected: order must enter with filled == 0")
	}
	if order.Timestamp.IsZero() {
		order.Timestamp = time.Now()
	}

	opp := b.ladder(opposite(order.Side))

	isAllOrNothing := order.Flag == model.FillOrKill || order.Flag == model.AllOrNone
	if isAllOrNothing && !canFullyFill(opp, order) {
		// Policy reject, not an error. Nothing was touched, so there is
		// nothing to discard beyond an already empty buffer.
		b.collector.Clear()
		return nil
	}

	var lastPrice float64
	var lastMaker *model.Order
	for {
		top, ok := opp.Best()
		if !ok || !crosses(order, top.Price()) {
			break
		}

		price := top.Price()
		remainder, maker := top.Cross(order)
		if maker != nil {
			lastMaker = maker
			lastPrice = price
		}
		if top.Empty() {
			opp.Remove(top.Price())
		}
		if remainder == nil {
			break
		}
	}

	remaining := order.Remaining()
	switch {
	case remaining <= 0:
		if order.Filled > 0 {
			b.collector.PushTrade(order, lastPrice, lastMaker)
		}
		b.collector.Flush()

	case isAllOrNothing:
		// Unreachable: canFullyFill already guaranteed completion.
		// Kept as a defensive guard against a future change to the
		// walk loop breaking that guarantee silently.
		b.collector.Clear()

	case order.Flag == model.ImmediateOrCancel:
		b.collector.PushCancel(order)
		b.collector.Flush()

	case order.OrderType == model.LimitOrder:
		b.rest(order)
		b.collector.Flush()

	default:
		// Market order, partial fill: synthesize the aggregate trade
		// if anything filled, then drop the remainder.
		if order.Filled > 0 {
			b.collector.PushTrade(order, lastPrice, lastMaker)
		}
		b.collector.Flush()
	}

	b.collector.Clear()
	return nil
}

func (b *OrderBook) rest(order *model.Order) {
	ladder := b.ladder(order.Side)
	lvl := ladder.GetOrCreate(order.Price, b.collector)
	lvl.Add(order)
}

// Cancel removes a resting order identified by (side, price, id)
// carried on order. The caller is responsible for tracking that
// triple out-of-band; the book itself keeps no id-to-level
// back-reference.
func (b *OrderBook) Cancel(order *model.Order) error {
	ladder := b.ladder(order.Side)
	lvl, ok := ladder.Get(order.Price)
	if !ok {
		return model.ErrOutOfSync
	}
	if err := lvl.Remove(order); err != nil {
		return err
	}
	if lvl.Empty() {
		ladder.Remove(lvl.Price())
	}
	b.collector.Flush()
	b.collector.Clear()
	return nil
}

// TopOfBook returns the best bid and ask with their aggregated size.
// An empty side reports bid = (0, 0) or ask = (+Inf, 0).
func (b *OrderBook) TopOfBook() (bid, ask Quote) {
	if lvl, ok := b.Bids.Best(); ok {
		bid = Quote{Price: lvl.Price(), Size: lvl.Volume()}
	}
	ask = Quote{Price: math.Inf(1), Size: 0}
	if lvl, ok := b.Asks.Best(); ok {
		ask = Quote{Price: lvl.Price(), Size: lvl.Volume()}
	}
	return bid, ask
}

// Spread returns ask.Price - bid.Price.
func (b *OrderBook) Spread() float64 {
	bid, ask := b.TopOfBook()
	return ask.Price - bid.Price
}

// Level returns the n-th level from the top (0 = best) on side.
func (b *OrderBook) Level(n int, side model.Side) (Quote, bool) {
	lvl, ok := b.ladder(side).NthFromTop(n)
	if !ok {
		return Quote{}, false
	}
	return Quote{Price: lvl.Price(), Size: lvl.Volume()}, true
}

// DepthSnapshot is a multi-level view of both ladders, best first.
type DepthSnapshot struct {
	Bid []Quote
	Ask []Quote
}

// Levels returns up to k levels per side from the top.
func (b *OrderBook) Levels(k int) DepthSnapshot {
	var snap DepthSnapshot
	for _, lvl := range b.Asks.TopN(k) {
		snap.Ask = append(snap.Ask, Quote{Price: lvl.Price(), Size: lvl.Volume()})
	}
	for _, lvl := range b.Bids.TopN(k) {
		snap.Bid = append(snap.Bid, Quote{Price: lvl.Price(), Size: lvl.Volume()})
	}
	return snap
}

// Each iterates every resting order, asks top-down then bids
// top-down, stopping early if fn returns false.
func (b *OrderBook) Each(fn func(*model.Order) bool) {
	cont := true
	visit := func(lvl *level.PriceLevel) bool {
		lvl.Iter(func(o *model.Order) bool {
			cont = fn(o)
			return cont
		})
		return cont
	}
	b.Asks.Iterate(visit)
	if !cont {
		return
	}
	b.Bids.Iterate(visit)
}
