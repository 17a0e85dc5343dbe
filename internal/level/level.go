// Package level implements the price level: a time-ordered FIFO queue
// of resting orders at a single price, and the routine that crosses an
// incoming taker against it.
package level

import (
	"container/list"
	"fmt"

	"ironbook/internal/collector"
	"ironbook/internal/model"
)

// PriceLevel holds all resting orders at one price in time-priority
// FIFO order. Every order in the queue satisfies filled < volume and
// shares the level's price and side.
type PriceLevel struct {
	price     float64
	side      model.Side
	orders    *list.List
	byID      map[string]*list.Element
	collector *collector.Collector
}

// New creates an empty price level at price, publishing events to c.
func New(price float64, side model.Side, c *collector.Collector) *PriceLevel {
	return &PriceLevel{
		price:     model.TickPrice(price),
		side:      side,
		orders:    list.New(),
		byID:      make(map[string]*list.Element),
		collector: c,
	}
}

// PriceKey builds a lookup-only PriceLevel carrying nothing but a
// canonical price, suitable as a search key against a btree.BTreeG
// comparator that only ever inspects Price().
func PriceKey(price float64) *PriceLevel {
	return &PriceLevel{price: model.TickPrice(price)}
}

// Price returns the level's canonical price.
func (lvl *PriceLevel) Price() float64 { return lvl.price }

// Volume sums volume-filled across every resting order at this level.
func (lvl *PriceLevel) Volume() float64 {
	var total float64
	for e := lvl.orders.Front(); e != nil; e = e.Next() {
		o := e.Value.(*model.Order)
		total += o.Remaining()
	}
	return total
}

// Empty reports whether the level currently holds no resting orders.
func (lvl *PriceLevel) Empty() bool {
	return lvl.orders.Len() == 0
}

// Add appends order to the tail of the FIFO queue, emitting OPEN. If
// an order with the same ID is already resting here, it is treated as
// an amend-in-place and CHANGE is emitted instead.
func (lvl *PriceLevel) Add(order *model.Order) {
	if model.Tick(order.Price) != model.Tick(lvl.price) {
		panic(fmt.Errorf("%w: order %s at price %.2f added to level at %.2f", model.ErrInvariantViolation, order.ID, order.Price, lvl.price))
	}
	if order.Filled > order.Volume {
		panic(fmt.Errorf("%w: order %s filled %.2f exceeds volume %.2f", model.ErrInvariantViolation, order.ID, order.Filled, order.Volume))
	}
	if _, ok := lvl.byID[order.ID]; ok {
		lvl.collector.Push(model.NewOrderEvent(model.EventChange, order))
		return
	}
	elem := lvl.orders.PushBack(order)
	lvl.byID[order.ID] = elem
	lvl.collector.Push(model.NewOrderEvent(model.EventOpen, order))
}

// Remove removes order from the queue, emitting CANCEL. Returns
// model.ErrOutOfSync if order is not resting at this level.
func (lvl *PriceLevel) Remove(order *model.Order) error {
	elem, ok := lvl.byID[order.ID]
	if !ok || model.Tick(order.Price) != model.Tick(lvl.price) {
		return model.ErrOutOfSync
	}
	lvl.orders.Remove(elem)
	delete(lvl.byID, order.ID)
	lvl.collector.Push(model.NewOrderEvent(model.EventCancel, order))
	return nil
}

// Cross consumes resting orders FIFO against taker until either the
// taker is fully filled or the level runs empty.
//
// Returns remainder = nil when the taker is fully filled. Otherwise
// remainder is taker, still carrying its leftover volume, with the
// level now empty — the caller (internal/book) is responsible for
// advancing to the next level and, once the submission's sweep
// concludes, for synthesizing a single aggregated TRADE event covering
// every level it touched (TRADE is deliberately not pushed here, one
// per level). lastMaker is the most recent maker this call touched,
// whatever the outcome — the caller needs it to build that TRADE.
func (lvl *PriceLevel) Cross(taker *model.Order) (remainder *model.Order, lastMaker *model.Order) {
	for taker.Filled < taker.Volume && lvl.orders.Len() > 0 {
		toFill := taker.Volume - taker.Filled

		front := lvl.orders.Front()
		maker := front.Value.(*model.Order)
		lvl.orders.Remove(front)
		delete(lvl.byID, maker.ID)
		makerRemaining := maker.Volume - maker.Filled
		lastMaker = maker

		switch {
		case makerRemaining > toFill:
			// maker partially fills; taker is now exhausted.
			maker.Filled += toFill
			elem := lvl.orders.PushFront(maker)
			lvl.byID[maker.ID] = elem
			taker.Filled = taker.Volume
			lvl.collector.Push(model.NewOrderEvent(model.EventFill, taker))
			lvl.collector.Push(model.NewOrderEvent(model.EventChange, maker))

		case makerRemaining < toFill:
			// maker fully fills; taker keeps sweeping.
			taker.Filled += makerRemaining
			maker.Filled = maker.Volume
			lvl.collector.Push(model.NewOrderEvent(model.EventChange, taker))
			lvl.collector.Push(model.NewOrderEvent(model.EventFill, maker))

		default:
			// both complete exactly.
			maker.Filled += toFill
			taker.Filled += makerRemaining
			lvl.collector.Push(model.NewOrderEvent(model.EventFill, taker))
			lvl.collector.Push(model.NewOrderEvent(model.EventFill, maker))
		}

		if maker.Filled > maker.Volume || taker.Filled > taker.Volume {
			panic(fmt.Errorf("%w: fill exceeded volume crossing maker %s against taker %s", model.ErrInvariantViolation, maker.ID, taker.ID))
		}
	}

	if taker.Filled >= taker.Volume {
		return nil, lastMaker
	}
	return taker, lastMaker
}

// Iter calls fn for every resting order, head to tail, stopping early
// if fn returns false.
func (lvl *PriceLevel) Iter(fn func(*model.Order) bool) {
	for e := lvl.orders.Front(); e != nil; e = e.Next() {
		if !fn(e.Value.(*model.Order)) {
			return
		}
	}
}
