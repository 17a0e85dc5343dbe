// Package collector buffers events produced mid-match and commits or
// discards them atomically so downstream observers never see a
// half-applied trade.
package collector

import (
	"time"

	"ironbook/internal/model"
)

// Sink receives committed events. It must be non-blocking and must
// not reenter the book on the same executor.
type Sink func(model.Event)

// Collector buffers events for one submission and delivers them to a
// Sink only on Flush; Clear always runs at the end of a submission.
type Collector struct {
	sink   Sink
	buffer []model.Event
}

// New creates a Collector delivering to sink.
func New(sink Sink) *Collector {
	return &Collector{sink: sink}
}

// SetCallback replaces the sink.
func (c *Collector) SetCallback(sink Sink) {
	c.sink = sink
}

// Push stages event for the next Flush.
func (c *Collector) Push(e model.Event) {
	c.buffer = append(c.buffer, e)
}

// PushTrade synthesizes and stages a TRADE event summarizing order's
// fill so far at price: the single aggregated trade a crossing
// submission produces when the taker is fully filled, or when a market
// order is partially filled. IOC and resting limit remainders get none.
func (c *Collector) PushTrade(order *model.Order, price float64, maker *model.Order) {
	c.Push(model.NewTradeEvent(&model.Trade{
		Timestamp:  time.Now(),
		Instrument: order.Instrument,
		Price:      price,
		Volume:     order.Filled,
		Side:       order.Side,
		Maker:      maker,
		Taker:      order,
		Exchange:   order.Exchange,
	}))
}

// PushCancel stages a CANCEL event for an IOC order's unfilled
// remainder.
func (c *Collector) PushCancel(order *model.Order) {
	c.Push(model.NewOrderEvent(model.EventCancel, order))
}

// Flush delivers every buffered event to the sink, in insertion order.
func (c *Collector) Flush() {
	for _, e := range c.buffer {
		c.sink(e)
	}
	c.buffer = nil
}

// Clear drops the buffer without delivery. Always safe to call after
// Flush: the buffer is already empty.
func (c *Collector) Clear() {
	c.buffer = nil
}

// Pending reports how many events are currently staged, for tests.
func (c *Collector) Pending() int {
	return len(c.buffer)
}
