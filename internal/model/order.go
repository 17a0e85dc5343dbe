package model

import (
	"fmt"
	"math"
	"time"
)

// TickScale is the canonical price resolution used to compare and key
// prices. Two prices that round to the same tick are considered the
// same price level, avoiding float64 exact-equality comparisons.
const TickScale = 100

// Tick canonicalizes a price to its integer cent resolution so that
// ladder/level identity never depends on float64 exact-equality.
func Tick(price float64) int64 {
	return int64(math.Round(price * TickScale))
}

// TickPrice rounds price to the canonical resolution, the value that
// is actually stored as a PriceLevel's price and shown to callers.
func TickPrice(price float64) float64 {
	return float64(Tick(price)) / TickScale
}

// Order is both a submitted instruction and, once resting, the record
// held by a PriceLevel. Apart from a zero Timestamp, which the book's
// Submit sets to the current time, the only field mutated after
// construction is Filled, and only by the matching routine in
// internal/level.
type Order struct {
	ID         string
	Timestamp  time.Time
	Side       Side
	Price      float64
	Volume     float64
	Filled     float64
	OrderType  OrderType
	Flag       OrderFlag
	Instrument string
	Exchange   string
}

// Remaining returns the unfilled volume of the order.
func (o *Order) Remaining() float64 {
	return o.Volume - o.Filled
}

// Terminal reports whether the order has no remaining volume and must
// no longer be referenced by any level.
func (o *Order) Terminal() bool {
	return o.Filled >= o.Volume
}

func (o *Order) String() string {
	return fmt.Sprintf(
		"Order{id=%s side=%s type=%v flag=%v price=%.2f volume=%.2f filled=%.2f instrument=%s exchange=%s}",
		o.ID, o.Side, o.OrderType, o.Flag, o.Price, o.Volume, o.Filled, o.Instrument, o.Exchange,
	)
}
