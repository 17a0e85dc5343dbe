package model

import (
	"fmt"
	"time"
)

// Trade summarizes one submission's crossing against one or more
// resting makers. Price is the last maker price touched; price
// improvement accrues to the taker. Trade is immutable once emitted.
type Trade struct {
	Timestamp  time.Time
	Instrument string
	Price      float64
	Volume     float64
	Side       Side
	Maker      *Order
	Taker      *Order
	Exchange   string
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{instrument=%s price=%.2f volume=%.2f side=%s exchange=%s}",
		t.Instrument, t.Price, t.Volume, t.Side, t.Exchange,
	)
}
