package model

import "fmt"

// Event is the sole externally observable record of book mutation.
// Target is either an *Order or a *Trade depending on Type.
type Event struct {
	Type   EventType
	Target any
}

func (e Event) String() string {
	return fmt.Sprintf("[%s-%v]", e.Type, e.Target)
}

// NewOrderEvent builds an Event whose target is an order.
func NewOrderEvent(t EventType, order *Order) Event {
	return Event{Type: t, Target: order}
}

// NewTradeEvent builds an Event whose target is a trade.
func NewTradeEvent(trade *Trade) Event {
	return Event{Type: EventTrade, Target: trade}
}
