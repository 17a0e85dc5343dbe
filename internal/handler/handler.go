// Package handler turns the raw collector.Sink event stream into a
// dispatch table keyed by event kind, the way a consumer of the book
// is expected to observe it.
package handler

import (
	"github.com/rs/zerolog/log"

	"ironbook/internal/collector"
	"ironbook/internal/model"
)

// Handler receives book events split out by kind.
type Handler interface {
	OnOpen(order *model.Order)
	OnFill(order *model.Order)
	OnChange(order *model.Order)
	OnCancel(order *model.Order)
	OnTrade(trade *model.Trade)
}

// Dispatch adapts h into a collector.Sink, routing each event to the
// matching Handler method.
func Dispatch(h Handler) collector.Sink {
	return func(e model.Event) {
		switch e.Type {
		case model.EventOpen:
			h.OnOpen(e.Target.(*model.Order))
		case model.EventFill:
			h.OnFill(e.Target.(*model.Order))
		case model.EventChange:
			h.OnChange(e.Target.(*model.Order))
		case model.EventCancel:
			h.OnCancel(e.Target.(*model.Order))
		case model.EventTrade:
			h.OnTrade(e.Target.(*model.Trade))
		default:
			log.Error().Str("type", e.Type.String()).Msg("unhandled event type")
		}
	}
}

// LogHandler is a Handler that records every event as a structured
// zerolog line, the Go analogue of the original's PrintHandler.
type LogHandler struct {
	Instrument string
}

func (h LogHandler) OnOpen(order *model.Order) {
	log.Info().Str("instrument", h.Instrument).Str("orderID", order.ID).
		Float64("price", order.Price).Float64("volume", order.Volume).
		Msg("order opened")
}

func (h LogHandler) OnFill(order *model.Order) {
	log.Info().Str("instrument", h.Instrument).Str("orderID", order.ID).
		Float64("filled", order.Filled).Msg("order filled")
}

func (h LogHandler) OnChange(order *model.Order) {
	log.Info().Str("instrument", h.Instrument).Str("orderID", order.ID).
		Float64("filled", order.Filled).Float64("remaining", order.Remaining()).
		Msg("order changed")
}

func (h LogHandler) OnCancel(order *model.Order) {
	log.Info().Str("instrument", h.Instrument).Str("orderID", order.ID).
		Msg("order cancelled")
}

func (h LogHandler) OnTrade(trade *model.Trade) {
	log.Info().Str("instrument", h.Instrument).
		Float64("price", trade.Price).Float64("volume", trade.Volume).
		Str("makerID", trade.Maker.ID).Str("takerID", trade.Taker.ID).
		Msg("trade")
}
