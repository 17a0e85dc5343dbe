package model

import "errors"

// Error taxonomy for the matching core.
var (
	// ErrOutOfSync is returned when a cancel targets a level or order
	// that is not present on the book. The book is left unchanged.
	ErrOutOfSync = errors.New("orderbook: out of sync")

	// ErrUnsupportedOrderType is returned for STOP_MARKET/STOP_LIMIT and
	// any other order type the matching core does not implement.
	ErrUnsupportedOrderType = errors.New("orderbook: unsupported order type")

	// ErrInvariantViolation signals internal corruption (ladder key set
	// diverges from the level map, or an order with filled > volume is
	// observed). Callers should treat this as fatal.
	ErrInvariantViolation = errors.New("orderbook: invariant violation")
)
