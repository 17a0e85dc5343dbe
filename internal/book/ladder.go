// Package book implements the order book: two sorted price ladders,
// the submit/cancel/query API, and the human-readable depth render.
//
// Ladder wraps a sorted tree of price levels, one per side, with
// strictly increasing keys, nth-level lookup, and ladder-order
// iteration.
package book

import (
	"fmt"

	"github.com/tidwall/btree"

	"ironbook/internal/collector"
	"ironbook/internal/level"
	"ironbook/internal/model"
)

// Ladder is one side (bids or asks) of the book: a btree of price
// levels ordered so that Scan/Min always yield best-price-first.
type Ladder struct {
	side model.Side
	tree *btree.BTreeG[*level.PriceLevel]
}

// NewLadder builds an empty ladder for side. Bids sort greatest price
// first; asks sort least price first.
func NewLadder(side model.Side) *Ladder {
	var less func(a, b *level.PriceLevel) bool
	if side == model.Buy {
		less = func(a, b *level.PriceLevel) bool { return a.Price() > b.Price() }
	} else {
		less = func(a, b *level.PriceLevel) bool { return a.Price() < b.Price() }
	}
	return &Ladder{side: side, tree: btree.NewBTreeG(less)}
}

// Len returns the number of distinct price levels on this side.
func (l *Ladder) Len() int { return l.tree.Len() }

// Best returns the top-of-ladder level (the aggressive price), if any.
func (l *Ladder) Best() (*level.PriceLevel, bool) {
	return l.tree.Min()
}

// Get returns the level resting at price, if one exists.
func (l *Ladder) Get(price float64) (*level.PriceLevel, bool) {
	lvl, ok := l.tree.Get(level.PriceKey(price))
	if ok {
		checkLevelKey(lvl, price)
	}
	return lvl, ok
}

// GetOrCreate returns the level at price, creating (and inserting)
// one if none yet exists.
func (l *Ladder) GetOrCreate(price float64, c *collector.Collector) *level.PriceLevel {
	if lvl, ok := l.tree.Get(level.PriceKey(price)); ok {
		checkLevelKey(lvl, price)
		return lvl
	}
	lvl := level.New(price, l.side, c)
	l.tree.Set(lvl)
	return lvl
}

// checkLevelKey guards against the btree's key set diverging from the
// level it's supposed to index: a lookup for price must always return
// a level actually resting at that price.
func checkLevelKey(lvl *level.PriceLevel, price float64) {
	if model.Tick(lvl.Price()) != model.Tick(price) {
		panic(fmt.Errorf("%w: ladder lookup for %.2f returned level at %.2f", model.ErrInvariantViolation, price, lvl.Price()))
	}
}

// Remove deletes the level at price, if present.
func (l *Ladder) Remove(price float64) {
	l.tree.Delete(level.PriceKey(price))
}

// NthFromTop returns the n-th level from the top (0 = best), or false
// past the end of the ladder.
func (l *Ladder) NthFromTop(n int) (*level.PriceLevel, bool) {
	if n < 0 {
		return nil, false
	}
	var found *level.PriceLevel
	i := 0
	l.tree.Scan(func(lvl *level.PriceLevel) bool {
		if i == n {
			found = lvl
			return false
		}
		i++
		return true
	})
	return found, found != nil
}

// TopN returns up to n levels from the top, best first.
func (l *Ladder) TopN(n int) []*level.PriceLevel {
	if n <= 0 {
		return nil
	}
	out := make([]*level.PriceLevel, 0, n)
	l.tree.Scan(func(lvl *level.PriceLevel) bool {
		out = append(out, lvl)
		return len(out) < n
	})
	return out
}

// Iterate calls fn for every level, best to worst, until fn returns
// false.
func (l *Ladder) Iterate(fn func(*level.PriceLevel) bool) {
	l.tree.Scan(fn)
}

// AllLevels returns every level, best to worst.
func (l *Ladder) AllLevels() []*level.PriceLevel {
	out := make([]*level.PriceLevel, 0, l.tree.Len())
	l.tree.Scan(func(lvl *level.PriceLevel) bool {
		out = append(out, lvl)
		return true
	})
	return out
}
