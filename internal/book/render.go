package book

import (
	"fmt"
	"strings"

	"ironbook/internal/level"
)

// Render produces a human-readable depth ladder: the top 5 levels of
// each side shown individually, levels 6-10 aggregated, each further
// block doubling in size (11-20, 21-40, ...). Sells print top-to-bottom
// in descending price, then a separator, then buys in descending
// price. Each block past the first aggregated one starts a fresh
// group rather than folding into one ever-growing block.
func (b *OrderBook) Render() string {
	var sb strings.Builder

	asks := b.Asks.AllLevels()
	askGroups := groupForRender(asks)
	for i := len(askGroups) - 1; i >= 0; i-- {
		writeGroup(&sb, askGroups[i], true)
	}

	sb.WriteString("-----------------------------------------------------\n")

	bids := b.Bids.AllLevels()
	bidGroups := groupForRender(bids)
	for _, group := range bidGroups {
		writeGroup(&sb, group, false)
	}

	return sb.String()
}

// groupForRender splits levels (already in best-first rank order)
// into the top-5-individual plus doubling-block scheme.
func groupForRender(levels []*level.PriceLevel) [][]*level.PriceLevel {
	var groups [][]*level.PriceLevel
	i := 0
	for i < len(levels) && i < 5 {
		groups = append(groups, levels[i:i+1])
		i++
	}
	blockSize := 5
	for i < len(levels) {
		end := i + blockSize
		if end > len(levels) {
			end = len(levels)
		}
		groups = append(groups, levels[i:end])
		i = end
		blockSize *= 2
	}
	return groups
}

func writeGroup(sb *strings.Builder, group []*level.PriceLevel, asksSide bool) {
	if len(group) == 0 {
		return
	}
	var volume float64
	for _, lvl := range group {
		volume += lvl.Volume()
	}

	priceLabel := fmt.Sprintf("%.2f", group[0].Price())
	if len(group) > 1 {
		priceLabel = fmt.Sprintf("%.2f - %.2f", group[0].Price(), group[len(group)-1].Price())
	}

	if asksSide {
		fmt.Fprintf(sb, "\t\t%s\t\t%.2f\n", priceLabel, volume)
		return
	}
	fmt.Fprintf(sb, "%.2f\t\t%s\n", volume, priceLabel)
}
