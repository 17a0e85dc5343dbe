package book

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ironbook/internal/model"
)

// seededBook builds a book shared by every scenario below:
// BUY 5.0x1.0, BUY 4.5x1.0, SELL 5.5x1.0, SELL 6.0x1.0, SELL 6.5x1.0.
func seededBook(t *testing.T, sink func(model.Event)) *OrderBook {
	t.Helper()
	b := New("AAPL", "NASDAQ", sink)
	seed := []struct {
		side  model.Side
		price float64
	}{
		{model.Buy, 5.0},
		{model.Buy, 4.5},
		{model.Sell, 5.5},
		{model.Sell, 6.0},
		{model.Sell, 6.5},
	}
	for i, s := range seed {
		err := b.Submit(&model.Order{
			ID:        idFor(i),
			Side:      s.side,
			Price:     s.price,
			Volume:    1.0,
			OrderType: model.LimitOrder,
		})
		require.NoError(t, err)
	}
	return b
}

func idFor(i int) string {
	return []string{"seed-buy-5.0", "seed-buy-4.5", "seed-sell-5.5", "seed-sell-6.0", "seed-sell-6.5"}[i]
}

func collectEvents() (func(model.Event), *[]model.Event) {
	events := &[]model.Event{}
	return func(e model.Event) { *events = append(*events, e) }, events
}

func TestScenario1_LimitSellPartialFillAtBid(t *testing.T) {
	sink, events := collectEvents()
	b := seededBook(t, sink)
	*events = nil

	taker := &model.Order{ID: "t1", Side: model.Sell, Price: 5.0, Volume: 0.5, OrderType: model.LimitOrder}
	require.NoError(t, b.Submit(taker))

	require.Len(t, *events, 3)
	assert.Equal(t, model.EventFill, (*events)[0].Type)
	assert.Equal(t, model.EventChange, (*events)[1].Type)
	maker := (*events)[1].Target.(*model.Order)
	assert.Equal(t, 0.5, maker.Filled)
	assert.Equal(t, model.EventTrade, (*events)[2].Type)
	trade := (*events)[2].Target.(*model.Trade)
	assert.Equal(t, 5.0, trade.Price)
	assert.Equal(t, 0.5, trade.Volume)

	bid, ask := b.TopOfBook()
	assert.Equal(t, Quote{5.0, 0.5}, bid)
	assert.Equal(t, Quote{5.5, 1.0}, ask)
}

func TestScenario2_LimitBuySweepsTwoLevels(t *testing.T) {
	sink, events := collectEvents()
	b := seededBook(t, sink)
	*events = nil

	taker := &model.Order{ID: "t2", Side: model.Buy, Price: 6.0, Volume: 1.5, OrderType: model.LimitOrder}
	require.NoError(t, b.Submit(taker))

	require.Len(t, *events, 5)
	assert.Equal(t, []model.EventType{
		model.EventChange, model.EventFill, model.EventFill, model.EventChange, model.EventTrade,
	}, eventTypes(*events))

	trade := (*events)[4].Target.(*model.Trade)
	assert.Equal(t, 6.0, trade.Price)
	assert.Equal(t, 1.5, trade.Volume)

	bid, ask := b.TopOfBook()
	assert.Equal(t, Quote{5.0, 1.0}, bid)
	assert.Equal(t, Quote{6.0, 0.5}, ask)
}

func TestScenario3_FOKRejectsWithoutCrossing(t *testing.T) {
	sink, events := collectEvents()
	b := seededBook(t, sink)
	*events = nil

	taker := &model.Order{ID: "t3", Side: model.Buy, Price: 5.2, Volume: 0.5, OrderType: model.LimitOrder, Flag: model.FillOrKill}
	require.NoError(t, b.Submit(taker))

	assert.Empty(t, *events)
	assert.Equal(t, 0.0, taker.Filled)

	bid, ask := b.TopOfBook()
	assert.Equal(t, Quote{5.0, 1.0}, bid)
	assert.Equal(t, Quote{5.5, 1.0}, ask)
}

func TestScenario4_MarketSellSweepsBothBidsPartially(t *testing.T) {
	sink, events := collectEvents()
	b := seededBook(t, sink)
	*events = nil

	taker := &model.Order{ID: "t4", Side: model.Sell, Volume: 3.0, OrderType: model.MarketOrder}
	require.NoError(t, b.Submit(taker))

	require.Len(t, *events, 5)
	assert.Equal(t, []model.EventType{
		model.EventChange, model.EventFill, model.EventChange, model.EventFill, model.EventTrade,
	}, eventTypes(*events))

	trade := (*events)[4].Target.(*model.Trade)
	assert.Equal(t, 4.5, trade.Price)
	assert.Equal(t, 2.0, trade.Volume)

	bid, _ := b.TopOfBook()
	assert.Equal(t, Quote{0, 0}, bid)
}

func TestScenario5_CancelRestingBid(t *testing.T) {
	sink, events := collectEvents()
	b := seededBook(t, sink)
	*events = nil

	err := b.Cancel(&model.Order{ID: "seed-buy-5.0", Side: model.Buy, Price: 5.0})
	require.NoError(t, err)

	require.Len(t, *events, 1)
	assert.Equal(t, model.EventCancel, (*events)[0].Type)

	bid, _ := b.TopOfBook()
	assert.Equal(t, Quote{4.5, 1.0}, bid)
}

func TestScenario6_IOCPartialFillThenCancel(t *testing.T) {
	sink, events := collectEvents()
	b := seededBook(t, sink)
	*events = nil

	taker := &model.Order{ID: "t6", Side: model.Buy, Price: 5.5, Volume: 2.0, OrderType: model.LimitOrder, Flag: model.ImmediateOrCancel}
	require.NoError(t, b.Submit(taker))

	require.Len(t, *events, 3)
	assert.Equal(t, []model.EventType{model.EventChange, model.EventFill, model.EventCancel}, eventTypes(*events))
	assert.Equal(t, 1.0, taker.Filled)

	bid, ask := b.TopOfBook()
	assert.Equal(t, Quote{5.0, 1.0}, bid)
	assert.Equal(t, Quote{6.0, 1.0}, ask)
}

func eventTypes(events []model.Event) []model.EventType {
	out := make([]model.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestCancelOutOfSync(t *testing.T) {
	b := New("AAPL", "NASDAQ", nil)
	err := b.Cancel(&model.Order{ID: "missing", Side: model.Buy, Price: 10})
	assert.ErrorIs(t, err, model.ErrOutOfSync)
}

func TestUnsupportedStopOrderType(t *testing.T) {
	b := New("AAPL", "NASDAQ", nil)
	err := b.Submit(&model.Order{ID: "s1", OrderType: model.StopLimitOrder, Side: model.Buy, Price: 1, Volume: 1})
	assert.ErrorIs(t, err, model.ErrUnsupportedOrderType)
}

func TestEmptyTopOfBook(t *testing.T) {
	b := New("AAPL", "NASDAQ", nil)
	bid, ask := b.TopOfBook()
	assert.Equal(t, Quote{0, 0}, bid)
	assert.Equal(t, Quote{math.Inf(1), 0}, ask)
	assert.True(t, math.IsInf(b.Spread(), 1))
}

func TestAllOrNoneBehavesLikeFillOrKillWhenInsufficientLiquidity(t *testing.T) {
	sink, events := collectEvents()
	b := seededBook(t, sink)
	*events = nil

	taker := &model.Order{ID: "t7", Side: model.Buy, Price: 7.0, Volume: 10, OrderType: model.LimitOrder, Flag: model.AllOrNone}
	require.NoError(t, b.Submit(taker))

	assert.Empty(t, *events)
	assert.Equal(t, 0.0, taker.Filled)
}

func TestLimitRestsRemainderAfterPartialFill(t *testing.T) {
	sink, events := collectEvents()
	b := seededBook(t, sink)
	*events = nil

	taker := &model.Order{ID: "t8", Side: model.Sell, Price: 5.0, Volume: 1.5, OrderType: model.LimitOrder}
	require.NoError(t, b.Submit(taker))

	last := (*events)[len(*events)-1]
	assert.Equal(t, model.EventOpen, last.Type)
	assert.Same(t, taker, last.Target)

	ask, ok := b.Level(0, model.Sell)
	require.True(t, ok)
	assert.Equal(t, 5.0, ask.Price)
	assert.Equal(t, 0.5, ask.Size)
}

func TestLevelsReturnsBothSidesTopDown(t *testing.T) {
	b := seededBook(t, nil)
	snap := b.Levels(2)
	require.Len(t, snap.Ask, 2)
	require.Len(t, snap.Bid, 2)
	assert.Equal(t, 5.5, snap.Ask[0].Price)
	assert.Equal(t, 6.0, snap.Ask[1].Price)
	assert.Equal(t, 5.0, snap.Bid[0].Price)
	assert.Equal(t, 4.5, snap.Bid[1].Price)
}

func TestEachIteratesAsksThenBidsTopDown(t *testing.T) {
	b := seededBook(t, nil)
	var prices []float64
	b.Each(func(o *model.Order) bool {
		prices = append(prices, o.Price)
		return true
	})
	assert.Equal(t, []float64{5.5, 6.0, 6.5, 5.0, 4.5}, prices)
}

func TestRenderShowsSellsAboveSeparatorAboveBuys(t *testing.T) {
	b := seededBook(t, nil)
	out := b.Render()
	assert.Contains(t, out, "-----------------------------------------------------")
	assert.Contains(t, out, "6.50")
	assert.Contains(t, out, "4.50")
	sep := strings.Index(out, "-----------------------------------------------------")
	assert.Less(t, strings.Index(out, "6.50"), sep)
	assert.Less(t, sep, strings.Index(out, "4.50"))
}
