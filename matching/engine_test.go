package matching

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/otrenterprises/tiltedtrades/market"
)

var base = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

// fill builds an execution n minutes after the session open. The symbol
// "TST" has no fee schedule entry and no contract metadata, so gross P&L
// is simply price delta times quantity.
func fill(id string, side market.Side, qty int64, price float64, minute int) market.Execution {
	return market.Execution{
		UserID:      "u1",
		ExecutionID: id,
		Symbol:      "TST",
		Side:        side,
		Quantity:    qty,
		Price:       price,
		Time:        base.Add(time.Duration(minute) * time.Minute),
		TradingDay:  "2024-01-02",
	}
}

func freeEngine() *Engine {
	return NewEngine(market.FeeSchedule{}, market.BaselineTier)
}

func closedOf(trades []Trade) []Trade {
	var out []Trade
	for _, tr := range trades {
		if tr.Closed() {
			out = append(out, tr)
		}
	}
	return out
}

func openOf(trades []Trade) []Trade {
	var out []Trade
	for _, tr := range trades {
		if !tr.Closed() {
			out = append(out, tr)
		}
	}
	return out
}

// A buy of 2 followed by two partial sells closes two one-lot trades under
// both policies, since the position was built from a single fill.
func TestPartialCloseBothPolicies(t *testing.T) {
	t.Parallel()

	execs := []market.Execution{
		fill("e1", market.SideBuy, 2, 100, 0),
		fill("e2", market.SideSell, 1, 110, 1),
		fill("e3", market.SideSell, 1, 120, 2),
	}

	for _, policy := range Policies {
		trades, err := freeEngine().MatchTrades(execs, policy)
		assert.NoError(t, err)
		assert.Len(t, trades, 2, "policy %s", policy)

		for _, tr := range trades {
			assert.Equal(t, StatusClosed, tr.Status)
			assert.Equal(t, int64(1), tr.Quantity)
			assert.InDelta(t, 100.0, tr.EntryPrice, 1e-9)
			assert.Equal(t, DirectionLong, tr.Direction)
		}
		assert.InDelta(t, 10.0, trades[0].NetPL, 1e-9)
		assert.InDelta(t, 20.0, trades[1].NetPL, 1e-9)
	}
}

// Three buys at rising prices closed by one sell: FIFO realizes one trade
// per lot, Per-Position one trade against the volume-weighted average.
func TestPolicyDivergence(t *testing.T) {
	t.Parallel()

	execs := []market.Execution{
		fill("e1", market.SideBuy, 1, 100, 0),
		fill("e2", market.SideBuy, 1, 110, 1),
		fill("e3", market.SideBuy, 1, 120, 2),
		fill("e4", market.SideSell, 3, 130, 3),
	}

	fifo, err := freeEngine().MatchTrades(execs, PolicyFIFO)
	assert.NoError(t, err)
	assert.Len(t, fifo, 3)
	assert.InDelta(t, 30.0, fifo[0].NetPL, 1e-9)
	assert.InDelta(t, 20.0, fifo[1].NetPL, 1e-9)
	assert.InDelta(t, 10.0, fifo[2].NetPL, 1e-9)

	perPos, err := freeEngine().MatchTrades(execs, PolicyPerPosition)
	assert.NoError(t, err)
	assert.Len(t, perPos, 1)
	assert.Equal(t, int64(3), perPos[0].Quantity)
	assert.InDelta(t, 110.0, perPos[0].EntryPrice, 1e-9)
	assert.InDelta(t, 60.0, perPos[0].NetPL, 1e-9)
	assert.Equal(t, []string{"e1", "e2", "e3", "e4"}, perPos[0].Executions)

	// Total realized P&L agrees across policies.
	var fifoSum float64
	for _, tr := range fifo {
		fifoSum += tr.NetPL
	}
	assert.InDelta(t, perPos[0].NetPL, fifoSum, 1e-9)
}

func TestMatchDeterminism(t *testing.T) {
	t.Parallel()

	execs := []market.Execution{
		fill("e1", market.SideBuy, 3, 100, 0),
		fill("e2", market.SideSell, 1, 105, 1),
		fill("e3", market.SideBuy, 2, 98, 2),
		fill("e4", market.SideSell, 6, 101, 3),
	}

	for _, policy := range Policies {
		first, err := freeEngine().MatchTrades(execs, policy)
		assert.NoError(t, err)
		second, err := freeEngine().MatchTrades(execs, policy)
		assert.NoError(t, err)
		assert.Equal(t, first, second, "policy %s", policy)
	}
}

func TestMatchIgnoresInputOrder(t *testing.T) {
	t.Parallel()

	ordered := []market.Execution{
		fill("e1", market.SideBuy, 2, 100, 0),
		fill("e2", market.SideSell, 1, 110, 1),
		fill("e3", market.SideSell, 1, 120, 2),
	}
	shuffled := []market.Execution{ordered[2], ordered[0], ordered[1]}

	for _, policy := range Policies {
		want, err := freeEngine().MatchTrades(ordered, policy)
		assert.NoError(t, err)
		got, err := freeEngine().MatchTrades(shuffled, policy)
		assert.NoError(t, err)
		assert.Equal(t, want, got, "policy %s", policy)
	}
}

// Quantity conservation: every executed contract is accounted for exactly
// once as an entry leg and once as an exit leg (or once in an open trade).
func TestQuantityConservation(t *testing.T) {
	t.Parallel()

	execs := []market.Execution{
		fill("e1", market.SideBuy, 4, 100, 0),
		fill("e2", market.SideBuy, 2, 102, 1),
		fill("e3", market.SideSell, 5, 104, 2),
		fill("e4", market.SideSell, 3, 103, 3), // flips short by 2
		fill("e5", market.SideBuy, 1, 101, 4),
	}

	var executed int64
	for _, ex := range execs {
		executed += ex.Quantity
	}

	for _, policy := range Policies {
		trades, err := freeEngine().MatchTrades(execs, policy)
		assert.NoError(t, err)

		var accounted int64
		for _, tr := range trades {
			if tr.Closed() {
				accounted += 2 * tr.Quantity
			} else {
				accounted += tr.Quantity
			}
		}
		assert.Equal(t, executed, accounted, "policy %s", policy)
	}
}

// A sell bigger than the open long closes the long and opens a short for
// the remainder; the flipping execution appears in both trades.
func TestReversalOpensOppositePosition(t *testing.T) {
	t.Parallel()

	execs := []market.Execution{
		fill("e1", market.SideBuy, 2, 100, 0),
		fill("e2", market.SideSell, 5, 110, 1),
	}

	for _, policy := range Policies {
		trades, err := freeEngine().MatchTrades(execs, policy)
		assert.NoError(t, err)

		closed := closedOf(trades)
		assert.Len(t, closed, 1, "policy %s", policy)
		assert.Equal(t, DirectionLong, closed[0].Direction)
		assert.Equal(t, int64(2), closed[0].Quantity)
		assert.InDelta(t, 20.0, closed[0].NetPL, 1e-9)
		assert.Equal(t, []string{"e1", "e2"}, closed[0].Executions)

		open := openOf(trades)
		assert.Len(t, open, 1, "policy %s", policy)
		assert.Equal(t, DirectionShort, open[0].Direction)
		assert.Equal(t, int64(3), open[0].Quantity)
		assert.InDelta(t, 110.0, open[0].EntryPrice, 1e-9)
		assert.Equal(t, []string{"e2"}, open[0].Executions)
	}
}

func TestExactCloseLeavesNothingOpen(t *testing.T) {
	t.Parallel()

	execs := []market.Execution{
		fill("e1", market.SideSell, 3, 100, 0),
		fill("e2", market.SideBuy, 3, 95, 1),
	}

	for _, policy := range Policies {
		trades, err := freeEngine().MatchTrades(execs, policy)
		assert.NoError(t, err)
		assert.Len(t, trades, 1)
		assert.Equal(t, StatusClosed, trades[0].Status)
		assert.Equal(t, DirectionShort, trades[0].Direction)
		assert.InDelta(t, 15.0, trades[0].NetPL, 1e-9)
	}
}

func TestZeroQuantityRejected(t *testing.T) {
	t.Parallel()

	execs := []market.Execution{
		fill("e1", market.SideBuy, 2, 100, 0),
		fill("e2", market.SideSell, 0, 110, 1),
	}

	for _, policy := range Policies {
		_, err := freeEngine().MatchTrades(execs, policy)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, market.ErrZeroQuantity))
	}
}

func TestUnknownPolicyRejected(t *testing.T) {
	t.Parallel()

	_, err := freeEngine().MatchTrades(nil, Policy("LIFO"))
	assert.Error(t, err)
}

func TestTradingDayComesFromEntry(t *testing.T) {
	t.Parallel()

	entry := fill("e1", market.SideBuy, 1, 100, 0)
	exit := fill("e2", market.SideSell, 1, 105, 1)
	exit.Time = entry.Time.Add(20 * time.Hour)
	exit.TradingDay = "2024-01-03"

	for _, policy := range Policies {
		trades, err := freeEngine().MatchTrades([]market.Execution{entry, exit}, policy)
		assert.NoError(t, err)
		assert.Len(t, trades, 1)
		assert.Equal(t, "2024-01-02", trades[0].TradingDay)
		assert.Equal(t, 20*time.Hour, trades[0].Duration)
	}
}

func TestCommissionChargedPerLeg(t *testing.T) {
	t.Parallel()

	eng := NewEngine(market.DefaultFeeSchedule(), "3")

	mes := func(id string, side market.Side, qty int64, price float64, minute int) market.Execution {
		ex := fill(id, side, qty, price, minute)
		ex.Symbol = "MES"
		return ex
	}

	trades, err := eng.MatchTrades([]market.Execution{
		mes("e1", market.SideBuy, 2, 5000, 0),
		mes("e2", market.SideSell, 2, 5002, 1),
	}, PolicyFIFO)
	assert.NoError(t, err)
	assert.Len(t, trades, 1)

	tr := trades[0]
	// Entry and exit legs, 2 contracts each at 0.69/contract.
	assert.InDelta(t, -2.76, tr.Commission, 1e-9)
	// 2 points * 2 contracts * $5/point.
	assert.InDelta(t, 20.0, tr.GrossPL, 1e-9)
	assert.InDelta(t, 17.24, tr.NetPL, 1e-9)
}

func TestOpenTradeCarriesOneLegCommission(t *testing.T) {
	t.Parallel()

	eng := NewEngine(market.DefaultFeeSchedule(), "1")

	ex := fill("e1", market.SideBuy, 3, 5000, 0)
	ex.Symbol = "MES"

	trades, err := eng.MatchTrades([]market.Execution{ex}, PolicyFIFO)
	assert.NoError(t, err)
	assert.Len(t, trades, 1)

	tr := trades[0]
	assert.Equal(t, StatusOpen, tr.Status)
	assert.InDelta(t, -2.67, tr.Commission, 1e-9) // 3 contracts at 0.89
	assert.Zero(t, tr.GrossPL)
	assert.Zero(t, tr.NetPL)
	assert.True(t, tr.ExitTime.IsZero())
	assert.Empty(t, tr.RawID)
}

// Trade ids are policy-scoped; raw ids identify the closing fill and are
// shared across policies.
func TestTradeIdentity(t *testing.T) {
	t.Parallel()

	execs := []market.Execution{
		fill("e1", market.SideBuy, 1, 100, 0),
		fill("e2", market.SideSell, 1, 105, 1),
	}

	fifo, err := freeEngine().MatchTrades(execs, PolicyFIFO)
	assert.NoError(t, err)
	perPos, err := freeEngine().MatchTrades(execs, PolicyPerPosition)
	assert.NoError(t, err)

	assert.Len(t, fifo, 1)
	assert.Len(t, perPos, 1)
	assert.NotEqual(t, fifo[0].TradeID, perPos[0].TradeID)
	assert.Equal(t, fifo[0].RawID, perPos[0].RawID)
	assert.NotEmpty(t, fifo[0].RawID)
}

func TestSymbolsMatchedIndependently(t *testing.T) {
	t.Parallel()

	other := fill("x1", market.SideBuy, 1, 50, 0)
	other.Symbol = "OTH"

	execs := []market.Execution{
		fill("e1", market.SideBuy, 1, 100, 0),
		other,
		fill("e2", market.SideSell, 1, 110, 2),
	}

	trades, err := freeEngine().MatchTrades(execs, PolicyFIFO)
	assert.NoError(t, err)
	assert.Len(t, trades, 2)

	closed := closedOf(trades)
	assert.Len(t, closed, 1)
	assert.Equal(t, "TST", closed[0].Symbol)

	open := openOf(trades)
	assert.Len(t, open, 1)
	assert.Equal(t, "OTH", open[0].Symbol)
}

func TestPerPositionAveragesPartialClose(t *testing.T) {
	t.Parallel()

	execs := []market.Execution{
		fill("e1", market.SideBuy, 1, 100, 0),
		fill("e2", market.SideBuy, 1, 110, 1),
		fill("e3", market.SideSell, 1, 120, 2),
	}

	trades, err := freeEngine().MatchTrades(execs, PolicyPerPosition)
	assert.NoError(t, err)
	assert.Len(t, trades, 2)

	closed := closedOf(trades)
	assert.Len(t, closed, 1)
	assert.InDelta(t, 105.0, closed[0].EntryPrice, 1e-9)
	assert.InDelta(t, 15.0, closed[0].NetPL, 1e-9)
	assert.Equal(t, []string{"e1", "e2", "e3"}, closed[0].Executions)

	open := openOf(trades)
	assert.Len(t, open, 1)
	assert.Equal(t, int64(1), open[0].Quantity)
	assert.InDelta(t, 105.0, open[0].EntryPrice, 1e-9)
}
