// matching/engine.go
package matching

import (
	"fmt"
	"sort"

	"github.com/otrenterprises/tiltedtrades/market"
)

// Engine turns a chronologically ordered execution sequence into matched
// trades. It is a pure computation: no storage, no clocks, no randomness,
// so the same executions always produce byte-identical trades.
type Engine struct {
	Fees market.FeeSchedule
	Tier string // commission tier; "" or "fixed" resolve to the baseline tier
}

// NewEngine returns an engine using the given fee schedule and tier.
func NewEngine(fees market.FeeSchedule, tier string) *Engine {
	return &Engine{Fees: fees, Tier: market.NormalizeTier(tier)}
}

// MatchTrades matches executions into trades under the given policy.
// Executions must all belong to one user; each symbol is matched
// independently. The input slice is not modified.
func (e *Engine) MatchTrades(execs []market.Execution, policy Policy) ([]Trade, error) {
	if !policy.Valid() {
		return nil, fmt.Errorf("matching: unknown policy %q", policy)
	}

	for _, ex := range execs {
		if err := ex.Validate(); err != nil {
			return nil, fmt.Errorf("matching: %w", err)
		}
	}

	sorted := make([]market.Execution, len(execs))
	copy(sorted, execs)
	market.SortExecutions(sorted)

	// Group per symbol, keeping first-seen symbol order for determinism.
	bySymbol := map[string][]market.Execution{}
	var symbols []string
	for _, ex := range sorted {
		if _, ok := bySymbol[ex.Symbol]; !ok {
			symbols = append(symbols, ex.Symbol)
		}
		bySymbol[ex.Symbol] = append(bySymbol[ex.Symbol], ex)
	}

	var trades []Trade
	for _, sym := range symbols {
		switch policy {
		case PolicyFIFO:
			trades = append(trades, e.matchFIFO(bySymbol[sym])...)
		case PolicyPerPosition:
			trades = append(trades, e.matchPerPosition(bySymbol[sym])...)
		}
	}

	sort.SliceStable(trades, func(i, k int) bool {
		if !trades[i].EntryTime.Equal(trades[k].EntryTime) {
			return trades[i].EntryTime.Before(trades[k].EntryTime)
		}
		if !trades[i].ExitTime.Equal(trades[k].ExitTime) {
			return trades[i].ExitTime.Before(trades[k].ExitTime)
		}
		return trades[i].TradeID < trades[k].TradeID
	})
	return trades, nil
}

// lot is an open quantity at a specific entry price awaiting closure.
type lot struct {
	remaining int64
	price     float64
	entry     market.Execution
}

// matchFIFO keeps an ordered queue of open lots per symbol and closes the
// oldest lot first when an opposing fill arrives.
func (e *Engine) matchFIFO(execs []market.Execution) []Trade {
	var (
		trades []Trade
		lots   []lot
		dir    int64 // +1 long book, -1 short book, 0 empty
	)

	for _, ex := range execs {
		signed := ex.SignedQuantity()
		sign := int64(1)
		if signed < 0 {
			sign = -1
		}

		if dir == 0 || sign == dir {
			lots = append(lots, lot{remaining: ex.Quantity, price: ex.Price, entry: ex})
			dir = sign
			continue
		}

		// Opposing fill: consume lots oldest-first.
		rem := ex.Quantity
		for rem > 0 && len(lots) > 0 {
			front := &lots[0]
			closeQty := front.remaining
			if rem < closeQty {
				closeQty = rem
			}

			trades = append(trades, e.closedTrade(PolicyFIFO, front.entry, ex,
				front.price, closeQty, dir, []string{front.entry.ExecutionID, ex.ExecutionID}))

			front.remaining -= closeQty
			rem -= closeQty
			if front.remaining == 0 {
				lots = lots[1:]
			}
		}

		if len(lots) == 0 {
			dir = 0
		}

		// Remainder flips the book: the same execution re-enters as an opener.
		if rem > 0 {
			lots = append(lots, lot{remaining: rem, price: ex.Price, entry: ex})
			dir = sign
		}
	}

	for _, l := range lots {
		trades = append(trades, e.openTrade(PolicyFIFO, l.entry, l.price, l.remaining, dir,
			[]string{l.entry.ExecutionID}))
	}
	return trades
}

// matchPerPosition keeps a single running position per symbol with a
// volume-weighted average entry price. Each closing fill realizes P&L
// against that average, so a position built from many small fills closes
// as one trade per closing fill instead of one per lot.
func (e *Engine) matchPerPosition(execs []market.Execution) []Trade {
	var trades []Trade

	var (
		qty      int64 // open quantity, always positive while dir != 0
		dir      int64
		avg      float64
		first    market.Execution // opening execution of the current position
		entryIDs []string
	)

	reset := func() {
		qty, dir, avg = 0, 0, 0
		first = market.Execution{}
		entryIDs = nil
	}

	for _, ex := range execs {
		signed := ex.SignedQuantity()
		sign := int64(1)
		if signed < 0 {
			sign = -1
		}

		if dir == 0 || sign == dir {
			if dir == 0 {
				first = ex
			}
			avg = (avg*float64(qty) + ex.Price*float64(ex.Quantity)) / float64(qty+ex.Quantity)
			qty += ex.Quantity
			dir = sign
			entryIDs = append(entryIDs, ex.ExecutionID)
			continue
		}

		closeQty := ex.Quantity
		if closeQty > qty {
			closeQty = qty
		}

		execIDs := make([]string, 0, len(entryIDs)+1)
		execIDs = append(execIDs, entryIDs...)
		execIDs = append(execIDs, ex.ExecutionID)

		entry := first
		trades = append(trades, e.closedTrade(PolicyPerPosition, entry, ex, avg, closeQty, dir, execIDs))

		qty -= closeQty
		if qty == 0 {
			reset()
		}

		// A full reversal opens a fresh position in the opposite direction
		// for the remainder, with this execution as its entry.
		if rem := ex.Quantity - closeQty; rem > 0 {
			first = ex
			avg = ex.Price
			qty = rem
			dir = sign
			entryIDs = []string{ex.ExecutionID}
		}
	}

	if qty > 0 {
		trades = append(trades, e.openTrade(PolicyPerPosition, first, avg, qty, dir, entryIDs))
	}
	return trades
}

func (e *Engine) closedTrade(policy Policy, entry, exit market.Execution,
	entryPrice float64, quantity, dir int64, execIDs []string) Trade {

	meta := market.ContractFor(entry.Symbol)

	direction := DirectionLong
	if dir < 0 {
		direction = DirectionShort
	}

	// Per-contract fee charged on both the entry and the exit leg.
	commission := 2 * e.Fees.Commission(entry.Symbol, e.Tier, quantity)

	gross := (exit.Price - entryPrice) * float64(quantity) * meta.Multiplier * float64(dir)
	net := gross + commission

	plPct := 0.0
	if notional := entryPrice * float64(quantity) * meta.Multiplier; notional > 0 {
		plPct = net / notional * 100
	}

	ids := make([]string, len(execIDs))
	copy(ids, execIDs)

	return Trade{
		TradeID:    tradeID(policy, ids),
		RawID:      rawID(exit.ExecutionID),
		UserID:     entry.UserID,
		Policy:     policy,
		Symbol:     entry.Symbol,
		Direction:  direction,
		EntryTime:  entry.Time,
		ExitTime:   exit.Time,
		TradingDay: entry.TradingDay,
		EntryPrice: entryPrice,
		ExitPrice:  exit.Price,
		Quantity:   quantity,
		GrossPL:    gross,
		NetPL:      net,
		PLPercent:  plPct,
		Duration:   exit.Time.Sub(entry.Time),
		Commission: commission,
		Status:     StatusClosed,
		Executions: ids,
	}
}

func (e *Engine) openTrade(policy Policy, entry market.Execution,
	entryPrice float64, quantity, dir int64, execIDs []string) Trade {

	direction := DirectionLong
	if dir < 0 {
		direction = DirectionShort
	}

	ids := make([]string, len(execIDs))
	copy(ids, execIDs)

	return Trade{
		TradeID: tradeID(policy, ids),
		UserID:  entry.UserID,
		Policy:  policy,
		Symbol:  entry.Symbol,
		// Only the entry leg has been charged so far.
		Commission: e.Fees.Commission(entry.Symbol, e.Tier, quantity),
		Direction:  direction,
		EntryTime:  entry.Time,
		TradingDay: entry.TradingDay,
		EntryPrice: entryPrice,
		Quantity:   quantity,
		Status:     StatusOpen,
		Executions: ids,
	}
}
