// stats/stats.go
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/otrenterprises/tiltedtrades/matching"
)

// ScopeAll is the single aggregation scope currently published. The scope
// discriminator exists so per-symbol or per-session snapshots can be added
// without a schema change.
const ScopeAll = "ALL"

// Snapshot is the aggregate performance record for one user and scope.
// It is fully overwritten on every recomputation; no history is kept.
type Snapshot struct {
	UserID string
	Scope  string

	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	BreakevenTrades int

	WinRate     float64 // percent
	AverageWin  float64
	AverageLoss float64 // negative
	LargestWin  float64
	LargestLoss float64 // negative

	GrossPL     float64
	NetPL       float64
	GrossProfit float64
	GrossLoss   float64 // negative

	TotalCommission float64 // negative
	ProfitFactor    float64 // +Inf when there are profits and no losses
	Expectancy      float64

	MaxDrawdown    float64
	MaxDrawdownPct float64 // percent

	CalculatedAt time.Time
}

// Calculate reduces a trade sequence into a metrics snapshot. Only closed
// trades participate; open positions have no realized P&L yet. Bulk
// commission adjustments are applied afterward by the resolver, not here.
func Calculate(trades []matching.Trade) Snapshot {
	var snap Snapshot
	snap.Scope = ScopeAll

	closed := make([]matching.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Closed() {
			closed = append(closed, t)
		}
	}
	if len(closed) == 0 {
		return snap
	}
	snap.UserID = closed[0].UserID

	var winSum, lossSum float64
	for _, t := range closed {
		snap.TotalTrades++
		snap.GrossPL += t.GrossPL
		snap.NetPL += t.NetPL
		snap.TotalCommission += t.Commission

		switch {
		case t.NetPL > 0:
			snap.WinningTrades++
			winSum += t.NetPL
			snap.GrossProfit += t.NetPL
			if t.NetPL > snap.LargestWin {
				snap.LargestWin = t.NetPL
			}
		case t.NetPL < 0:
			snap.LosingTrades++
			lossSum += t.NetPL
			snap.GrossLoss += t.NetPL
			if t.NetPL < snap.LargestLoss {
				snap.LargestLoss = t.NetPL
			}
		default:
			snap.BreakevenTrades++
		}
	}

	snap.WinRate = float64(snap.WinningTrades) / float64(snap.TotalTrades) * 100
	snap.Expectancy = snap.NetPL / float64(snap.TotalTrades)

	if snap.WinningTrades > 0 {
		snap.AverageWin = winSum / float64(snap.WinningTrades)
	}
	if snap.LosingTrades > 0 {
		snap.AverageLoss = lossSum / float64(snap.LosingTrades)
	}

	switch {
	case snap.GrossLoss < 0:
		snap.ProfitFactor = snap.GrossProfit / -snap.GrossLoss
	case snap.GrossProfit > 0:
		snap.ProfitFactor = math.Inf(1)
	}

	snap.MaxDrawdown, snap.MaxDrawdownPct = drawdown(closed)
	return snap
}

// drawdown walks the cumulative net P&L curve in exit order and tracks the
// largest drop from a running peak. The percent figure is relative to the
// peak at the point the maximum drawdown occurred (0 if that peak is <= 0).
func drawdown(closed []matching.Trade) (maxDD, maxDDPct float64) {
	ordered := make([]matching.Trade, len(closed))
	copy(ordered, closed)
	sort.SliceStable(ordered, func(i, k int) bool {
		if !ordered[i].ExitTime.Equal(ordered[k].ExitTime) {
			return ordered[i].ExitTime.Before(ordered[k].ExitTime)
		}
		return ordered[i].TradeID < ordered[k].TradeID
	})

	var cum, peak float64
	for _, t := range ordered {
		cum += t.NetPL
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
			if peak > 0 {
				maxDDPct = dd / peak * 100
			} else {
				maxDDPct = 0
			}
		}
	}
	return maxDD, maxDDPct
}
