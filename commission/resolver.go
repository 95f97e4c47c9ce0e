// commission/resolver.go
package commission

import (
	"time"

	"github.com/otrenterprises/tiltedtrades/matching"
	"github.com/otrenterprises/tiltedtrades/stats"
)

// Override is a manual correction to one trade's recorded fee. It is keyed
// by the trade's policy-independent raw id, so the same override applies to
// whichever policy's trade set the user is viewing.
type Override struct {
	UserID     string
	RawTradeID string
	Original   float64 // commission at the time the override was recorded
	Override   float64 // corrected commission (negative; a cost)
	Reason     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LedgerEntry is an entry in the user's funding ledger. Only entries of
// TypeBulkCommission matter here; they correct aggregate commission without
// being attributable to any individual trade.
type LedgerEntry struct {
	UserID  string
	EntryID string
	Type    string
	Amount  float64 // signed
	Time    time.Time
}

const TypeBulkCommission = "BULK_COMMISSION_ADJUSTMENT"

// ApplyOverrides returns a corrected copy of trades with per-trade
// commission overrides applied. The stored trade records are never mutated;
// this operates on the read-side copy that feeds statistics.
//
// For an overridden trade the gross P&L is recovered from the stored net
// and commission, then the net is rebuilt from the override:
//
//	gross = storedNet - storedCommission
//	net   = gross + overrideCommission
func ApplyOverrides(trades []matching.Trade, overrides map[string]Override) []matching.Trade {
	out := make([]matching.Trade, len(trades))
	copy(out, trades)

	if len(overrides) == 0 {
		return out
	}

	for i, t := range out {
		if t.RawID == "" {
			continue
		}
		ov, ok := overrides[t.RawID]
		if !ok {
			continue
		}

		gross := t.NetPL - t.Commission
		out[i].Commission = ov.Override
		out[i].NetPL = gross + ov.Override
	}
	return out
}

// OverridesByTradeID indexes overrides by their raw trade id.
func OverridesByTradeID(overrides []Override) map[string]Override {
	m := make(map[string]Override, len(overrides))
	for _, ov := range overrides {
		m[ov.RawTradeID] = ov
	}
	return m
}

// BulkAdjustment sums the bulk commission adjustments in a ledger. Entries
// of any other type are ignored.
func BulkAdjustment(entries []LedgerEntry) float64 {
	var sum float64
	for _, e := range entries {
		if e.Type == TypeBulkCommission {
			sum += e.Amount
		}
	}
	return sum
}

// ApplyBulkAdjustment folds a bulk commission sum into a snapshot. The
// adjustment lands on the totals only; individual trades are untouched.
func ApplyBulkAdjustment(snap stats.Snapshot, bulk float64) stats.Snapshot {
	if bulk == 0 {
		return snap
	}
	snap.TotalCommission += bulk
	snap.NetPL = snap.GrossPL + snap.TotalCommission
	return snap
}
