// journal/journal.go
package journal

import (
	"context"

	"github.com/otrenterprises/tiltedtrades/commission"
	"github.com/otrenterprises/tiltedtrades/market"
	"github.com/otrenterprises/tiltedtrades/matching"
	"github.com/otrenterprises/tiltedtrades/stats"
)

// Preferences holds the per-user settings the pipeline reads. Users who
// never saved preferences get the defaults.
type Preferences struct {
	UserID         string
	Policy         matching.Policy
	CommissionTier string
}

// DefaultPreferences is what GetPreferences returns for an unknown user.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:         userID,
		Policy:         matching.PolicyFIFO,
		CommissionTier: market.BaselineTier,
	}
}

// TradeKey identifies one derived trade within a user's partition.
type TradeKey struct {
	Policy  matching.Policy
	TradeID string
}

// Store is the persistence surface the recomputation pipeline runs
// against. Derived trades and snapshots are replace-only: the orchestrator
// deletes and rewrites them wholesale, it never patches them.
type Store interface {
	ListUsers(ctx context.Context) ([]string, error)
	ListExecutions(ctx context.Context, userID, cursor string, limit int) ([]market.Execution, string, error)

	ListTradeKeys(ctx context.Context, userID string) ([]TradeKey, error)
	// DeleteTradeBatch and WriteTradeBatch return the subset of items that
	// could not be processed, so callers can retry just those.
	DeleteTradeBatch(ctx context.Context, userID string, keys []TradeKey) ([]TradeKey, error)
	WriteTradeBatch(ctx context.Context, trades []matching.Trade) ([]matching.Trade, error)
	ListTrades(ctx context.Context, userID string, policy matching.Policy) ([]matching.Trade, error)

	GetPreferences(ctx context.Context, userID string) (Preferences, error)
	ListOverrides(ctx context.Context, userID string) ([]commission.Override, error)
	ListBulkAdjustments(ctx context.Context, userID string) ([]commission.LedgerEntry, error)

	PutSnapshot(ctx context.Context, snap stats.Snapshot) error
}
