// recompute/orchestrator.go
package recompute

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otrenterprises/tiltedtrades/commission"
	"github.com/otrenterprises/tiltedtrades/journal"
	"github.com/otrenterprises/tiltedtrades/market"
	"github.com/otrenterprises/tiltedtrades/matching"
	"github.com/otrenterprises/tiltedtrades/notify"
	"github.com/otrenterprises/tiltedtrades/stats"
)

// State names the phase a recomputation run is in. It exists mostly for
// error reporting: a RunError carries the state it failed in.
type State string

const (
	StateIdle        State = "IDLE"
	StateFetching    State = "FETCHING"
	StateMatching    State = "MATCHING"
	StateReplacing   State = "REPLACING"
	StateResolving   State = "RESOLVING"
	StateAggregating State = "AGGREGATING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// RunError wraps a failure with the pipeline state it occurred in.
type RunError struct {
	State State
	Err   error
}

func (e *RunError) Error() string { return fmt.Sprintf("recompute %s: %v", e.State, e.Err) }
func (e *RunError) Unwrap() error { return e.Err }

// Result summarizes a bulk recomputation over all users.
type Result struct {
	Processed int
	Errors    int
}

const (
	// DefaultBatchSize is the chunk size for trade deletes and writes.
	DefaultBatchSize = 25
	// DefaultMaxAttempts caps retries of a store call or batch.
	DefaultMaxAttempts = 5
	// DefaultBaseDelay is the first retry delay; it doubles per attempt.
	DefaultBaseDelay = 100 * time.Millisecond
)

// Orchestrator sequences one user recomputation:
//
//	fetch executions -> match (both policies) -> full replace of derived
//	trades -> resolve commissions (preferred policy) -> aggregate stats ->
//	overwrite snapshot
//
// Store and Engine are required; everything else has a usable default.
// A single Orchestrator is safe for sequential reuse across users; runs for
// the same user must be serialized by the caller.
type Orchestrator struct {
	Store    journal.Store
	Engine   *matching.Engine
	Notifier notify.Notifier // optional, fire-and-forget
	Log      *slog.Logger    // optional

	BatchSize   int
	MaxAttempts int
	BaseDelay   time.Duration
	PageSize    int

	Now func() time.Time // test hook for snapshot timestamps
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}

func (o *Orchestrator) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return DefaultBatchSize
}

func (o *Orchestrator) attempts() int {
	if o.MaxAttempts > 0 {
		return o.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (o *Orchestrator) baseDelay() time.Duration {
	if o.BaseDelay > 0 {
		return o.BaseDelay
	}
	return DefaultBaseDelay
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

// RecomputeUser rebuilds a user's derived trades and stats snapshot from
// their full execution history. Any unrecovered error propagates to the
// caller; a user with no executions is a no-op success.
func (o *Orchestrator) RecomputeUser(ctx context.Context, userID string) error {
	if o.Store == nil {
		return fmt.Errorf("recompute: Store is required")
	}
	if o.Engine == nil {
		return fmt.Errorf("recompute: Engine is required")
	}

	log := o.logger().With("user", userID)

	// Fetching: page through the full execution history before touching
	// any derived state.
	execs, err := o.fetchExecutions(ctx, userID)
	if err != nil {
		return &RunError{State: StateFetching, Err: err}
	}
	if len(execs) == 0 {
		log.Info("no executions, skipping recompute")
		return nil
	}

	// Preferences steer both matching (commission tier) and resolution
	// (which policy's trade set is published).
	var prefs journal.Preferences
	err = withRetry(ctx, o.attempts(), o.baseDelay(), func(ctx context.Context) error {
		var err error
		prefs, err = o.Store.GetPreferences(ctx, userID)
		return err
	})
	if err != nil {
		return &RunError{State: StateFetching, Err: err}
	}

	engine := *o.Engine
	if prefs.CommissionTier != "" {
		engine.Tier = market.NormalizeTier(prefs.CommissionTier)
	}
	if !prefs.Policy.Valid() {
		log.Warn("unknown preferred policy, using FIFO", "policy", prefs.Policy)
		prefs.Policy = matching.PolicyFIFO
	}

	// Matching: both policies are always computed so the user can switch
	// views without waiting on a recompute.
	matched := make(map[matching.Policy][]matching.Trade, len(matching.Policies))
	for _, policy := range matching.Policies {
		trades, err := engine.MatchTrades(execs, policy)
		if err != nil {
			return &RunError{State: StateMatching, Err: err}
		}
		matched[policy] = trades
	}

	if err := o.replaceTrades(ctx, userID, matched, log); err != nil {
		return &RunError{State: StateReplacing, Err: err}
	}

	// Resolving: overrides and the bulk ledger sum apply to the trade set
	// behind the published statistics, i.e. the preferred policy only.
	var preferred []matching.Trade
	err = withRetry(ctx, o.attempts(), o.baseDelay(), func(ctx context.Context) error {
		var err error
		preferred, err = o.Store.ListTrades(ctx, userID, prefs.Policy)
		return err
	})
	if err != nil {
		return &RunError{State: StateResolving, Err: err}
	}

	var overrides []commission.Override
	err = withRetry(ctx, o.attempts(), o.baseDelay(), func(ctx context.Context) error {
		var err error
		overrides, err = o.Store.ListOverrides(ctx, userID)
		return err
	})
	if err != nil {
		return &RunError{State: StateResolving, Err: err}
	}

	var ledger []commission.LedgerEntry
	err = withRetry(ctx, o.attempts(), o.baseDelay(), func(ctx context.Context) error {
		var err error
		ledger, err = o.Store.ListBulkAdjustments(ctx, userID)
		return err
	})
	if err != nil {
		return &RunError{State: StateResolving, Err: err}
	}

	resolved := commission.ApplyOverrides(preferred, commission.OverridesByTradeID(overrides))

	// Aggregating: one snapshot per user, fully overwritten.
	snap := stats.Calculate(resolved)
	snap.UserID = userID
	snap.Scope = stats.ScopeAll
	snap.CalculatedAt = o.now()
	snap = commission.ApplyBulkAdjustment(snap, commission.BulkAdjustment(ledger))

	err = withRetry(ctx, o.attempts(), o.baseDelay(), func(ctx context.Context) error {
		return o.Store.PutSnapshot(ctx, snap)
	})
	if err != nil {
		return &RunError{State: StateAggregating, Err: err}
	}

	if o.Notifier != nil {
		// Detached on purpose: notification must never block or fail the run.
		go func(snap stats.Snapshot) {
			if err := o.Notifier.RecomputeComplete(userID, snap); err != nil {
				o.logger().Warn("recompute notification failed", "user", userID, "error", err)
			}
		}(snap)
	}

	log.Info("recompute done",
		"executions", len(execs),
		"trades_fifo", len(matched[matching.PolicyFIFO]),
		"trades_per_position", len(matched[matching.PolicyPerPosition]),
		"policy", prefs.Policy,
	)
	return nil
}

// RecomputeAll runs every known user through RecomputeUser. One user's
// failure is logged and counted, never fatal to the batch; only a failure
// before the per-user loop (the user listing itself) aborts the run.
func (o *Orchestrator) RecomputeAll(ctx context.Context) (Result, error) {
	if o.Store == nil {
		return Result{}, fmt.Errorf("recompute: Store is required")
	}

	var users []string
	err := withRetry(ctx, o.attempts(), o.baseDelay(), func(ctx context.Context) error {
		var err error
		users, err = o.Store.ListUsers(ctx)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("list users: %w", err)
	}

	var res Result
	for _, user := range users {
		if err := o.RecomputeUser(ctx, user); err != nil {
			o.logger().Error("recompute failed", "user", user, "error", err)
			res.Errors++
			continue
		}
		res.Processed++
	}

	o.logger().Info("bulk recompute finished", "processed", res.Processed, "errors", res.Errors)
	return res, nil
}

func (o *Orchestrator) fetchExecutions(ctx context.Context, userID string) ([]market.Execution, error) {
	var (
		all    []market.Execution
		cursor string
	)
	for {
		var (
			page []market.Execution
			next string
		)
		err := withRetry(ctx, o.attempts(), o.baseDelay(), func(ctx context.Context) error {
			var err error
			page, next, err = o.Store.ListExecutions(ctx, userID, cursor, o.PageSize)
			return err
		})
		if err != nil {
			return nil, err
		}

		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

// replaceTrades deletes every stored derived trade for the user and writes
// the freshly matched sets, both in fixed-size batches. Items a batch
// could not process after retries are counted and logged, not escalated,
// so one stuck row cannot block the rest of the recomputation.
func (o *Orchestrator) replaceTrades(ctx context.Context, userID string,
	matched map[matching.Policy][]matching.Trade, log *slog.Logger) error {

	var keys []journal.TradeKey
	err := withRetry(ctx, o.attempts(), o.baseDelay(), func(ctx context.Context) error {
		var err error
		keys, err = o.Store.ListTradeKeys(ctx, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("list trade keys: %w", err)
	}

	// Deletes first: the new sets must never coexist with stale rows.
	var unprocessedDeletes int
	for _, batch := range chunk(keys, o.batchSize()) {
		residual, err := retryBatch(ctx, batch, o.attempts(), o.baseDelay(),
			func(ctx context.Context, items []journal.TradeKey) ([]journal.TradeKey, error) {
				return o.Store.DeleteTradeBatch(ctx, userID, items)
			})
		if err != nil {
			return fmt.Errorf("delete trades: %w", err)
		}
		unprocessedDeletes += len(residual)
	}

	var trades []matching.Trade
	for _, policy := range matching.Policies {
		trades = append(trades, matched[policy]...)
	}

	var unprocessedWrites int
	for _, batch := range chunk(trades, o.batchSize()) {
		residual, err := retryBatch(ctx, batch, o.attempts(), o.baseDelay(), o.Store.WriteTradeBatch)
		if err != nil {
			return fmt.Errorf("write trades: %w", err)
		}
		unprocessedWrites += len(residual)
	}

	if unprocessedDeletes > 0 || unprocessedWrites > 0 {
		log.Warn("trade replace left unprocessed items",
			"deletes", unprocessedDeletes, "writes", unprocessedWrites)
	}
	return nil
}
