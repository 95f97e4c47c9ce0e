// journal/sqlite.go
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/otrenterprises/tiltedtrades/commission"
	"github.com/otrenterprises/tiltedtrades/market"
	"github.com/otrenterprises/tiltedtrades/matching"
	"github.com/otrenterprises/tiltedtrades/stats"
)

// SQLite is the SQLite-backed journal store.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// PutExecutions records raw fills. Existing executions with the same id are
// overwritten; re-importing the same export is harmless.
func (j *SQLite) PutExecutions(ctx context.Context, execs []market.Execution) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ex := range execs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO executions
			(user_id, execution_id, symbol, side, quantity, price, exec_time, trading_day)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ex.UserID, ex.ExecutionID, ex.Symbol, string(ex.Side),
			ex.Quantity, ex.Price, ex.Time.UTC(), ex.TradingDay,
		); err != nil {
			return fmt.Errorf("put execution %q: %w", ex.ExecutionID, err)
		}
	}
	return tx.Commit()
}

// PutOverride records or replaces a commission override.
func (j *SQLite) PutOverride(ctx context.Context, ov commission.Override) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO commission_overrides
		(user_id, raw_trade_id, original_commission, override_commission, reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ov.UserID, ov.RawTradeID, ov.Original, ov.Override, ov.Reason,
		ov.CreatedAt.UTC(), ov.UpdatedAt.UTC(),
	)
	return err
}

func (j *SQLite) DeleteOverride(ctx context.Context, userID, rawTradeID string) error {
	_, err := j.db.ExecContext(ctx,
		`DELETE FROM commission_overrides WHERE user_id = ? AND raw_trade_id = ?`,
		userID, rawTradeID)
	return err
}

func (j *SQLite) PutLedgerEntry(ctx context.Context, e commission.LedgerEntry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO ledger_entries
		(user_id, entry_id, entry_type, amount, entry_time)
		VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.EntryID, e.Type, e.Amount, e.Time.UTC(),
	)
	return err
}

func (j *SQLite) PutPreferences(ctx context.Context, p Preferences) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO preferences (user_id, policy, commission_tier)
		VALUES (?, ?, ?)`,
		p.UserID, string(p.Policy), p.CommissionTier,
	)
	return err
}

// DeleteTradeBatch deletes derived trades by key. Items that fail
// individually are returned as the unprocessed subset; the rest of the
// batch still commits.
func (j *SQLite) DeleteTradeBatch(ctx context.Context, userID string, keys []TradeKey) ([]TradeKey, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return keys, err
	}
	defer tx.Rollback()

	var unprocessed []TradeKey
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM trades WHERE user_id = ? AND policy = ? AND trade_id = ?`,
			userID, string(k.Policy), k.TradeID,
		); err != nil {
			unprocessed = append(unprocessed, k)
		}
	}

	if err := tx.Commit(); err != nil {
		return keys, err
	}
	return unprocessed, nil
}

// WriteTradeBatch writes derived trades, replacing any prior row with the
// same key. Items that fail individually come back as the unprocessed
// subset.
func (j *SQLite) WriteTradeBatch(ctx context.Context, trades []matching.Trade) ([]matching.Trade, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return trades, err
	}
	defer tx.Rollback()

	var unprocessed []matching.Trade
	for _, t := range trades {
		var exitTime interface{}
		var exitPrice interface{}
		if t.Closed() {
			exitTime = t.ExitTime.UTC()
			exitPrice = t.ExitPrice
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO trades
			(user_id, policy, trade_id, raw_id, symbol, direction, entry_time, exit_time,
			 trading_day, entry_price, exit_price, quantity, gross_pl, net_pl, pl_percent,
			 duration_secs, commission, status, executions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.UserID, string(t.Policy), t.TradeID, t.RawID, t.Symbol, string(t.Direction),
			t.EntryTime.UTC(), exitTime, t.TradingDay, t.EntryPrice, exitPrice, t.Quantity,
			t.GrossPL, t.NetPL, t.PLPercent, int64(t.Duration/time.Second),
			t.Commission, string(t.Status), strings.Join(t.Executions, ","),
		); err != nil {
			unprocessed = append(unprocessed, t)
		}
	}

	if err := tx.Commit(); err != nil {
		return trades, err
	}
	return unprocessed, nil
}

// PutSnapshot overwrites the user's stats snapshot. Last writer wins; no
// history is retained.
func (j *SQLite) PutSnapshot(ctx context.Context, s stats.Snapshot) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO stats_snapshots
		(user_id, scope, total_trades, winning_trades, losing_trades, breakeven_trades,
		 win_rate, average_win, average_loss, largest_win, largest_loss,
		 gross_pl, net_pl, gross_profit, gross_loss, total_commission,
		 profit_factor, expectancy, max_drawdown, max_drawdown_pct, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.Scope, s.TotalTrades, s.WinningTrades, s.LosingTrades, s.BreakevenTrades,
		s.WinRate, s.AverageWin, s.AverageLoss, s.LargestWin, s.LargestLoss,
		s.GrossPL, s.NetPL, s.GrossProfit, s.GrossLoss, s.TotalCommission,
		s.ProfitFactor, s.Expectancy, s.MaxDrawdown, s.MaxDrawdownPct, s.CalculatedAt.UTC(),
	)
	return err
}
