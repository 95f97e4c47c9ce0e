// journal/query.go
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/otrenterprises/tiltedtrades/commission"
	"github.com/otrenterprises/tiltedtrades/market"
	"github.com/otrenterprises/tiltedtrades/matching"
	"github.com/otrenterprises/tiltedtrades/stats"
)

// DefaultPageSize bounds one page of an execution listing.
const DefaultPageSize = 200

// ListUsers returns every user that has recorded executions.
func (j *SQLite) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM executions ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListExecutions returns one page of a user's fills in (time, id) order.
// cursor is "" for the first page; the returned cursor is "" once the
// listing is exhausted.
func (j *SQLite) ListExecutions(ctx context.Context, userID, cursor string, limit int) ([]market.Execution, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	var (
		rows *sql.Rows
		err  error
	)
	if cursor == "" {
		rows, err = j.db.QueryContext(ctx, `
			SELECT user_id, execution_id, symbol, side, quantity, price, exec_time, trading_day
			FROM executions
			WHERE user_id = ?
			ORDER BY exec_time, execution_id
			LIMIT ?`, userID, limit)
	} else {
		afterTime, afterID, derr := decodeCursor(cursor)
		if derr != nil {
			return nil, "", derr
		}
		rows, err = j.db.QueryContext(ctx, `
			SELECT user_id, execution_id, symbol, side, quantity, price, exec_time, trading_day
			FROM executions
			WHERE user_id = ? AND (exec_time > ? OR (exec_time = ? AND execution_id > ?))
			ORDER BY exec_time, execution_id
			LIMIT ?`, userID, afterTime, afterTime, afterID, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []market.Execution
	for rows.Next() {
		var ex market.Execution
		var side string
		if err := rows.Scan(&ex.UserID, &ex.ExecutionID, &ex.Symbol, &side,
			&ex.Quantity, &ex.Price, &ex.Time, &ex.TradingDay); err != nil {
			return nil, "", err
		}
		ex.Side = market.Side(side)
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	next := ""
	if len(out) == limit {
		last := out[len(out)-1]
		next = encodeCursor(last.Time, last.ExecutionID)
	}
	return out, next, nil
}

func encodeCursor(t time.Time, execID string) string {
	return t.UTC().Format(time.RFC3339Nano) + "|" + execID
}

func decodeCursor(cursor string) (time.Time, string, error) {
	at, id, ok := strings.Cut(cursor, "|")
	if !ok {
		return time.Time{}, "", fmt.Errorf("malformed cursor %q", cursor)
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed cursor %q: %w", cursor, err)
	}
	return t.UTC(), id, nil
}

// ListTradeKeys returns the keys of every stored derived trade for a user,
// across both policies. Used by the full-replace delete pass.
func (j *SQLite) ListTradeKeys(ctx context.Context, userID string) ([]TradeKey, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT policy, trade_id FROM trades WHERE user_id = ? ORDER BY policy, trade_id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []TradeKey
	for rows.Next() {
		var k TradeKey
		var policy string
		if err := rows.Scan(&policy, &k.TradeID); err != nil {
			return nil, err
		}
		k.Policy = matching.Policy(policy)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

const tradeColumns = `user_id, policy, trade_id, raw_id, symbol, direction, entry_time, exit_time,
	 trading_day, entry_price, exit_price, quantity, gross_pl, net_pl, pl_percent,
	 duration_secs, commission, status, executions`

// ListTrades returns a user's derived trades for one policy, entry-time
// ordered.
func (j *SQLite) ListTrades(ctx context.Context, userID string, policy matching.Policy) ([]matching.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE user_id = ? AND policy = ?
		ORDER BY entry_time, trade_id`, userID, string(policy))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []matching.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTrade returns a single derived trade.
func (j *SQLite) GetTrade(ctx context.Context, userID string, policy matching.Policy, tradeID string) (matching.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE user_id = ? AND policy = ? AND trade_id = ?`,
		userID, string(policy), tradeID)
	if err != nil {
		return matching.Trade{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return matching.Trade{}, err
		}
		return matching.Trade{}, fmt.Errorf("trade %q not found", tradeID)
	}
	return scanTrade(rows)
}

func scanTrade(rows *sql.Rows) (matching.Trade, error) {
	var (
		t            matching.Trade
		policy       string
		direction    string
		status       string
		exitTime     sql.NullTime
		exitPrice    sql.NullFloat64
		durationSecs int64
		execIDs      string
	)
	if err := rows.Scan(&t.UserID, &policy, &t.TradeID, &t.RawID, &t.Symbol, &direction,
		&t.EntryTime, &exitTime, &t.TradingDay, &t.EntryPrice, &exitPrice, &t.Quantity,
		&t.GrossPL, &t.NetPL, &t.PLPercent, &durationSecs, &t.Commission, &status, &execIDs,
	); err != nil {
		return matching.Trade{}, err
	}

	t.Policy = matching.Policy(policy)
	t.Direction = matching.Direction(direction)
	t.Status = matching.Status(status)
	t.Duration = time.Duration(durationSecs) * time.Second
	if exitTime.Valid {
		t.ExitTime = exitTime.Time
	}
	if exitPrice.Valid {
		t.ExitPrice = exitPrice.Float64
	}
	if execIDs != "" {
		t.Executions = strings.Split(execIDs, ",")
	}
	return t, nil
}

// GetPreferences returns the user's stored preferences, or the defaults
// (FIFO, baseline tier) when none exist.
func (j *SQLite) GetPreferences(ctx context.Context, userID string) (Preferences, error) {
	var p Preferences
	var policy string
	err := j.db.QueryRowContext(ctx,
		`SELECT user_id, policy, commission_tier FROM preferences WHERE user_id = ?`,
		userID).Scan(&p.UserID, &policy, &p.CommissionTier)
	if err == sql.ErrNoRows {
		return DefaultPreferences(userID), nil
	}
	if err != nil {
		return Preferences{}, err
	}
	p.Policy = matching.Policy(policy)
	return p, nil
}

// ListOverrides returns all commission overrides for a user.
func (j *SQLite) ListOverrides(ctx context.Context, userID string) ([]commission.Override, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT user_id, raw_trade_id, original_commission, override_commission, reason, created_at, updated_at
		FROM commission_overrides
		WHERE user_id = ?
		ORDER BY raw_trade_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []commission.Override
	for rows.Next() {
		var ov commission.Override
		if err := rows.Scan(&ov.UserID, &ov.RawTradeID, &ov.Original, &ov.Override,
			&ov.Reason, &ov.CreatedAt, &ov.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ov)
	}
	return out, rows.Err()
}

// ListBulkAdjustments returns the user's bulk commission adjustment ledger
// entries; other ledger entry types are filtered out at the query.
func (j *SQLite) ListBulkAdjustments(ctx context.Context, userID string) ([]commission.LedgerEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT user_id, entry_id, entry_type, amount, entry_time
		FROM ledger_entries
		WHERE user_id = ? AND entry_type = ?
		ORDER BY entry_time, entry_id`, userID, commission.TypeBulkCommission)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []commission.LedgerEntry
	for rows.Next() {
		var e commission.LedgerEntry
		if err := rows.Scan(&e.UserID, &e.EntryID, &e.Type, &e.Amount, &e.Time); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetSnapshot returns the user's stats snapshot for a scope.
func (j *SQLite) GetSnapshot(ctx context.Context, userID, scope string) (stats.Snapshot, error) {
	var s stats.Snapshot
	err := j.db.QueryRowContext(ctx, `
		SELECT user_id, scope, total_trades, winning_trades, losing_trades, breakeven_trades,
		       win_rate, average_win, average_loss, largest_win, largest_loss,
		       gross_pl, net_pl, gross_profit, gross_loss, total_commission,
		       profit_factor, expectancy, max_drawdown, max_drawdown_pct, calculated_at
		FROM stats_snapshots
		WHERE user_id = ? AND scope = ?`, userID, scope).Scan(
		&s.UserID, &s.Scope, &s.TotalTrades, &s.WinningTrades, &s.LosingTrades, &s.BreakevenTrades,
		&s.WinRate, &s.AverageWin, &s.AverageLoss, &s.LargestWin, &s.LargestLoss,
		&s.GrossPL, &s.NetPL, &s.GrossProfit, &s.GrossLoss, &s.TotalCommission,
		&s.ProfitFactor, &s.Expectancy, &s.MaxDrawdown, &s.MaxDrawdownPct, &s.CalculatedAt,
	)
	if err == sql.ErrNoRows {
		return stats.Snapshot{}, fmt.Errorf("no stats snapshot for user %q", userID)
	}
	if err != nil {
		return stats.Snapshot{}, err
	}
	return s, nil
}
