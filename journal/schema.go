// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS executions (
	user_id TEXT NOT NULL,
	execution_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	exec_time DATETIME NOT NULL,
	trading_day TEXT NOT NULL,
	PRIMARY KEY (user_id, execution_id)
);

CREATE INDEX IF NOT EXISTS idx_executions_user_time ON executions(user_id, exec_time, execution_id);

CREATE TABLE IF NOT EXISTS trades (
	user_id TEXT NOT NULL,
	policy TEXT NOT NULL,
	trade_id TEXT NOT NULL,
	raw_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME,
	trading_day TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL,
	quantity INTEGER NOT NULL,
	gross_pl REAL NOT NULL,
	net_pl REAL NOT NULL,
	pl_percent REAL NOT NULL,
	duration_secs INTEGER NOT NULL,
	commission REAL NOT NULL,
	status TEXT NOT NULL,
	executions TEXT NOT NULL,
	PRIMARY KEY (user_id, policy, trade_id)
);

CREATE INDEX IF NOT EXISTS idx_trades_raw ON trades(user_id, raw_id);

CREATE TABLE IF NOT EXISTS stats_snapshots (
	user_id TEXT NOT NULL,
	scope TEXT NOT NULL,
	total_trades INTEGER NOT NULL,
	winning_trades INTEGER NOT NULL,
	losing_trades INTEGER NOT NULL,
	breakeven_trades INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	average_win REAL NOT NULL,
	average_loss REAL NOT NULL,
	largest_win REAL NOT NULL,
	largest_loss REAL NOT NULL,
	gross_pl REAL NOT NULL,
	net_pl REAL NOT NULL,
	gross_profit REAL NOT NULL,
	gross_loss REAL NOT NULL,
	total_commission REAL NOT NULL,
	profit_factor REAL NOT NULL,
	expectancy REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	calculated_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, scope)
);

CREATE TABLE IF NOT EXISTS commission_overrides (
	user_id TEXT NOT NULL,
	raw_trade_id TEXT NOT NULL,
	original_commission REAL NOT NULL,
	override_commission REAL NOT NULL,
	reason TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, raw_trade_id)
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	user_id TEXT NOT NULL,
	entry_id TEXT NOT NULL,
	entry_type TEXT NOT NULL,
	amount REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	PRIMARY KEY (user_id, entry_id)
);

CREATE INDEX IF NOT EXISTS idx_ledger_type ON ledger_entries(user_id, entry_type);

CREATE TABLE IF NOT EXISTS preferences (
	user_id TEXT PRIMARY KEY,
	policy TEXT NOT NULL,
	commission_tier TEXT NOT NULL
);
`
