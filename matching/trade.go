// matching/trade.go
package matching

import (
	"time"

	"github.com/otrenterprises/tiltedtrades/internal/id"
)

// Policy selects how opposing fills are matched against open quantity.
type Policy string

const (
	// PolicyFIFO closes the oldest open lot first.
	PolicyFIFO Policy = "FIFO"
	// PolicyPerPosition keeps one volume-weighted running position per symbol.
	PolicyPerPosition Policy = "PER_POSITION"
)

// Policies lists every accounting policy a recomputation maintains.
var Policies = []Policy{PolicyFIFO, PolicyPerPosition}

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyFIFO || p == PolicyPerPosition
}

// Direction is the direction of the matched position, as opposed to the
// buy/sell side of an individual fill.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Trade is a matched round trip (or still-open position) derived from one
// or more executions under one accounting policy. Trades are regenerated
// wholesale on every recomputation, never patched in place.
type Trade struct {
	TradeID    string // deterministic, policy-scoped
	RawID      string // policy-independent; keys commission overrides
	UserID     string
	Policy     Policy
	Symbol     string
	Direction  Direction
	EntryTime  time.Time
	ExitTime   time.Time // zero while open
	TradingDay string    // session date of the opening execution
	EntryPrice float64
	ExitPrice  float64
	Quantity   int64
	GrossPL    float64
	NetPL      float64
	PLPercent  float64
	Duration   time.Duration
	Commission float64 // negative; a cost
	Status     Status
	Executions []string // contributing execution ids, entry legs first
}

// Closed reports whether the trade has an exit.
func (t Trade) Closed() bool { return t.Status == StatusClosed }

// tradeID derives the policy-scoped trade id from the executions that
// compose the trade. Stable inputs, stable id: re-running matching on
// unchanged executions reproduces it exactly.
func tradeID(policy Policy, execIDs []string) string {
	parts := make([]string, 0, len(execIDs)+1)
	parts = append(parts, string(policy))
	parts = append(parts, execIDs...)
	return id.Derived(parts...)
}

// rawID is the policy-independent identity of a closed trade. Both policies
// close against the same physical fill, so the closing execution id links a
// commission override to the trade no matter which trade set is displayed.
func rawID(exitExecID string) string {
	if exitExecID == "" {
		return ""
	}
	return id.Derived("raw", exitExecID)
}
