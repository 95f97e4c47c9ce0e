// market/execution.go
package market

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Side is the broker-reported direction of a fill.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

var (
	ErrZeroQuantity = errors.New("execution quantity must be positive")
	ErrMissingField = errors.New("execution missing required field")
)

// Execution is a single brokerage fill. Executions are immutable once
// recorded; everything downstream (trades, stats) is derived from them.
type Execution struct {
	UserID      string
	ExecutionID string // externally assigned, unique per user
	Symbol      string
	Side        Side
	Quantity    int64
	Price       float64
	Time        time.Time
	TradingDay  string // logical session date (yyyy-mm-dd), may differ from calendar date
}

// SignedQuantity returns the position effect of the fill:
// positive for buys, negative for sells.
func (e Execution) SignedQuantity() int64 {
	if e.Side == SideSell {
		return -e.Quantity
	}
	return e.Quantity
}

// Validate checks the fields required before an execution may enter
// matching. A zero or negative quantity is a hard error, not a skip.
func (e Execution) Validate() error {
	if e.ExecutionID == "" {
		return fmt.Errorf("%w: execution id", ErrMissingField)
	}
	if e.Symbol == "" {
		return fmt.Errorf("%w: symbol", ErrMissingField)
	}
	if e.Side != SideBuy && e.Side != SideSell {
		return fmt.Errorf("%w: side %q", ErrMissingField, e.Side)
	}
	if e.Time.IsZero() {
		return fmt.Errorf("%w: time", ErrMissingField)
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("%w: %q has quantity %d", ErrZeroQuantity, e.ExecutionID, e.Quantity)
	}
	return nil
}

// SortExecutions orders executions ascending by time, breaking ties on the
// execution id so a fixed input set always sorts the same way.
func SortExecutions(execs []Execution) {
	sort.SliceStable(execs, func(i, k int) bool {
		if !execs[i].Time.Equal(execs[k].Time) {
			return execs[i].Time.Before(execs[k].Time)
		}
		return execs[i].ExecutionID < execs[k].ExecutionID
	})
}
