// importer/importer.go
package importer

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/otrenterprises/tiltedtrades/market"
)

// Store is the slice of the journal the importer needs.
type Store interface {
	PutExecutions(ctx context.Context, execs []market.Execution) error
}

// Result reports what one import run did with the file's rows.
type Result struct {
	Imported int // fills recorded
	Filtered int // rows without a Fill status
	Invalid  int // rows that failed validation
}

// Importer loads broker execution exports (CSV, optionally gzip- or
// xz-compressed) into the journal. Only rows whose status contains "Fill"
// are kept; everything else in an export is order-lifecycle noise.
type Importer struct {
	Store Store
}

// statusFilter matches the broker's fill-status values ("Fill", "Filled",
// "Partial Fill").
const statusFilter = "fill"

var timeFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
}

// ImportFile reads the export at path and records its fills for userID.
func (i *Importer) ImportFile(ctx context.Context, userID, path string) (Result, error) {
	if i.Store == nil {
		return Result{}, fmt.Errorf("importer: Store is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	r, err := decompress(f, path)
	if err != nil {
		return Result{}, err
	}

	return i.importCSV(ctx, userID, r)
}

func decompress(f *os.File, path string) (io.Reader, error) {
	switch {
	case strings.HasSuffix(path, ".xz"):
		r, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open xz stream: %w", err)
		}
		return r, nil
	case strings.HasSuffix(path, ".gz"):
		r, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return r, nil
	default:
		return f, nil
	}
}

func (i *Importer) importCSV(ctx context.Context, userID string, r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read export header: %w", err)
	}

	col := map[string]int{}
	for idx, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	for _, required := range []string{"execution_id", "symbol", "side", "quantity", "price", "time"} {
		if _, ok := col[required]; !ok {
			return Result{}, fmt.Errorf("export missing required column %q", required)
		}
	}

	var (
		res   Result
		batch []market.Execution
	)

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read export row: %w", err)
		}

		// Status filtering happens before any parsing: only fills matter.
		if statusIdx, ok := col["status"]; ok {
			if !strings.Contains(strings.ToLower(row[statusIdx]), statusFilter) {
				res.Filtered++
				continue
			}
		}

		ex, err := parseExecution(userID, row, field)
		if err != nil {
			res.Invalid++
			continue
		}
		if err := ex.Validate(); err != nil {
			res.Invalid++
			continue
		}

		batch = append(batch, ex)
		res.Imported++
	}

	if len(batch) > 0 {
		if err := i.Store.PutExecutions(ctx, batch); err != nil {
			return res, fmt.Errorf("record executions: %w", err)
		}
	}
	return res, nil
}

func parseExecution(userID string, row []string, field func([]string, string) string) (market.Execution, error) {
	qty, err := strconv.ParseInt(field(row, "quantity"), 10, 64)
	if err != nil {
		return market.Execution{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := strconv.ParseFloat(field(row, "price"), 64)
	if err != nil {
		return market.Execution{}, fmt.Errorf("price: %w", err)
	}
	t, err := parseTime(field(row, "time"))
	if err != nil {
		return market.Execution{}, err
	}

	side := market.SideBuy
	if strings.EqualFold(field(row, "side"), "sell") {
		side = market.SideSell
	}

	day := field(row, "trading_day")
	if day == "" {
		day = t.UTC().Format("2006-01-02")
	}

	return market.Execution{
		UserID:      userID,
		ExecutionID: field(row, "execution_id"),
		Symbol:      field(row, "symbol"),
		Side:        side,
		Quantity:    qty,
		Price:       price,
		Time:        t.UTC(),
		TradingDay:  day,
	}, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}
