package importer

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ulikunitz/xz"

	"github.com/otrenterprises/tiltedtrades/market"
)

// memStore collects everything the importer records.
type memStore struct {
	execs []market.Execution
	calls int
}

func (m *memStore) PutExecutions(ctx context.Context, execs []market.Execution) error {
	m.execs = append(m.execs, execs...)
	m.calls++
	return nil
}

const sampleCSV = `execution_id,symbol,side,quantity,price,time,status,trading_day
e1,MES,Buy,2,5000.25,2024-01-02T09:30:00Z,Filled,2024-01-02
e2,MES,Sell,2,5002.00,2024-01-02T09:35:00Z,Fill,2024-01-02
e3,MES,Buy,1,5001.00,2024-01-02T09:40:00Z,Cancelled,2024-01-02
e4,MES,Buy,0,5001.00,2024-01-02T09:45:00Z,Fill,2024-01-02
e5,MES,Buy,1,not-a-price,2024-01-02T09:50:00Z,Fill,2024-01-02
`

func writeExport(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestImportFile(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	imp := &Importer{Store: store}

	res, err := imp.ImportFile(context.Background(), "u1", writeExport(t, "export.csv", sampleCSV))
	assert.NoError(t, err)

	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Filtered) // the cancelled order
	assert.Equal(t, 2, res.Invalid)  // zero quantity, bad price

	assert.Len(t, store.execs, 2)
	assert.Equal(t, 1, store.calls, "fills are recorded in one batch")

	got := store.execs[0]
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "e1", got.ExecutionID)
	assert.Equal(t, market.SideBuy, got.Side)
	assert.Equal(t, int64(2), got.Quantity)
	assert.InDelta(t, 5000.25, got.Price, 1e-9)
	assert.Equal(t, "2024-01-02", got.TradingDay)
	assert.True(t, got.Time.Equal(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)))

	assert.Equal(t, market.SideSell, store.execs[1].Side)
}

func TestImportFileXZ(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "export.csv.xz")
	f, err := os.Create(path)
	assert.NoError(t, err)
	w, err := xz.NewWriter(f)
	assert.NoError(t, err)
	_, err = w.Write([]byte(sampleCSV))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, f.Close())

	store := &memStore{}
	imp := &Importer{Store: store}

	res, err := imp.ImportFile(context.Background(), "u1", path)
	assert.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Len(t, store.execs, 2)
}

func TestImportFileGzip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "export.csv.gz")
	f, err := os.Create(path)
	assert.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte(sampleCSV))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, f.Close())

	store := &memStore{}
	imp := &Importer{Store: store}

	res, err := imp.ImportFile(context.Background(), "u1", path)
	assert.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
}

func TestImportFileWithoutStatusColumnKeepsAllRows(t *testing.T) {
	t.Parallel()

	csvData := `execution_id,symbol,side,quantity,price,time
e1,MES,Buy,1,5000,2024-01-02 09:30:00
e2,MES,Sell,1,5001,01/02/2024 09:35:00
`
	store := &memStore{}
	imp := &Importer{Store: store}

	res, err := imp.ImportFile(context.Background(), "u1", writeExport(t, "export.csv", csvData))
	assert.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Zero(t, res.Filtered)

	// trading_day falls back to the execution's UTC date.
	assert.Equal(t, "2024-01-02", store.execs[0].TradingDay)
}

func TestImportFileMissingColumn(t *testing.T) {
	t.Parallel()

	csvData := "execution_id,symbol,side,quantity,time\ne1,MES,Buy,1,2024-01-02T09:30:00Z\n"
	imp := &Importer{Store: &memStore{}}

	_, err := imp.ImportFile(context.Background(), "u1", writeExport(t, "export.csv", csvData))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "price")
}

func TestImportFileMissingFile(t *testing.T) {
	t.Parallel()

	imp := &Importer{Store: &memStore{}}
	_, err := imp.ImportFile(context.Background(), "u1", filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
