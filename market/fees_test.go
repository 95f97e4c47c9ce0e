package market

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", "3"},
		{"fixed", "3"},
		{"FIXED", "3"},
		{" fixed ", "3"},
		{"1", "1"},
		{"2", "2"},
		{"3", "3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTier(tt.in), "tier %q", tt.in)
	}
}

func TestCommissionIsNegativePerContract(t *testing.T) {
	t.Parallel()

	s := DefaultFeeSchedule()

	// 2 contracts of MES at tier 3 (0.69/contract) on one leg.
	assert.InDelta(t, -1.38, s.Commission("MES", "3", 2), 1e-9)
	// Sell side quantities come in negative; the cost is the same.
	assert.InDelta(t, -1.38, s.Commission("MES", "3", -2), 1e-9)
	// "fixed" aliases the baseline tier.
	assert.InDelta(t, -1.38, s.Commission("MES", "fixed", 2), 1e-9)
}

func TestCommissionUnknownSymbolOrTierIsZero(t *testing.T) {
	t.Parallel()

	s := DefaultFeeSchedule()

	assert.Zero(t, s.Commission("ZZZ", "3", 5))
	assert.Zero(t, s.Commission("MES", "9", 5))
	assert.Zero(t, FeeSchedule{}.Commission("MES", "3", 5))
}

func TestLoadFeeScheduleYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fees.yaml")
	data := `rates:
  MES:
    tiers:
      "1": 0.89
      "3": 0.69
`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	s, err := LoadFeeSchedule(path)
	assert.NoError(t, err)
	assert.InDelta(t, 0.69, s.PerContract("MES", "3"), 1e-9)
	assert.InDelta(t, 0.89, s.PerContract("MES", "1"), 1e-9)
}

func TestLoadFeeScheduleJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fees.json")
	data := `{"rates":{"ES":{"tiers":{"3":1.95}}}}`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	s, err := LoadFeeSchedule(path)
	assert.NoError(t, err)
	assert.InDelta(t, 1.95, s.PerContract("ES", "3"), 1e-9)
}

func TestLoadFeeScheduleRejectsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fees.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("rates: {}\n"), 0o644))

	_, err := LoadFeeSchedule(path)
	assert.Error(t, err)
}

func TestContractForFallsBackToUnitMultiplier(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 5.0, ContractFor("MES").Multiplier, 1e-9)
	assert.InDelta(t, 50.0, ContractFor("ES").Multiplier, 1e-9)
	assert.InDelta(t, 1.0, ContractFor("UNLISTED").Multiplier, 1e-9)
}
