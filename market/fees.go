// market/fees.go
package market

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// BaselineTier is the tier assumed when a user has no stored preference.
// Tier "fixed" is an alias for it.
const BaselineTier = "3"

// FeeSchedule maps symbol -> tier -> per-contract commission. Rates are
// positive in the file; Commission negates them since fees are a cost.
type FeeSchedule struct {
	Rates map[string]SymbolRates `json:"rates" yaml:"rates"`
}

type SymbolRates struct {
	Tiers map[string]float64 `json:"tiers" yaml:"tiers"`
}

// PerContract returns the per-contract fee for a symbol at the given tier.
// Unknown symbols or tiers yield 0; a missing rate must not abort matching.
func (s FeeSchedule) PerContract(symbol, tier string) float64 {
	tier = NormalizeTier(tier)

	sym, ok := s.Rates[symbol]
	if !ok {
		return 0
	}
	rate, ok := sym.Tiers[tier]
	if !ok {
		return 0
	}
	return rate
}

// Commission returns the fee for one leg of a fill: -1 * rate * |quantity|.
func (s FeeSchedule) Commission(symbol, tier string, quantity int64) float64 {
	q := quantity
	if q < 0 {
		q = -q
	}
	return -s.PerContract(symbol, tier) * float64(q)
}

// NormalizeTier resolves tier aliases; "fixed" (any case) means the
// baseline tier, and an empty tier defaults to it as well.
func NormalizeTier(tier string) string {
	tier = strings.TrimSpace(tier)
	if tier == "" || strings.EqualFold(tier, "fixed") {
		return BaselineTier
	}
	return tier
}

// LoadFeeSchedule reads a fee schedule from a YAML or JSON file.
func LoadFeeSchedule(path string) (FeeSchedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FeeSchedule{}, fmt.Errorf("read fee schedule: %w", err)
	}

	var s FeeSchedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		if jerr := json.Unmarshal(data, &s); jerr != nil {
			return FeeSchedule{}, fmt.Errorf("parse fee schedule (tried YAML and JSON): %w", err)
		}
	}
	if len(s.Rates) == 0 {
		return FeeSchedule{}, fmt.Errorf("fee schedule %s has no rates", path)
	}
	return s, nil
}

// DefaultFeeSchedule returns the built-in AMP per-contract rates.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		Rates: map[string]SymbolRates{
			"ES":  {Tiers: map[string]float64{"1": 2.15, "2": 2.05, "3": 1.95}},
			"MES": {Tiers: map[string]float64{"1": 0.89, "2": 0.79, "3": 0.69}},
			"NQ":  {Tiers: map[string]float64{"1": 2.15, "2": 2.05, "3": 1.95}},
			"MNQ": {Tiers: map[string]float64{"1": 0.89, "2": 0.79, "3": 0.69}},
			"YM":  {Tiers: map[string]float64{"1": 2.15, "2": 2.05, "3": 1.95}},
			"MYM": {Tiers: map[string]float64{"1": 0.89, "2": 0.79, "3": 0.69}},
			"RTY": {Tiers: map[string]float64{"1": 2.15, "2": 2.05, "3": 1.95}},
			"M2K": {Tiers: map[string]float64{"1": 0.89, "2": 0.79, "3": 0.69}},
			"CL":  {Tiers: map[string]float64{"1": 2.45, "2": 2.35, "3": 2.25}},
			"MCL": {Tiers: map[string]float64{"1": 0.99, "2": 0.89, "3": 0.79}},
			"GC":  {Tiers: map[string]float64{"1": 2.45, "2": 2.35, "3": 2.25}},
			"MGC": {Tiers: map[string]float64{"1": 0.99, "2": 0.89, "3": 0.79}},
		},
	}
}
