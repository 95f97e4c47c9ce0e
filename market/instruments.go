// market/instruments.go
package market

// ContractMeta holds the futures contract specification needed to turn a
// price delta into currency P&L.
type ContractMeta struct {
	Name         string
	Multiplier   float64 // currency per full point, per contract
	TickSize     float64
	ValuePerTick float64
}

var Contracts = map[string]ContractMeta{
	"ES": {
		Name:         "ES",
		Multiplier:   50,
		TickSize:     0.25,
		ValuePerTick: 12.50,
	},
	"MES": {
		Name:         "MES",
		Multiplier:   5,
		TickSize:     0.25,
		ValuePerTick: 1.25,
	},
	"NQ": {
		Name:         "NQ",
		Multiplier:   20,
		TickSize:     0.25,
		ValuePerTick: 5.00,
	},
	"MNQ": {
		Name:         "MNQ",
		Multiplier:   2,
		TickSize:     0.25,
		ValuePerTick: 0.50,
	},
	"YM": {
		Name:         "YM",
		Multiplier:   5,
		TickSize:     1.0,
		ValuePerTick: 5.00,
	},
	"MYM": {
		Name:         "MYM",
		Multiplier:   0.5,
		TickSize:     1.0,
		ValuePerTick: 0.50,
	},
	"RTY": {
		Name:         "RTY",
		Multiplier:   50,
		TickSize:     0.10,
		ValuePerTick: 5.00,
	},
	"M2K": {
		Name:         "M2K",
		Multiplier:   5,
		TickSize:     0.10,
		ValuePerTick: 0.50,
	},
	"CL": {
		Name:         "CL",
		Multiplier:   1000,
		TickSize:     0.01,
		ValuePerTick: 10.00,
	},
	"MCL": {
		Name:         "MCL",
		Multiplier:   100,
		TickSize:     0.01,
		ValuePerTick: 1.00,
	},
	"GC": {
		Name:         "GC",
		Multiplier:   100,
		TickSize:     0.10,
		ValuePerTick: 10.00,
	},
	"MGC": {
		Name:         "MGC",
		Multiplier:   10,
		TickSize:     0.10,
		ValuePerTick: 1.00,
	},
}

// ContractFor returns the contract spec for symbol. Unknown symbols fall
// back to a 1x multiplier so P&L degrades to plain price-delta math instead
// of failing the whole run.
func ContractFor(symbol string) ContractMeta {
	if m, ok := Contracts[symbol]; ok {
		return m
	}
	return ContractMeta{Name: symbol, Multiplier: 1}
}
