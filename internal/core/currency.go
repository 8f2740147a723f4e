package core

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
)

// Converter translates amounts from a source currency into the native
// reporting currency using a fixed, injected rate table. It is pure and
// stateless: the table is read-only after construction.
type Converter struct {
	rates  map[string]decimal.Decimal
	logger *slog.Logger
}

// DefaultRates returns the process-wide rate-to-USD table.
func DefaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("1.09"),
		"GBP": decimal.RequireFromString("1.27"),
		"CAD": decimal.RequireFromString("0.73"),
		"MXN": decimal.RequireFromString("0.058"),
		"JPY": decimal.RequireFromString("0.0067"),
	}
}

// NewConverter builds a converter over the given rate table. A nil logger
// falls back to slog.Default.
func NewConverter(rates map[string]decimal.Decimal, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{rates: rates, logger: logger}
}

// Convert returns the amount in the native currency, rounded half-up to two
// decimal places. An unknown currency code is treated as already-native: the
// amount comes back unchanged with a warning, not an error.
func (c *Converter) Convert(amount float64, fromCurrency string) float64 {
	rate, ok := c.rates[fromCurrency]
	if !ok {
		c.logger.Warn("unknown currency code, amount left unconverted",
			"currency", fromCurrency, "amount", amount)
		return amount
	}
	v, _ := decimal.NewFromFloat(amount).Mul(rate).Round(2).Float64()
	return v
}

// Rate returns the raw rate-to-native for a currency, 1.00 for unknown codes.
func (c *Converter) Rate(code string) decimal.Decimal {
	if rate, ok := c.rates[code]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}

// Currencies returns the supported currency codes in sorted order.
func (c *Converter) Currencies() []string {
	codes := make([]string, 0, len(c.rates))
	for code := range c.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
