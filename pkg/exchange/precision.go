package exchange

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PrecisionTable maps base assets to the number of decimals a venue accepts.
// Lookups fall back to the defaults for unlisted assets.
type PrecisionTable struct {
	Quantity        map[string]int32
	Price           map[string]int32
	DefaultQuantity int32
	DefaultPrice    int32
}

// QuantityDecimals returns the quantity precision for a base asset.
func (t PrecisionTable) QuantityDecimals(base string) int32 {
	if d, ok := t.Quantity[strings.ToUpper(base)]; ok {
		return d
	}
	return t.DefaultQuantity
}

// PriceDecimals returns the price precision for a base asset.
func (t PrecisionTable) PriceDecimals(base string) int32 {
	if d, ok := t.Price[strings.ToUpper(base)]; ok {
		return d
	}
	return t.DefaultPrice
}

// FormatQuantity rounds qty to the asset's quantity precision. Rounding
// happens half-away-from-zero, so formatting a formatted value is a no-op.
func (t PrecisionTable) FormatQuantity(qty decimal.Decimal, base string) string {
	return formatFixed(qty, t.QuantityDecimals(base))
}

// FormatPrice rounds price to the asset's price precision.
func (t PrecisionTable) FormatPrice(price decimal.Decimal, base string) string {
	return formatFixed(price, t.PriceDecimals(base))
}

func formatFixed(v decimal.Decimal, places int32) string {
	out := v.Round(places).StringFixed(places)
	if strings.TrimLeft(strings.TrimPrefix(out, "-"), "0.") == "" {
		// avoid "-0.000"
		return decimal.Zero.StringFixed(places)
	}
	return out
}
