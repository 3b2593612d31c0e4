package hyperliquid

import (
	"strings"

	"github.com/shopspring/decimal"

	"tradegate/pkg/exchange"
)

var precision = exchange.PrecisionTable{
	Quantity: map[string]int32{
		"BTC": 4, "ETH": 3, "SOL": 2, "AVAX": 2, "BNB": 2,
		"MATIC": 0, "DOGE": 0, "XRP": 0,
	},
	Price: map[string]int32{
		"BTC": 1, "ETH": 2, "SOL": 3, "AVAX": 3, "BNB": 2,
		"MATIC": 4, "DOGE": 5, "XRP": 4,
	},
	DefaultQuantity: 3,
	DefaultPrice:    2,
}

// ConvertSymbol maps a canonical pair such as "BTCUSDT" to the venue coin
// name "BTC". Bare coins pass through upper-cased.
func (c *Client) ConvertSymbol(symbol string) string {
	return coinFromSymbol(symbol)
}

// FormatQuantity implements exchange.Gateway.
func (c *Client) FormatQuantity(qty decimal.Decimal, symbol string) string {
	return precision.FormatQuantity(qty, coinFromSymbol(symbol))
}

// FormatPrice implements exchange.Gateway.
func (c *Client) FormatPrice(price decimal.Decimal, symbol string) string {
	return precision.FormatPrice(price, coinFromSymbol(symbol))
}

func coinFromSymbol(symbol string) string {
	s := canonicalAssetKey(symbol)
	for _, suffix := range []string{"-PERP", "-USD", "USDT", "USDC", "USD"} {
		if trimmed := strings.TrimSuffix(s, suffix); trimmed != s && trimmed != "" {
			return trimmed
		}
	}
	return s
}

func canonicalAssetKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
