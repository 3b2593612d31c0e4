package binance

import (
	"strings"

	"github.com/shopspring/decimal"

	"tradegate/pkg/exchange"
)

var quoteAssets = []string{"USDT", "USDC", "BUSD"}

var precision = exchange.PrecisionTable{
	Quantity: map[string]int32{
		"BTC": 3, "ETH": 3, "SOL": 0, "BNB": 2, "XRP": 1, "DOGE": 0,
	},
	Price: map[string]int32{
		"BTC": 1, "ETH": 2, "SOL": 2, "BNB": 2, "XRP": 4, "DOGE": 5,
	},
	DefaultQuantity: 3,
	DefaultPrice:    2,
}

// ConvertSymbol maps "btc", "BTC-USDT" or "BTC/USDT" to "BTCUSDT".
func (c *Client) ConvertSymbol(symbol string) string {
	return pairFromSymbol(symbol)
}

// FormatQuantity implements exchange.Gateway.
func (c *Client) FormatQuantity(qty decimal.Decimal, symbol string) string {
	return precision.FormatQuantity(qty, baseAsset(symbol))
}

// FormatPrice implements exchange.Gateway.
func (c *Client) FormatPrice(price decimal.Decimal, symbol string) string {
	return precision.FormatPrice(price, baseAsset(symbol))
}

func pairFromSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
	if s == "" {
		return s
	}
	for _, quote := range quoteAssets {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}
	return s + "USDT"
}

func baseAsset(symbol string) string {
	pair := pairFromSymbol(symbol)
	for _, quote := range quoteAssets {
		if base := strings.TrimSuffix(pair, quote); base != pair && base != "" {
			return base
		}
	}
	return pair
}
