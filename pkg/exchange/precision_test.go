package exchange

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var testTable = PrecisionTable{
	Quantity:        map[string]int32{"BTC": 4, "DOGE": 0},
	Price:           map[string]int32{"BTC": 1, "DOGE": 5},
	DefaultQuantity: 3,
	DefaultPrice:    2,
}

func TestPrecisionTableDefaults(t *testing.T) {
	assert.Equal(t, "1.235", testTable.FormatQuantity(decimal.RequireFromString("1.23456"), "UNLISTED"))
	assert.Equal(t, "12.35", testTable.FormatPrice(decimal.RequireFromString("12.345"), "UNLISTED"))
	assert.Equal(t, int32(3), testTable.QuantityDecimals("zzz"))
	assert.Equal(t, int32(2), testTable.PriceDecimals("zzz"))
}

func TestPrecisionTableListed(t *testing.T) {
	assert.Equal(t, "0.1235", testTable.FormatQuantity(decimal.RequireFromString("0.12345"), "BTC"))
	assert.Equal(t, "0.1235", testTable.FormatQuantity(decimal.RequireFromString("0.12345"), "btc"))
	assert.Equal(t, "50000.5", testTable.FormatPrice(decimal.RequireFromString("50000.46"), "BTC"))
	assert.Equal(t, "124", testTable.FormatQuantity(decimal.RequireFromString("123.6"), "DOGE"))
	assert.Equal(t, "0.12346", testTable.FormatPrice(decimal.RequireFromString("0.123456"), "DOGE"))
}

func TestPrecisionTablePadsAndAvoidsNegativeZero(t *testing.T) {
	assert.Equal(t, "2.000", testTable.FormatQuantity(decimal.NewFromInt(2), "ETH"))
	assert.Equal(t, "0.000", testTable.FormatQuantity(decimal.RequireFromString("-0.0001"), "ETH"))
}

func TestPrecisionTableIdempotent(t *testing.T) {
	inputs := []string{"0", "0.0004", "0.0005", "1.23456789", "99999.99999", "-3.14159", "0.912", "123456789.987654321"}
	for _, sym := range []string{"BTC", "DOGE", "ETH"} {
		for _, raw := range inputs {
			x := decimal.RequireFromString(raw)
			once := testTable.FormatQuantity(x, sym)
			twice := testTable.FormatQuantity(decimal.RequireFromString(once), sym)
			assert.Equal(t, once, twice, "quantity %s/%s", sym, raw)

			p1 := testTable.FormatPrice(x, sym)
			p2 := testTable.FormatPrice(decimal.RequireFromString(p1), sym)
			assert.Equal(t, p1, p2, "price %s/%s", sym, raw)
		}
	}
}
