package hyperliquid

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeResponseDecoding(t *testing.T) {
	var ok exchangeResponse
	require.NoError(t, json.Unmarshal([]byte(`{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":1}},{"filled":{"totalSz":"0.5","avgPx":"10.5","oid":2}},{"error":"Order must have minimum value of $10."}]}}}`), &ok))
	require.NoError(t, ok.Err())
	require.Len(t, ok.Statuses, 3)
	assert.Equal(t, int64(1), ok.Statuses[0].Resting.Oid)
	assert.Equal(t, "0.5", ok.Statuses[1].Filled.TotalSz)
	assert.False(t, ok.Statuses[2].Success)
	assert.Contains(t, ok.Statuses[2].Error, "minimum value")

	var cancel exchangeResponse
	require.NoError(t, json.Unmarshal([]byte(`{"status":"ok","response":{"type":"cancel","data":{"statuses":["success"]}}}`), &cancel))
	require.Len(t, cancel.Statuses, 1)
	assert.True(t, cancel.Statuses[0].Success)

	var rejected exchangeResponse
	require.NoError(t, json.Unmarshal([]byte(`{"status":"err","response":"Invalid nonce"}`), &rejected))
	require.EqualError(t, rejected.Err(), "Invalid nonce")
}

func TestMetaAndAssetCtxsDecodesArrayForm(t *testing.T) {
	var resp MetaAndAssetCtxsResponse
	require.NoError(t, json.Unmarshal([]byte(metaFixture), &resp))
	require.Len(t, resp.Universe, 2)
	require.Len(t, resp.AssetCtxs, 2)
	assert.Equal(t, "ETH", resp.Universe[1].Name)
	assert.Equal(t, "3000.0", resp.AssetCtxs[1].MarkPx)

	require.Error(t, json.Unmarshal([]byte(`[]`), &resp))
}

func TestConvertSymbol(t *testing.T) {
	c, err := NewClient(testKeyHex, true)
	require.NoError(t, err)
	cases := map[string]string{
		"BTCUSDT":  "BTC",
		"btc":      "BTC",
		"ETH-USD":  "ETH",
		"SOL-PERP": "SOL",
		"DOGEUSD":  "DOGE",
		" avax ":   "AVAX",
		"USDT":     "USDT",
	}
	for in, want := range cases {
		assert.Equalf(t, want, c.ConvertSymbol(in), "ConvertSymbol(%q)", in)
	}
}

func TestFormatting(t *testing.T) {
	c, err := NewClient(testKeyHex, true)
	require.NoError(t, err)

	assert.Equal(t, "0.1235", c.FormatQuantity(decimal.RequireFromString("0.12345"), "BTCUSDT"))
	assert.Equal(t, "12", c.FormatQuantity(decimal.RequireFromString("12.4"), "DOGE"))
	assert.Equal(t, "1.500", c.FormatQuantity(decimal.RequireFromString("1.5"), "PEPE"))
	assert.Equal(t, "0.12346", c.FormatPrice(decimal.RequireFromString("0.123456"), "DOGEUSDT"))
	assert.Equal(t, "145.235", c.FormatPrice(decimal.RequireFromString("145.2345"), "SOL"))

	once := c.FormatQuantity(decimal.RequireFromString("3.14159"), "ETH")
	assert.Equal(t, once, c.FormatQuantity(decimal.RequireFromString(once), "ETH"))
}
