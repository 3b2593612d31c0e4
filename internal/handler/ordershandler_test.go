package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/internal/config"
	"tradegate/internal/svc"
	"tradegate/internal/types"
	"tradegate/pkg/bracket"
	"tradegate/pkg/exchange"
	"tradegate/pkg/exchange/sim"
	"tradegate/pkg/executor"
)

func newTestContext(t *testing.T) (*svc.ServiceContext, *sim.Gateway) {
	t.Helper()
	sc, err := svc.New(config.Config{Env: "test"}, "/tmp/tradegate.yaml")
	require.NoError(t, err)
	t.Cleanup(sc.Close)
	gw := sc.Gateways["sim"].(*sim.Gateway)
	require.NoError(t, gw.SetMarkPrice(context.Background(), "BTC", decimal.NewFromInt(50000)))
	return sc, gw
}

func do(t *testing.T, h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestExecuteHandler(t *testing.T) {
	sc, _ := newTestContext(t)

	rec := do(t, ExecuteHandler(sc), http.MethodPost, "/api/orders/execute",
		`{"symbol":"BTC","side":"buy","quantity":"0.1","leverage":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res executor.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success, res.Error)
	assert.Equal(t, "sim", res.Gateway)
	assert.NotEmpty(t, res.OrderID)
}

func TestExecuteHandler_EngineFailureIsStillOK(t *testing.T) {
	sc, gw := newTestContext(t)
	gw.SetAvailableBalance(decimal.NewFromInt(100))

	rec := do(t, ExecuteHandler(sc), http.MethodPost, "/api/orders/execute",
		`{"symbol":"BTC","side":"BUY","quantity":"1","leverage":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res executor.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Insufficient margin")
}

func TestExecuteHandler_BadInput(t *testing.T) {
	sc, _ := newTestContext(t)

	rec := do(t, ExecuteHandler(sc), http.MethodPost, "/api/orders/execute",
		`{"symbol":"BTC","side":"BUY","quantity":"lots"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid quantity")

	rec = do(t, ExecuteHandler(sc), http.MethodPost, "/api/orders/execute",
		`{"gateway":"nope","symbol":"BTC","side":"BUY","quantity":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBracketHandlerAndCancel(t *testing.T) {
	sc, _ := newTestContext(t)

	rec := do(t, BracketHandler(sc), http.MethodPost, "/api/orders/bracket",
		`{"order":{"symbol":"BTC","side":"BUY","quantity":"0.1","leverage":5},"takeProfit":"55000","stopLoss":"48000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res bracket.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.NotEmpty(t, res.TakeProfitOrderID)
	require.NotEmpty(t, res.StopLossOrderID)

	rec = do(t, OpenOrdersHandler(sc), http.MethodGet, "/api/orders/open?symbol=BTC", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var open types.OpenOrdersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &open))
	assert.Len(t, open.Orders, 2)

	rec = do(t, OrderStatusHandler(sc), http.MethodGet, "/api/orders/status?symbol=BTC&orderId="+res.StopLossOrderID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var order exchange.OrderResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, exchange.StatusNew, order.Status)
	assert.Equal(t, exchange.OrderTypeStopMarket, order.Type)

	rec = do(t, CancelBracketHandler(sc), http.MethodPost, "/api/orders/cancel-bracket",
		`{"symbol":"BTC","takeProfitOrderId":"`+res.TakeProfitOrderID+`","stopLossOrderId":"`+res.StopLossOrderID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled types.CancelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Len(t, cancelled.Cancelled, 2)
	assert.Empty(t, cancelled.Error)
}

func TestBracketHandler_RequiresAnExit(t *testing.T) {
	sc, _ := newTestContext(t)
	rec := do(t, BracketHandler(sc), http.MethodPost, "/api/orders/bracket",
		`{"order":{"symbol":"BTC","side":"BUY","quantity":"0.1"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelAllHandler(t *testing.T) {
	sc, gw := newTestContext(t)
	ctx := context.Background()
	for _, px := range []string{"40000", "41000", "42000"} {
		_, err := gw.PlaceOrder(ctx, exchange.OrderRequest{Symbol: "BTC", Side: exchange.SideBuy, Type: exchange.OrderTypeLimit, Quantity: "0.01", Price: px})
		require.NoError(t, err)
	}
	gw.FailNext(sim.OpCancelOrder, nil)

	rec := do(t, CancelAllHandler(sc), http.MethodPost, "/api/orders/cancel-all", `{"symbol":"BTC"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.CancelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Cancelled, 2)
	assert.Len(t, resp.Failed, 1)
	assert.NotEmpty(t, resp.Error)

	rec = do(t, CancelAllHandler(sc), http.MethodPost, "/api/orders/cancel-all", `{"symbol":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderStatusHandler_Errors(t *testing.T) {
	sc, _ := newTestContext(t)

	rec := do(t, OrderStatusHandler(sc), http.MethodGet, "/api/orders/status?symbol=BTC&orderId=999", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, OrderStatusHandler(sc), http.MethodGet, "/api/orders/status?symbol=BTC", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGatewaysHandler(t *testing.T) {
	sc, _ := newTestContext(t)
	rec := do(t, GatewaysHandler(sc), http.MethodGet, "/api/gateways", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.GatewaysResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sim", resp.Default)
	require.Len(t, resp.Configured, 1)
	assert.Equal(t, types.GatewayInfo{Name: "sim", Variant: "sim", Testnet: true, Default: true}, resp.Configured[0])
	assert.ElementsMatch(t, []string{"binance", "hyperliquid", "sim"}, resp.Supported)
}
