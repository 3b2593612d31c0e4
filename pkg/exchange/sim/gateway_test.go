package sim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/pkg/exchange"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func market(symbol string, side exchange.OrderSide, qty string) exchange.OrderRequest {
	return exchange.OrderRequest{Symbol: symbol, Side: side, Type: exchange.OrderTypeMarket, Quantity: qty}
}

func closeTrigger(symbol string, side exchange.OrderSide, typ exchange.OrderType, stop string) exchange.OrderRequest {
	return exchange.OrderRequest{Symbol: symbol, Side: side, Type: typ, StopPrice: stop, ClosePosition: true, ReduceOnly: true}
}

func TestGateway_BasicFlow(t *testing.T) {
	g := New()
	ctx := context.Background()

	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("50000")))
	_, err := g.SetLeverage(ctx, "BTC", 10)
	require.NoError(t, err)

	res, err := g.PlaceOrder(ctx, market("BTCUSDT", exchange.SideBuy, "0.01"))
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusFilled, res.Status)
	assert.Equal(t, "0.01", res.ExecutedQty)
	assert.Equal(t, "50000", res.AvgPrice)
	assert.Equal(t, "BTCUSDT", res.Symbol)

	pos, err := g.GetPositions(ctx, "btc-usdt")
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, "0.01", pos[0].PositionAmt)
	assert.Equal(t, 10, pos[0].Leverage)
	assert.Equal(t, exchange.MarginCrossed, pos[0].MarginMode)

	req := market("BTC", exchange.SideSell, "0.05")
	req.ReduceOnly = true
	res, err = g.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "0.01", res.ExecutedQty, "reduce-only is clamped to the open position")

	pos, err = g.GetAllPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, pos)
}

func TestGateway_RealizedPnl(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.SetMarkPrice(ctx, "ETH", d("3000")))

	_, err := g.PlaceOrder(ctx, market("ETH", exchange.SideBuy, "1"))
	require.NoError(t, err)
	require.NoError(t, g.SetMarkPrice(ctx, "ETH", d("3100")))

	info, err := g.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", info.TotalUnrealizedProfit)
	assert.Equal(t, "100000", info.TotalBalance)
	assert.Equal(t, "155", info.Details.TotalInitialMargin, "3100 notional at the default 20x")

	_, err = g.PlaceOrder(ctx, market("ETH", exchange.SideSell, "1"))
	require.NoError(t, err)

	info, err = g.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100100", info.TotalBalance)
	assert.Equal(t, "0", info.TotalUnrealizedProfit)
	assert.Equal(t, "100100", info.AvailableBalance)

	trades, err := g.GetUserTrades(ctx, exchange.TradeQuery{Symbol: "ETHUSDT"})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "100", trades[1].RealizedPnl)
	assert.Equal(t, "3100", trades[1].QuoteQty)
	assert.Equal(t, "USDT", trades[1].CommissionAsset)
}

func TestGateway_AverageEntryAndFlip(t *testing.T) {
	g := New()
	ctx := context.Background()

	require.NoError(t, g.SetMarkPrice(ctx, "SOL", d("100")))
	_, err := g.PlaceOrder(ctx, market("SOL", exchange.SideBuy, "1"))
	require.NoError(t, err)
	require.NoError(t, g.SetMarkPrice(ctx, "SOL", d("200")))
	_, err = g.PlaceOrder(ctx, market("SOL", exchange.SideBuy, "1"))
	require.NoError(t, err)

	pos, err := g.GetPositions(ctx, "SOL")
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, "2", pos[0].PositionAmt)
	assert.Equal(t, "150", pos[0].EntryPrice)

	// sell through zero into a short
	_, err = g.PlaceOrder(ctx, market("SOL", exchange.SideSell, "3"))
	require.NoError(t, err)
	pos, err = g.GetPositions(ctx, "SOL")
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, "-1", pos[0].PositionAmt)
	assert.Equal(t, "200", pos[0].EntryPrice)

	info, err := g.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100100", info.TotalBalance, "2 closed at 200 against 150")
}

func TestGateway_ShortCoverRealizesProfit(t *testing.T) {
	g := New()
	ctx := context.Background()

	require.NoError(t, g.SetMarkPrice(ctx, "SOL", d("100")))
	_, err := g.PlaceOrder(ctx, market("SOL", exchange.SideSell, "1"))
	require.NoError(t, err)
	require.NoError(t, g.SetMarkPrice(ctx, "SOL", d("90")))

	_, err = g.PlaceOrder(ctx, market("SOL", exchange.SideBuy, "3"))
	require.NoError(t, err)

	pos, err := g.GetPositions(ctx, "SOL")
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, "2", pos[0].PositionAmt)
	assert.Equal(t, "90", pos[0].EntryPrice)

	trades, err := g.GetUserTrades(ctx, exchange.TradeQuery{Symbol: "SOL", Limit: 1})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "10", trades[0].RealizedPnl)
}

func TestGateway_MarginCheck(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("50000")))
	_, err := g.SetLeverage(ctx, "BTC", 10)
	require.NoError(t, err)
	g.SetAvailableBalance(d("1000"))

	_, err = g.PlaceOrder(ctx, market("BTC", exchange.SideBuy, "0.3"))
	require.Error(t, err)
	var ve *exchange.VenueError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "sim", ve.Venue)
	assert.Contains(t, err.Error(), "insufficient margin")

	res, err := g.PlaceOrder(ctx, market("BTC", exchange.SideBuy, "0.2"))
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusFilled, res.Status)

	info, err := g.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1000", info.AvailableBalance)

	g.ResetAvailableBalance()
	info, err = g.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "99000", info.AvailableBalance)
}

func TestGateway_MarketOrderNeedsMarkPrice(t *testing.T) {
	g := New()
	_, err := g.PlaceOrder(context.Background(), market("DOGE", exchange.SideBuy, "10"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mark price for DOGEUSDT")

	_, err = g.PlaceOrder(context.Background(), market("DOGE", exchange.SideBuy, "0"))
	require.Error(t, err)
	_, err = g.PlaceOrder(context.Background(), market("DOGE", "HOLD", "1"))
	require.Error(t, err)
	_, err = g.PlaceOrder(context.Background(), market(" ", exchange.SideBuy, "1"))
	require.Error(t, err)
}

func TestGateway_BracketTriggers(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("50000")))
	_, err := g.PlaceOrder(ctx, market("BTC", exchange.SideBuy, "0.1"))
	require.NoError(t, err)

	tp, err := g.PlaceOrder(ctx, closeTrigger("BTC", exchange.SideSell, exchange.OrderTypeTakeProfitMarket, "55000"))
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusNew, tp.Status)
	assert.True(t, tp.ClosePosition)
	sl, err := g.PlaceOrder(ctx, closeTrigger("BTC", exchange.SideSell, exchange.OrderTypeStopMarket, "48000"))
	require.NoError(t, err)

	open, err := g.GetOpenOrders(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, tp.OrderID, open[0].OrderID)

	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("54000")))
	open, err = g.GetOpenOrders(ctx, "")
	require.NoError(t, err)
	assert.Len(t, open, 2, "nothing crossed yet")

	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("55000")))
	status, err := g.GetOrderStatus(ctx, "BTC", tp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusFilled, status.Status)
	assert.Equal(t, "0.1", status.ExecutedQty)
	assert.Equal(t, "55000", status.AvgPrice)

	pos, err := g.GetAllPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, pos)

	info, err := g.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100500", info.TotalBalance)

	// the stop has nothing left to close
	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("47000")))
	status, err = g.GetOrderStatus(ctx, "BTC", sl.OrderID)
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusExpired, status.Status)
}

func TestGateway_ShortStopFiresUpward(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.SetMarkPrice(ctx, "ETH", d("3000")))
	_, err := g.PlaceOrder(ctx, market("ETH", exchange.SideSell, "2"))
	require.NoError(t, err)

	sl, err := g.PlaceOrder(ctx, closeTrigger("ETH", exchange.SideBuy, exchange.OrderTypeStopMarket, "3100"))
	require.NoError(t, err)
	require.NoError(t, g.SetMarkPrice(ctx, "ETH", d("3150")))

	status, err := g.GetOrderStatus(ctx, "", sl.OrderID)
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusFilled, status.Status)
	assert.Equal(t, "2", status.ExecutedQty)

	info, err := g.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "99700", info.TotalBalance)
}

func TestGateway_TriggerWouldImmediatelyFire(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("50000")))

	_, err := g.PlaceOrder(ctx, closeTrigger("BTC", exchange.SideSell, exchange.OrderTypeStopMarket, "51000"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immediately trigger")

	_, err = g.PlaceOrder(ctx, closeTrigger("BTC", exchange.SideSell, exchange.OrderTypeStopMarket, ""))
	require.Error(t, err)
}

func TestGateway_LimitOrders(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.SetMarkPrice(ctx, "ETH", d("3000")))

	resting, err := g.PlaceOrder(ctx, exchange.OrderRequest{Symbol: "ETH", Side: exchange.SideBuy, Type: exchange.OrderTypeLimit, Quantity: "1", Price: "2900"})
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusNew, resting.Status)

	filled, err := g.PlaceOrder(ctx, exchange.OrderRequest{Symbol: "ETH", Side: exchange.SideBuy, Type: exchange.OrderTypeLimit, Quantity: "1", Price: "3100"})
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusFilled, filled.Status)
	assert.Equal(t, "3100", filled.AvgPrice)

	_, err = g.PlaceOrder(ctx, exchange.OrderRequest{Symbol: "ETH", Side: exchange.SideBuy, Type: exchange.OrderTypeLimit, Quantity: "1", Price: "3100", TimeInForce: exchange.TimeInForceGTX})
	require.Error(t, err)

	ioc, err := g.PlaceOrder(ctx, exchange.OrderRequest{Symbol: "ETH", Side: exchange.SideSell, Type: exchange.OrderTypeLimit, Quantity: "1", Price: "3500", TimeInForce: exchange.TimeInForceIOC})
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusExpired, ioc.Status)

	_, err = g.PlaceOrder(ctx, exchange.OrderRequest{Symbol: "ETH", Side: exchange.SideSell, Type: exchange.OrderTypeLimit, Quantity: "1"})
	require.Error(t, err)
}

func TestGateway_CancelOrder(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("50000")))

	o, err := g.PlaceOrder(ctx, closeTrigger("BTC", exchange.SideSell, exchange.OrderTypeStopMarket, "45000"))
	require.NoError(t, err)
	require.NoError(t, g.CancelOrder(ctx, "BTC", o.OrderID))

	status, err := g.GetOrderStatus(ctx, "BTC", o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusCanceled, status.Status)

	err = g.CancelOrder(ctx, "BTC", o.OrderID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is CANCELED")

	err = g.CancelOrder(ctx, "BTC", "999")
	assert.ErrorIs(t, err, errUnknownOrder)
	_, err = g.GetOrderStatus(ctx, "ETH", o.OrderID)
	assert.ErrorIs(t, err, errUnknownOrder, "symbol must match")
}

func TestGateway_CancelAllWithOneFailure(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("50000")))
	for _, stop := range []string{"40000", "41000", "42000"} {
		_, err := g.PlaceOrder(ctx, closeTrigger("BTC", exchange.SideSell, exchange.OrderTypeStopMarket, stop))
		require.NoError(t, err)
	}

	boom := errors.New("rate limited")
	g.FailNext(OpCancelOrder, boom)

	result, err := g.CancelAllOrders(ctx, "BTC")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, result)
	assert.Len(t, result.Cancelled, 2)
	assert.Len(t, result.Failed, 1)

	open, err := g.GetOpenOrders(ctx, "BTC")
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestGateway_FailNextQueuesPerOperation(t *testing.T) {
	g := New()
	ctx := context.Background()
	first := errors.New("first")
	second := errors.New("second")
	g.FailNext(OpGetServerTime, first)
	g.FailNext(OpGetServerTime, second)
	g.FailNext(OpGetTicker, nil)

	_, err := g.GetServerTime(ctx)
	assert.ErrorIs(t, err, first)
	_, err = g.GetServerTime(ctx)
	assert.ErrorIs(t, err, second)
	_, err = g.GetServerTime(ctx)
	assert.NoError(t, err)

	_, err = g.GetTicker(ctx, "BTC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "injected failure")
}

func TestGateway_Ticker(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := g.GetTicker(ctx, "BTC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no market data")

	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("50123.5")))
	ticker, err := g.GetTicker(ctx, "btc")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", ticker.Symbol)
	assert.True(t, ticker.Price().Equal(d("50123.5")))
	assert.Equal(t, now, ticker.Time)

	ts, err := g.GetServerTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, now, ts)
	assert.NoError(t, g.SyncServerTime(ctx))

	assert.Error(t, g.SetMarkPrice(ctx, "BTC", decimal.Zero))
}

func TestGateway_RiskSettings(t *testing.T) {
	g := New()
	ctx := context.Background()

	ack, err := g.SetMarginType(ctx, "BTC", exchange.MarginIsolated)
	require.NoError(t, err)
	assert.True(t, ack.Applied)

	ack, err = g.SetMarginType(ctx, "BTC", exchange.MarginIsolated)
	require.NoError(t, err)
	assert.False(t, ack.Applied)
	assert.Equal(t, "No need to change margin type", ack.Message)

	_, err = g.SetMarginType(ctx, "BTC", "PORTFOLIO")
	require.Error(t, err)
	_, err = g.SetLeverage(ctx, "BTC", 0)
	require.Error(t, err)

	_, err = g.SetLeverage(ctx, "BTC", 5)
	require.NoError(t, err)
	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("50000")))
	_, err = g.PlaceOrder(ctx, market("BTC", exchange.SideBuy, "0.1"))
	require.NoError(t, err)

	pos, err := g.GetPositions(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, exchange.MarginIsolated, pos[0].MarginMode)
	assert.Equal(t, "1000", pos[0].IsolatedMargin)

	_, err = g.SetMarginType(ctx, "BTC", exchange.MarginCrossed)
	require.Error(t, err, "mode cannot change with an open position")
}

func TestGateway_SymbolsAndPrecision(t *testing.T) {
	g := New()
	assert.Equal(t, "BTCUSDT", g.ConvertSymbol("btc-usdt"))
	assert.Equal(t, "ETHUSDT", g.ConvertSymbol("eth"))
	assert.Equal(t, "SOLUSDC", g.ConvertSymbol("SOL/USDC"))
	assert.Equal(t, "0.123", g.FormatQuantity(d("0.12345"), "BTCUSDT"))
	assert.Equal(t, "12.35", g.FormatPrice(d("12.345"), "XYZ"))
	assert.Equal(t, "0.12346", g.FormatPrice(d("0.123456"), "DOGE"))
}

func TestGateway_UserTradesWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	g := New(WithClock(func() time.Time { return now }), WithInitialCash(d("5000")))
	ctx := context.Background()
	require.NoError(t, g.SetMarkPrice(ctx, "ETH", d("2000")))

	for i := 0; i < 3; i++ {
		_, err := g.PlaceOrder(ctx, market("ETH", exchange.SideBuy, "0.1"))
		require.NoError(t, err)
		now = now.Add(time.Hour)
	}

	trades, err := g.GetUserTrades(ctx, exchange.TradeQuery{
		Symbol:    "ETH",
		StartTime: time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	trades, err = g.GetUserTrades(ctx, exchange.TradeQuery{Symbol: "BTC"})
	require.NoError(t, err)
	assert.Empty(t, trades)

	info, err := g.GetAccountInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5000", info.TotalBalance)
}

func TestGateway_ConcurrentAccess(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.SetMarkPrice(ctx, "BTC", d("50000")))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.PlaceOrder(ctx, market("BTC", exchange.SideBuy, "0.001"))
			assert.NoError(t, err)
			_, err = g.GetAccountInfo(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	pos, err := g.GetPositions(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, "0.02", pos[0].PositionAmt)
}

func TestGateway_Registered(t *testing.T) {
	gw, err := exchange.New(exchange.GatewayConfig{Variant: exchange.VariantSim})
	require.NoError(t, err)
	assert.Equal(t, "sim", gw.Name())
	assert.NoError(t, gw.Close())
	assert.NoError(t, gw.Close())
}
