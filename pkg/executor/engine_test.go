package executor_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tradegate/pkg/exchange"
	"tradegate/pkg/exchange/exchangemock"
	"tradegate/pkg/exchange/sim"
	"tradegate/pkg/executor"
)

var serverTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEngine(t *testing.T, gw exchange.Gateway, opts ...executor.Option) *executor.Engine {
	t.Helper()
	engine, err := executor.NewEngine(gw, nil, opts...)
	require.NoError(t, err)
	return engine
}

func expectSnapshot(gw *exchangemock.Gateway, symbol, available, price string, positions []exchange.Position) {
	gw.On("GetServerTime", mock.Anything).Return(serverTime, nil)
	gw.On("GetAccountInfo", mock.Anything).Return(&exchange.AccountInfo{
		TotalBalance:     available,
		AvailableBalance: available,
	}, nil)
	gw.On("GetPositions", mock.Anything, symbol).Return(positions, nil)
	gw.On("GetTicker", mock.Anything, symbol).Return(&exchange.Ticker{Symbol: symbol, LastPrice: price}, nil)
}

func btcIntent() executor.Intent {
	return executor.Intent{Symbol: "BTC", Side: exchange.SideBuy, Quantity: d("1"), Leverage: 10}
}

func TestExecute_InsufficientMargin(t *testing.T) {
	gw := exchangemock.New()
	expectSnapshot(gw, "BTC", "4000", "50000", nil)

	res := newEngine(t, gw).Execute(context.Background(), btcIntent())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Insufficient margin")
	assert.Equal(t, "Insufficient margin: Required 5000.00 USDT, Available 4000.00 USDT (Deficit: 1000.00 USDT). Notional: 50000.00 USDT", res.Error)

	var marginErr *executor.InsufficientMarginError
	require.True(t, errors.As(res.Err, &marginErr))
	assert.True(t, marginErr.Required.Equal(d("5000")))
	assert.True(t, marginErr.Available.Equal(d("4000")))
	assert.True(t, marginErr.Deficit.Equal(d("1000")))
	assert.True(t, marginErr.Notional.Equal(d("50000")))

	gw.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "SetLeverage", mock.Anything, mock.Anything, mock.Anything)

	sizing, ok := res.Step(executor.StepSizing)
	require.True(t, ok)
	assert.Equal(t, executor.StepFailed, sizing.Status)
	submit, ok := res.Step(executor.StepSubmit)
	require.True(t, ok)
	assert.Equal(t, executor.StepSkipped, submit.Status)
}

func TestExecute_AutoAdjustsQuantity(t *testing.T) {
	gw := exchangemock.New()
	expectSnapshot(gw, "BTC", "4800", "50000", nil)
	gw.On("SetLeverage", mock.Anything, "BTC", 10).Return(&exchange.Ack{Symbol: "BTC", Applied: true}, nil)
	gw.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Quantity == "0.912" && req.Side == exchange.SideBuy && req.Type == exchange.OrderTypeMarket
	})).Return(&exchange.OrderResult{OrderID: "42", Status: exchange.StatusFilled, ExecutedQty: "0.912"}, nil)

	intent := btcIntent()
	res := newEngine(t, gw).Execute(context.Background(), intent)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "42", res.OrderID)
	assert.True(t, res.Adjusted.Quantity.Equal(d("0.912")))
	assert.True(t, res.Intent.Quantity.Equal(d("1")), "caller intent is preserved")
	assert.True(t, intent.Quantity.Equal(d("1")))
	require.NotNil(t, res.Adjustment)
	assert.Equal(t, "quantity", res.Adjustment.Field)
	assert.True(t, res.Adjustment.From.Equal(d("1")))
	assert.True(t, res.Adjustment.To.Equal(d("0.912")))

	// qty × price / leverage lands on 95% of available
	margin := res.Adjusted.Quantity.Mul(d("50000")).Div(d("10"))
	assert.True(t, margin.Equal(d("4560")))

	joined := strings.Join(res.Warnings, "\n")
	assert.Contains(t, joined, "auto-adjusted from 1 to 0.912")
	assert.Contains(t, joined, "high margin usage 95.00%")
	gw.AssertExpectations(t)
}

func TestExecute_ConnectivityFailureAbortsBeforeMutation(t *testing.T) {
	gw := exchangemock.New()
	gw.On("GetServerTime", mock.Anything).Return(serverTime, errors.New("dial tcp: connection refused"))

	res := newEngine(t, gw).Execute(context.Background(), btcIntent())

	assert.False(t, res.Success)
	var connErr *executor.ConnectivityError
	require.True(t, errors.As(res.Err, &connErr))
	assert.Contains(t, res.Error, "connection refused")
	require.Len(t, res.Steps, 8)
	assert.Equal(t, executor.StepOK, res.Steps[0].Status)
	assert.Equal(t, executor.StepFailed, res.Steps[1].Status)
	for _, s := range res.Steps[2:] {
		assert.Equal(t, executor.StepSkipped, s.Status, s.Name)
	}
	gw.AssertNotCalled(t, "GetAccountInfo", mock.Anything)
	gw.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestExecute_TickerFallbackPrice(t *testing.T) {
	gw := exchangemock.New()
	gw.On("GetServerTime", mock.Anything).Return(serverTime, nil)
	gw.On("GetAccountInfo", mock.Anything).Return(&exchange.AccountInfo{AvailableBalance: "100000"}, nil)
	gw.On("GetPositions", mock.Anything, "ETH").Return([]exchange.Position{}, nil)
	gw.On("GetTicker", mock.Anything, "ETH").Return(nil, errors.New("ticker down"))
	gw.On("SetLeverage", mock.Anything, "ETH", 10).Return(&exchange.Ack{Applied: true}, nil)
	gw.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Quantity == "1.000"
	})).Return(&exchange.OrderResult{OrderID: "7"}, nil)

	res := newEngine(t, gw).Execute(context.Background(), executor.Intent{Symbol: "eth", Side: "buy", Quantity: d("1"), Leverage: 10})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, executor.PriceFromFallback, res.PriceSource)
	assert.True(t, res.Price.Equal(d("1000")))
	require.NotNil(t, res.Margin)
	assert.True(t, res.Margin.Required.Equal(d("100")))
	snap, ok := res.Step(executor.StepSnapshot)
	require.True(t, ok)
	assert.Equal(t, executor.StepWarning, snap.Status)
	assert.Contains(t, snap.Message, "fallback price 1000")
}

func TestExecute_ClosingIntentSkipsSizing(t *testing.T) {
	gw := exchangemock.New()
	expectSnapshot(gw, "BTC", "0", "50000", []exchange.Position{{Symbol: "BTC", PositionAmt: "0.5"}})
	gw.On("SetLeverage", mock.Anything, "BTC", 5).Return(&exchange.Ack{Applied: true}, nil)
	gw.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Quantity == "0.500" && req.Side == exchange.SideSell
	})).Return(&exchange.OrderResult{OrderID: "9", Status: exchange.StatusFilled}, nil)

	res := newEngine(t, gw).Execute(context.Background(), executor.Intent{Symbol: "BTC", Side: exchange.SideSell, Quantity: d("0.5"), Leverage: 5})

	require.True(t, res.Success, res.Error)
	assert.True(t, res.IsClosing)
	sizing, ok := res.Step(executor.StepSizing)
	require.True(t, ok)
	assert.Equal(t, executor.StepSkipped, sizing.Status)
	margin, ok := res.Step(executor.StepMarginMode)
	require.True(t, ok)
	assert.Equal(t, executor.StepSkipped, margin.Status)
	assert.Nil(t, res.Margin)
}

func TestExecute_AccountFailureSkipsSizing(t *testing.T) {
	gw := exchangemock.New()
	gw.On("GetServerTime", mock.Anything).Return(serverTime, nil)
	gw.On("GetAccountInfo", mock.Anything).Return(nil, errors.New("account endpoint 500"))
	gw.On("GetPositions", mock.Anything, "BTC").Return(nil, errors.New("positions endpoint 500"))
	gw.On("GetTicker", mock.Anything, "BTC").Return(&exchange.Ticker{LastPrice: "50000"}, nil)
	gw.On("SetLeverage", mock.Anything, "BTC", 10).Return(&exchange.Ack{Applied: true}, nil)
	gw.On("PlaceOrder", mock.Anything, mock.Anything).Return(&exchange.OrderResult{OrderID: "1"}, nil)

	res := newEngine(t, gw).Execute(context.Background(), btcIntent())

	require.True(t, res.Success, res.Error)
	assert.False(t, res.IsClosing)
	sizing, _ := res.Step(executor.StepSizing)
	assert.Equal(t, executor.StepSkipped, sizing.Status)
	assert.Len(t, res.Warnings, 2)
}

func TestExecute_PositionFailureSkipsSizing(t *testing.T) {
	gw := exchangemock.New()
	gw.On("GetServerTime", mock.Anything).Return(serverTime, nil)
	gw.On("GetAccountInfo", mock.Anything).Return(&exchange.AccountInfo{TotalBalance: "100", AvailableBalance: "100"}, nil)
	gw.On("GetPositions", mock.Anything, "BTC").Return(nil, errors.New("positions endpoint 500"))
	gw.On("GetTicker", mock.Anything, "BTC").Return(&exchange.Ticker{LastPrice: "50000"}, nil)
	gw.On("SetLeverage", mock.Anything, "BTC", 10).Return(&exchange.Ack{Applied: true}, nil)
	gw.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Side == exchange.SideSell && req.Quantity == "1.000"
	})).Return(&exchange.OrderResult{OrderID: "7"}, nil)

	intent := btcIntent()
	intent.Side = exchange.SideSell
	res := newEngine(t, gw).Execute(context.Background(), intent)

	require.True(t, res.Success, res.Error)
	assert.Nil(t, res.Margin)
	sizing, _ := res.Step(executor.StepSizing)
	assert.Equal(t, executor.StepSkipped, sizing.Status)
	assert.Equal(t, "no position snapshot", sizing.Message)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "positions unavailable")
	gw.AssertNumberOfCalls(t, "PlaceOrder", 1)
}

func TestExecute_MarginModeErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status executor.StepStatus
	}{
		{"already set", errors.New("binance: marginType: <APIError> code=-4046, msg=No need to change margin type."), executor.StepOK},
		{"multi assets", errors.New("binance: marginType: <APIError> code=-4168, msg=Unable to adjust to isolated-margin mode under the Multi-Assets mode."), executor.StepOK},
		{"other", errors.New("binance: marginType: <APIError> code=-1021, msg=Timestamp outside recvWindow"), executor.StepWarning},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := exchangemock.New()
			expectSnapshot(gw, "BTC", "100000", "50000", nil)
			gw.On("SetMarginType", mock.Anything, "BTC", exchange.MarginIsolated).Return(nil, tc.err)
			gw.On("SetLeverage", mock.Anything, "BTC", 10).Return(nil, errors.New("leverage rejected"))
			gw.On("PlaceOrder", mock.Anything, mock.Anything).Return(&exchange.OrderResult{OrderID: "5"}, nil)

			intent := btcIntent()
			intent.MarginMode = "isolated"
			res := newEngine(t, gw).Execute(context.Background(), intent)

			require.True(t, res.Success, res.Error)
			step, ok := res.Step(executor.StepMarginMode)
			require.True(t, ok)
			assert.Equal(t, tc.status, step.Status)
			lev, _ := res.Step(executor.StepLeverage)
			assert.Equal(t, executor.StepWarning, lev.Status)
			assert.Contains(t, lev.Message, "leverage rejected")
		})
	}
}

func TestExecute_SubmitFailure(t *testing.T) {
	gw := exchangemock.New()
	expectSnapshot(gw, "BTC", "100000", "50000", nil)
	gw.On("SetLeverage", mock.Anything, "BTC", 10).Return(&exchange.Ack{Applied: true}, nil)
	venueErr := exchange.WrapVenue("binance", "order", errors.New("code=-2019, msg=Margin is insufficient."))
	gw.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, venueErr)

	res := newEngine(t, gw).Execute(context.Background(), btcIntent())

	assert.False(t, res.Success)
	var ve *exchange.VenueError
	require.True(t, errors.As(res.Err, &ve))
	assert.Equal(t, "binance", ve.Venue)
	assert.Contains(t, res.Error, "Margin is insufficient")
	assert.Empty(t, res.OrderID)
}

func TestExecute_InvalidIntents(t *testing.T) {
	cases := map[string]executor.Intent{
		"empty symbol":  {Symbol: " ", Side: exchange.SideBuy, Quantity: d("1"), Leverage: 1},
		"bad side":      {Symbol: "BTC", Side: "HOLD", Quantity: d("1"), Leverage: 1},
		"zero quantity": {Symbol: "BTC", Side: exchange.SideBuy, Leverage: 1},
		"bad leverage":  {Symbol: "BTC", Side: exchange.SideBuy, Quantity: d("1"), Leverage: -2},
		"bad margin":    {Symbol: "BTC", Side: exchange.SideBuy, Quantity: d("1"), Leverage: 1, MarginMode: "PORTFOLIO"},
		"limit no px":   {Symbol: "BTC", Side: exchange.SideBuy, Quantity: d("1"), Leverage: 1, Type: exchange.OrderTypeLimit},
		"trigger":       {Symbol: "BTC", Side: exchange.SideBuy, Quantity: d("1"), Leverage: 1, Type: exchange.OrderTypeStopMarket},
	}
	for name, intent := range cases {
		t.Run(name, func(t *testing.T) {
			gw := exchangemock.New()
			res := newEngine(t, gw).Execute(context.Background(), intent)
			assert.False(t, res.Success)
			assert.ErrorIs(t, res.Err, executor.ErrInvalidIntent)
			gw.AssertExpectations(t)
		})
	}
}

func TestExecute_LimitIntentSizesAgainstLimitPrice(t *testing.T) {
	gw := exchangemock.New()
	gw.On("GetServerTime", mock.Anything).Return(serverTime, nil)
	gw.On("GetAccountInfo", mock.Anything).Return(&exchange.AccountInfo{AvailableBalance: "10000"}, nil)
	gw.On("GetPositions", mock.Anything, "ETH").Return(nil, nil)
	gw.On("SetLeverage", mock.Anything, "ETH", 1).Return(&exchange.Ack{Applied: true}, nil)
	gw.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(req exchange.OrderRequest) bool {
		return req.Type == exchange.OrderTypeLimit && req.Price == "2500.50" && req.TimeInForce == exchange.TimeInForceGTX
	})).Return(&exchange.OrderResult{OrderID: "11", Status: exchange.StatusNew}, nil)

	res := newEngine(t, gw).Execute(context.Background(), executor.Intent{
		Symbol: "ETH", Side: exchange.SideBuy, Quantity: d("2"),
		Type: exchange.OrderTypeLimit, Price: d("2500.5"), TimeInForce: exchange.TimeInForceGTX,
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Adjusted.Leverage, "default leverage applies")
	assert.Equal(t, executor.PriceFromLimit, res.PriceSource)
	assert.True(t, res.Margin.Required.Equal(d("5001")))
	gw.AssertNotCalled(t, "GetTicker", mock.Anything, mock.Anything)
}

func TestExecute_LowNotionalWarns(t *testing.T) {
	gw := exchangemock.New()
	expectSnapshot(gw, "DOGE", "1000", "0.1", nil)
	gw.On("SetLeverage", mock.Anything, "DOGE", 1).Return(&exchange.Ack{Applied: true}, nil)
	gw.On("PlaceOrder", mock.Anything, mock.Anything).Return(&exchange.OrderResult{OrderID: "3"}, nil)

	res := newEngine(t, gw).Execute(context.Background(), executor.Intent{Symbol: "DOGE", Side: exchange.SideBuy, Quantity: d("10"), Leverage: 1})

	require.True(t, res.Success, res.Error)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "below minimum order value")
}

type captureRecorder struct {
	mu      sync.Mutex
	records []executor.ExecutionRecord
	err     error
}

func (c *captureRecorder) RecordExecution(ctx context.Context, rec executor.ExecutionRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return c.err
}

func TestExecute_RecordsEveryOutcome(t *testing.T) {
	gw := exchangemock.New()
	expectSnapshot(gw, "BTC", "4000", "50000", nil)

	ok := &captureRecorder{}
	failing := &captureRecorder{err: errors.New("disk full")}
	engine := newEngine(t, gw, executor.WithRecorder(executor.MultiRecorder{ok, nil, failing}))

	res := engine.Execute(context.Background(), btcIntent())
	assert.False(t, res.Success)

	require.Len(t, ok.records, 1)
	rec := ok.records[0]
	assert.Equal(t, res.ID, rec.ID)
	assert.Equal(t, "mock", rec.Gateway)
	assert.Equal(t, "BTC", rec.Symbol)
	assert.Equal(t, "1", rec.RequestedQty)
	assert.Equal(t, "50000", rec.ReferencePx)
	assert.False(t, rec.Success)
	assert.Contains(t, rec.ErrorMessage, "Insufficient margin")
	assert.Len(t, failing.records, 1)
}

type deadlineRecorder struct {
	ctxErr error
	calls  int
}

func (d *deadlineRecorder) RecordExecution(ctx context.Context, rec executor.ExecutionRecord) error {
	d.calls++
	d.ctxErr = ctx.Err()
	return d.ctxErr
}

func TestExecute_TimedOutExecutionIsStillRecorded(t *testing.T) {
	gw := exchangemock.New()
	expectSnapshot(gw, "BTC", "100000", "50000", nil)
	gw.On("SetLeverage", mock.Anything, "BTC", 10).Return(&exchange.Ack{Applied: true}, nil)
	gw.On("PlaceOrder", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.DeadlineExceeded)

	cfg := executor.DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	rec := &deadlineRecorder{}
	engine, err := executor.NewEngine(gw, cfg, executor.WithRecorder(rec))
	require.NoError(t, err)

	res := engine.Execute(context.Background(), btcIntent())

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, 1, rec.calls)
	assert.NoError(t, rec.ctxErr)
}

func TestIsClosing(t *testing.T) {
	cases := []struct {
		position string
		side     exchange.OrderSide
		want     bool
	}{
		{"1", exchange.SideSell, true},
		{"1", exchange.SideBuy, false},
		{"-1", exchange.SideBuy, true},
		{"-1", exchange.SideSell, false},
		{"0", exchange.SideBuy, false},
		{"0", exchange.SideSell, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, executor.IsClosing(d(tc.position), tc.side), "%s %s", tc.position, tc.side)
	}
}

func TestExecute_AgainstSimulator(t *testing.T) {
	ctx := context.Background()
	gw := sim.New()
	require.NoError(t, gw.SetMarkPrice(ctx, "BTC", d("50000")))
	gw.SetAvailableBalance(d("4800"))

	engine := newEngine(t, gw)
	intent := btcIntent()
	intent.MarginMode = exchange.MarginIsolated
	res := engine.Execute(ctx, intent)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, exchange.StatusFilled, res.Order.Status)
	assert.Equal(t, "0.912", res.Order.ExecutedQty)

	positions, err := gw.GetPositions(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 10, positions[0].Leverage)
	assert.Equal(t, exchange.MarginIsolated, positions[0].MarginMode)

	// same mode again is benign
	res = engine.Execute(ctx, executor.Intent{Symbol: "BTC", Side: exchange.SideSell, Quantity: d("0.912"), Leverage: 10, MarginMode: exchange.MarginIsolated})
	require.True(t, res.Success, res.Error)
	assert.True(t, res.IsClosing)
}
