// Package exchangemock provides a testify mock of exchange.Gateway.
package exchangemock

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"tradegate/pkg/exchange"
)

// Gateway is a mock exchange.Gateway. Symbol conversion and formatting are
// pure and answered from Precision without recording expectations.
type Gateway struct {
	mock.Mock
	Precision exchange.PrecisionTable
}

var _ exchange.Gateway = (*Gateway)(nil)

// New returns a mock with three-decimal quantity and two-decimal price defaults.
func New() *Gateway {
	return &Gateway{Precision: exchange.PrecisionTable{DefaultQuantity: 3, DefaultPrice: 2}}
}

func (m *Gateway) Name() string { return "mock" }

func (m *Gateway) ConvertSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (m *Gateway) FormatQuantity(qty decimal.Decimal, symbol string) string {
	return m.Precision.FormatQuantity(qty, m.ConvertSymbol(symbol))
}

func (m *Gateway) FormatPrice(price decimal.Decimal, symbol string) string {
	return m.Precision.FormatPrice(price, m.ConvertSymbol(symbol))
}

func (m *Gateway) GetServerTime(ctx context.Context) (time.Time, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *Gateway) SyncServerTime(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Gateway) GetAccountInfo(ctx context.Context) (*exchange.AccountInfo, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*exchange.AccountInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) GetPositions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	args := m.Called(ctx, symbol)
	if v := args.Get(0); v != nil {
		return v.([]exchange.Position), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) GetAllPositions(ctx context.Context) ([]exchange.Position, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]exchange.Position), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) GetTicker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	args := m.Called(ctx, symbol)
	if v := args.Get(0); v != nil {
		return v.(*exchange.Ticker), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*exchange.OrderResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) CancelOrder(ctx context.Context, symbol, orderID string) error {
	return m.Called(ctx, symbol, orderID).Error(0)
}

func (m *Gateway) CancelAllOrders(ctx context.Context, symbol string) (*exchange.CancelAllResult, error) {
	args := m.Called(ctx, symbol)
	if v := args.Get(0); v != nil {
		return v.(*exchange.CancelAllResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) GetOrderStatus(ctx context.Context, symbol, orderID string) (*exchange.OrderResult, error) {
	args := m.Called(ctx, symbol, orderID)
	if v := args.Get(0); v != nil {
		return v.(*exchange.OrderResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OrderResult, error) {
	args := m.Called(ctx, symbol)
	if v := args.Get(0); v != nil {
		return v.([]exchange.OrderResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) GetUserTrades(ctx context.Context, query exchange.TradeQuery) ([]exchange.UserTrade, error) {
	args := m.Called(ctx, query)
	if v := args.Get(0); v != nil {
		return v.([]exchange.UserTrade), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) SetLeverage(ctx context.Context, symbol string, leverage int) (*exchange.Ack, error) {
	args := m.Called(ctx, symbol, leverage)
	if v := args.Get(0); v != nil {
		return v.(*exchange.Ack), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) SetMarginType(ctx context.Context, symbol string, mode exchange.MarginMode) (*exchange.Ack, error) {
	args := m.Called(ctx, symbol, mode)
	if v := args.Get(0); v != nil {
		return v.(*exchange.Ack), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Gateway) Close() error {
	return m.Called().Error(0)
}
