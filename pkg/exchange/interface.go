package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway exposes derivatives trading capabilities in a venue-agnostic fashion.
// Every adapter implements the full set; capabilities a venue lacks natively
// (server clock, per-symbol margin type) are acknowledged rather than failed.
type Gateway interface {
	// Name reports the venue variant backing the gateway.
	Name() string

	// Symbol and precision handling. All pure.
	ConvertSymbol(symbol string) string
	FormatQuantity(qty decimal.Decimal, symbol string) string
	FormatPrice(price decimal.Decimal, symbol string) string

	// Clock.
	GetServerTime(ctx context.Context) (time.Time, error)
	SyncServerTime(ctx context.Context) error

	// Account and market state.
	GetAccountInfo(ctx context.Context) (*AccountInfo, error)
	GetPositions(ctx context.Context, symbol string) ([]Position, error)
	GetAllPositions(ctx context.Context) ([]Position, error)
	GetTicker(ctx context.Context, symbol string) (*Ticker, error)

	// Order management.
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	CancelAllOrders(ctx context.Context, symbol string) (*CancelAllResult, error)
	GetOrderStatus(ctx context.Context, symbol, orderID string) (*OrderResult, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]OrderResult, error)
	GetUserTrades(ctx context.Context, query TradeQuery) ([]UserTrade, error)

	// Risk configuration.
	SetLeverage(ctx context.Context, symbol string, leverage int) (*Ack, error)
	SetMarginType(ctx context.Context, symbol string, mode MarginMode) (*Ack, error)

	// Close releases held resources. Safe to call more than once.
	Close() error
}
