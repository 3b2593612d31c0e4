package executor

import (
	"context"
	"errors"
	"strings"

	"tradegate/pkg/exchange"
)

// Ping checks that the venue answers a server-time query.
func (e *Engine) Ping(ctx context.Context) error {
	if _, err := e.gw.GetServerTime(ctx); err != nil {
		return &ConnectivityError{Err: err}
	}
	return nil
}

// GetOrderStatus looks up a single order.
func (e *Engine) GetOrderStatus(ctx context.Context, symbol, orderID string) (*exchange.OrderResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, errors.New("executor: order id is required")
	}
	return e.gw.GetOrderStatus(ctx, e.gw.ConvertSymbol(symbol), orderID)
}

// GetOrderDetails is GetOrderStatus with a mandatory symbol; venues cannot
// resolve an order id without it.
func (e *Engine) GetOrderDetails(ctx context.Context, symbol, orderID string) (*exchange.OrderResult, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, errors.New("executor: symbol is required for order details")
	}
	return e.GetOrderStatus(ctx, symbol, orderID)
}

// GetOpenOrders lists resting orders, across all symbols when symbol is empty.
func (e *Engine) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OrderResult, error) {
	if strings.TrimSpace(symbol) != "" {
		symbol = e.gw.ConvertSymbol(symbol)
	}
	return e.gw.GetOpenOrders(ctx, symbol)
}

// CancelAllOrders cancels every open order on symbol.
func (e *Engine) CancelAllOrders(ctx context.Context, symbol string) (*exchange.CancelAllResult, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, errors.New("executor: symbol is required to cancel orders")
	}
	return e.gw.CancelAllOrders(ctx, e.gw.ConvertSymbol(symbol))
}

// CancelBracket cancels the take-profit and stop-loss orders of a bracket.
// Empty ids are ignored and each cancellation is attempted independently.
func (e *Engine) CancelBracket(ctx context.Context, symbol, takeProfitID, stopLossID string) (*exchange.CancelAllResult, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, errors.New("executor: symbol is required to cancel orders")
	}
	symbol = e.gw.ConvertSymbol(symbol)
	ids := make([]string, 0, 2)
	for _, id := range []string{takeProfitID, stopLossID} {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	result := exchange.CancelConcurrently(ctx, symbol, ids, func(ctx context.Context, id string) error {
		return e.gw.CancelOrder(ctx, symbol, id)
	})
	return result, result.Err()
}

// Close releases the gateway.
func (e *Engine) Close() error {
	return e.gw.Close()
}
