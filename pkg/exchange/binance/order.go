package binance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"

	"tradegate/pkg/exchange"
)

const codeNoNeedToChangeMargin int64 = -4046

func errNoTicker(pair string) error { return fmt.Errorf("no ticker for %s", pair) }

func errInvalidMarginMode(mode exchange.MarginMode) error {
	return fmt.Errorf("invalid margin mode %q", mode)
}

// PlaceOrder submits a new futures order. closePosition trigger orders omit
// the quantity; the venue closes whatever is open when they fire.
func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	pair := pairFromSymbol(req.Symbol)
	if pair == "" {
		return nil, errors.New("binance: symbol is required")
	}
	if !req.Side.Valid() {
		return nil, fmt.Errorf("binance: invalid side %q", req.Side)
	}
	orderType := req.Type
	if orderType == "" {
		orderType = exchange.OrderTypeMarket
	}
	clientID := strings.TrimSpace(req.ClientOrderID)
	if clientID == "" {
		clientID = "tg-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:28]
	}

	svc := c.api.NewCreateOrderService().
		Symbol(pair).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderType(orderType)).
		NewClientOrderID(clientID)

	closeAll := req.ClosePosition && orderType.IsTrigger()
	if !closeAll {
		qty := exchange.ParseDecimal(req.Quantity)
		if !qty.IsPositive() {
			return nil, errors.New("binance: quantity must be positive")
		}
		svc = svc.Quantity(c.FormatQuantity(qty, pair))
	}
	switch orderType {
	case exchange.OrderTypeMarket:
	case exchange.OrderTypeLimit:
		price := exchange.ParseDecimal(req.Price)
		if !price.IsPositive() {
			return nil, errors.New("binance: limit order requires a positive price")
		}
		tif := req.TimeInForce
		if tif == "" {
			tif = exchange.TimeInForceGTC
		}
		svc = svc.Price(c.FormatPrice(price, pair)).TimeInForce(futures.TimeInForceType(tif))
	case exchange.OrderTypeStopMarket, exchange.OrderTypeTakeProfitMarket:
		stop := exchange.ParseDecimal(req.StopPrice)
		if !stop.IsPositive() {
			return nil, fmt.Errorf("binance: %s requires a positive stop price", orderType)
		}
		svc = svc.StopPrice(c.FormatPrice(stop, pair)).WorkingType(futures.WorkingTypeMarkPrice)
		if closeAll {
			svc = svc.ClosePosition(true)
		}
	default:
		return nil, fmt.Errorf("binance: unsupported order type %q", orderType)
	}
	if req.ReduceOnly && !closeAll {
		svc = svc.ReduceOnly(true)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, wrapErr("order", err)
	}
	updated := time.UnixMilli(res.UpdateTime)
	if res.UpdateTime == 0 {
		updated = c.clock()
	}
	return &exchange.OrderResult{
		OrderID:       strconv.FormatInt(res.OrderID, 10),
		ClientOrderID: res.ClientOrderID,
		Symbol:        res.Symbol,
		Status:        string(res.Status),
		Side:          exchange.OrderSide(res.Side),
		Type:          exchange.OrderType(res.Type),
		Price:         exchange.OrZero(res.Price),
		AvgPrice:      exchange.OrZero(res.AvgPrice),
		StopPrice:     res.StopPrice,
		OrigQty:       exchange.OrZero(res.OrigQuantity),
		ExecutedQty:   exchange.OrZero(res.ExecutedQuantity),
		ReduceOnly:    res.ReduceOnly,
		ClosePosition: res.ClosePosition,
		CreatedAt:     updated,
		UpdatedAt:     updated,
	}, nil
}

// CancelOrder cancels a single order by id.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	id, err := parseOrderID(orderID)
	if err != nil {
		return err
	}
	if _, err := c.api.NewCancelOrderService().Symbol(pairFromSymbol(symbol)).OrderID(id).Do(ctx); err != nil {
		return wrapErr("cancelOrder", err)
	}
	return nil
}

// CancelAllOrders cancels every open order on symbol concurrently.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) (*exchange.CancelAllResult, error) {
	return exchange.CancelOpenOrders(ctx, c, pairFromSymbol(symbol))
}

// GetOrderStatus looks up a single order.
func (c *Client) GetOrderStatus(ctx context.Context, symbol, orderID string) (*exchange.OrderResult, error) {
	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, err
	}
	o, err := c.api.NewGetOrderService().Symbol(pairFromSymbol(symbol)).OrderID(id).Do(ctx)
	if err != nil {
		return nil, wrapErr("getOrder", err)
	}
	result := toOrderResult(o)
	return &result, nil
}

// GetOpenOrders lists resting orders, across all symbols when symbol is empty.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OrderResult, error) {
	svc := c.api.NewListOpenOrdersService()
	if strings.TrimSpace(symbol) != "" {
		svc = svc.Symbol(pairFromSymbol(symbol))
	}
	orders, err := svc.Do(ctx)
	if err != nil {
		return nil, wrapErr("openOrders", err)
	}
	out := make([]exchange.OrderResult, 0, len(orders))
	for _, o := range orders {
		if o != nil {
			out = append(out, toOrderResult(o))
		}
	}
	return out, nil
}

// GetUserTrades lists account fills for query.Symbol.
func (c *Client) GetUserTrades(ctx context.Context, query exchange.TradeQuery) ([]exchange.UserTrade, error) {
	svc := c.api.NewListAccountTradeService().Symbol(pairFromSymbol(query.Symbol))
	if !query.StartTime.IsZero() {
		svc = svc.StartTime(query.StartTime.UnixMilli())
	}
	if !query.EndTime.IsZero() {
		svc = svc.EndTime(query.EndTime.UnixMilli())
	}
	if query.Limit > 0 {
		svc = svc.Limit(query.Limit)
	}
	trades, err := svc.Do(ctx)
	if err != nil {
		return nil, wrapErr("userTrades", err)
	}
	out := make([]exchange.UserTrade, 0, len(trades))
	for _, t := range trades {
		if t == nil {
			continue
		}
		out = append(out, exchange.UserTrade{
			ID:              strconv.FormatInt(t.ID, 10),
			OrderID:         strconv.FormatInt(t.OrderID, 10),
			Symbol:          t.Symbol,
			Side:            exchange.OrderSide(t.Side),
			Price:           exchange.OrZero(t.Price),
			Quantity:        exchange.OrZero(t.Quantity),
			QuoteQty:        exchange.OrZero(t.QuoteQuantity),
			Commission:      exchange.OrZero(t.Commission),
			CommissionAsset: t.CommissionAsset,
			RealizedPnl:     exchange.OrZero(t.RealizedPnl),
			Maker:           t.Maker,
			Time:            time.UnixMilli(t.Time),
		})
	}
	return out, nil
}

func toOrderResult(o *futures.Order) exchange.OrderResult {
	return exchange.OrderResult{
		OrderID:       strconv.FormatInt(o.OrderID, 10),
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Status:        string(o.Status),
		Side:          exchange.OrderSide(o.Side),
		Type:          exchange.OrderType(o.Type),
		Price:         exchange.OrZero(o.Price),
		AvgPrice:      exchange.OrZero(o.AvgPrice),
		StopPrice:     o.StopPrice,
		OrigQty:       exchange.OrZero(o.OrigQuantity),
		ExecutedQty:   exchange.OrZero(o.ExecutedQuantity),
		ReduceOnly:    o.ReduceOnly,
		ClosePosition: o.ClosePosition,
		CreatedAt:     time.UnixMilli(o.Time),
		UpdatedAt:     time.UnixMilli(o.UpdateTime),
	}
}

func futuresMarginType(mode exchange.MarginMode) futures.MarginType {
	switch mode {
	case exchange.MarginIsolated:
		return futures.MarginTypeIsolated
	case exchange.MarginCrossed:
		return futures.MarginTypeCrossed
	default:
		return ""
	}
}

func parseOrderID(orderID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(orderID), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("binance: invalid order id %q", orderID)
	}
	return id, nil
}
