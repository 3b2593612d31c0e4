package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"tradegate/pkg/exchange"
)

var errUnknownOrder = errors.New("unknown order")

// PlaceOrder fills market and marketable limit orders against the mark
// price, rests the rest and parks trigger orders until SetMarkPrice crosses
// their stop price.
func (g *Gateway) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpPlaceOrder); err != nil {
		return nil, err
	}

	symbol := canonical(req.Symbol)
	if symbol == "" {
		return nil, errors.New("sim: symbol is required")
	}
	if !req.Side.Valid() {
		return nil, fmt.Errorf("sim: invalid side %q", req.Side)
	}
	orderType := req.Type
	if orderType == "" {
		orderType = exchange.OrderTypeMarket
	}
	closeAll := req.ClosePosition && orderType.IsTrigger()
	qty := exchange.ParseDecimal(req.Quantity)
	if !closeAll && !qty.IsPositive() {
		return nil, errors.New("sim: quantity must be positive")
	}

	now := g.clock()
	g.seq++
	clientID := strings.TrimSpace(req.ClientOrderID)
	if clientID == "" {
		clientID = "sim-" + uuid.NewString()
	}
	o := &simOrder{seq: g.seq, result: exchange.OrderResult{
		OrderID:       strconv.FormatInt(g.seq, 10),
		ClientOrderID: clientID,
		Symbol:        symbol,
		Status:        exchange.StatusNew,
		Side:          req.Side,
		Type:          orderType,
		Price:         exchange.OrZero(req.Price),
		AvgPrice:      "0",
		StopPrice:     req.StopPrice,
		OrigQty:       exchange.OrZero(req.Quantity),
		ExecutedQty:   "0",
		ReduceOnly:    req.ReduceOnly || closeAll,
		ClosePosition: closeAll,
		CreatedAt:     now,
		UpdatedAt:     now,
	}}

	mark := g.marks[symbol]
	switch orderType {
	case exchange.OrderTypeMarket:
		if !mark.IsPositive() {
			return nil, exchange.WrapVenue(venueName, "order", fmt.Errorf("no mark price for %s", symbol))
		}
		if err := g.fillLocked(o, mark, qty); err != nil {
			return nil, exchange.WrapVenue(venueName, "order", err)
		}
	case exchange.OrderTypeLimit:
		price := exchange.ParseDecimal(req.Price)
		if !price.IsPositive() {
			return nil, errors.New("sim: limit order requires a positive price")
		}
		tif := req.TimeInForce
		if tif == "" {
			tif = exchange.TimeInForceGTC
		}
		marketable := mark.IsPositive() &&
			((req.Side == exchange.SideBuy && price.GreaterThanOrEqual(mark)) ||
				(req.Side == exchange.SideSell && price.LessThanOrEqual(mark)))
		switch {
		case marketable && tif == exchange.TimeInForceGTX:
			return nil, exchange.WrapVenue(venueName, "order", errors.New("post-only order would immediately match"))
		case marketable:
			if err := g.fillLocked(o, price, qty); err != nil {
				return nil, exchange.WrapVenue(venueName, "order", err)
			}
		case tif == exchange.TimeInForceIOC || tif == exchange.TimeInForceFOK:
			o.result.Status = exchange.StatusExpired
		}
	case exchange.OrderTypeStopMarket, exchange.OrderTypeTakeProfitMarket:
		stop := exchange.ParseDecimal(req.StopPrice)
		if !stop.IsPositive() {
			return nil, fmt.Errorf("sim: %s requires a positive stop price", orderType)
		}
		if mark.IsPositive() && triggered(orderType, req.Side, stop, mark) {
			return nil, exchange.WrapVenue(venueName, "order", errors.New("order would immediately trigger"))
		}
	default:
		return nil, fmt.Errorf("sim: unsupported order type %q", orderType)
	}

	g.orders[o.result.OrderID] = o
	out := o.result
	return &out, nil
}

// SetMarkPrice moves the mark price of symbol and fires every resting
// trigger order it crosses, oldest first.
func (g *Gateway) SetMarkPrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return errors.New("sim: mark price must be positive")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	sym := canonical(symbol)
	g.marks[sym] = price
	for _, o := range g.openOrdersLocked(sym) {
		r := o.result
		if !r.Type.IsTrigger() || !triggered(r.Type, r.Side, exchange.ParseDecimal(r.StopPrice), price) {
			continue
		}
		qty := exchange.ParseDecimal(r.OrigQty)
		if r.ClosePosition {
			qty = decimal.Zero
			if state := g.positions[sym]; state != nil {
				qty = state.qty.Abs()
			}
		}
		if !qty.IsPositive() {
			g.finishLocked(o, exchange.StatusExpired)
			continue
		}
		if err := g.fillLocked(o, price, qty); err != nil {
			logx.WithContext(ctx).Errorf("sim: trigger %s %s on %s failed: %v", r.Type, r.OrderID, sym, err)
			g.finishLocked(o, exchange.StatusExpired)
			continue
		}
		logx.WithContext(ctx).Infof("sim: %s %s on %s fired at %s", r.Type, r.OrderID, sym, price)
	}
	return nil
}

// CancelOrder cancels a resting order.
func (g *Gateway) CancelOrder(ctx context.Context, symbol, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpCancelOrder); err != nil {
		return err
	}
	o, ok := g.orders[strings.TrimSpace(orderID)]
	if !ok || (symbol != "" && o.result.Symbol != canonical(symbol)) {
		return exchange.WrapVenue(venueName, "cancelOrder", fmt.Errorf("%w %s", errUnknownOrder, orderID))
	}
	if o.result.Status != exchange.StatusNew {
		return exchange.WrapVenue(venueName, "cancelOrder", fmt.Errorf("order %s is %s", orderID, o.result.Status))
	}
	g.finishLocked(o, exchange.StatusCanceled)
	return nil
}

// CancelAllOrders cancels every resting order on symbol concurrently.
func (g *Gateway) CancelAllOrders(ctx context.Context, symbol string) (*exchange.CancelAllResult, error) {
	g.mu.Lock()
	err := g.failureLocked(OpCancelAllOrders)
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return exchange.CancelOpenOrders(ctx, g, canonical(symbol))
}

// GetOrderStatus looks up any order placed on the simulator.
func (g *Gateway) GetOrderStatus(ctx context.Context, symbol, orderID string) (*exchange.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpGetOrderStatus); err != nil {
		return nil, err
	}
	o, ok := g.orders[strings.TrimSpace(orderID)]
	if !ok || (symbol != "" && o.result.Symbol != canonical(symbol)) {
		return nil, exchange.WrapVenue(venueName, "orderStatus", fmt.Errorf("%w %s", errUnknownOrder, orderID))
	}
	out := o.result
	return &out, nil
}

// GetOpenOrders lists resting orders oldest first, across all symbols when
// symbol is empty.
func (g *Gateway) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpGetOpenOrders); err != nil {
		return nil, err
	}
	sym := ""
	if strings.TrimSpace(symbol) != "" {
		sym = canonical(symbol)
	}
	open := g.openOrdersLocked(sym)
	out := make([]exchange.OrderResult, 0, len(open))
	for _, o := range open {
		out = append(out, o.result)
	}
	return out, nil
}

// GetUserTrades lists simulated fills, keeping the most recent query.Limit.
func (g *Gateway) GetUserTrades(ctx context.Context, query exchange.TradeQuery) ([]exchange.UserTrade, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpGetUserTrades); err != nil {
		return nil, err
	}
	sym := ""
	if strings.TrimSpace(query.Symbol) != "" {
		sym = canonical(query.Symbol)
	}
	out := make([]exchange.UserTrade, 0, len(g.trades))
	for _, t := range g.trades {
		if sym != "" && t.Symbol != sym {
			continue
		}
		if !query.StartTime.IsZero() && t.Time.Before(query.StartTime) {
			continue
		}
		if !query.EndTime.IsZero() && t.Time.After(query.EndTime) {
			continue
		}
		out = append(out, t)
	}
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[len(out)-query.Limit:]
	}
	return out, nil
}

// fillLocked executes o for qty at price, enforcing margin on new exposure.
func (g *Gateway) fillLocked(o *simOrder, price, qty decimal.Decimal) error {
	r := &o.result
	if !r.ReduceOnly {
		opening := g.openingSize(r.Symbol, qty, r.Side)
		if opening.IsPositive() {
			required := opening.Mul(price).Div(decimal.NewFromInt(int64(g.leverageLocked(r.Symbol))))
			available := g.availableLocked(g.snapshotLocked())
			if required.GreaterThan(available) {
				return fmt.Errorf("insufficient margin: required %s, available %s",
					required.StringFixed(2), available.StringFixed(2))
			}
		}
	}

	realized, filled, err := g.applyFillLocked(r.Symbol, price, qty, r.Side, r.ReduceOnly)
	if err != nil {
		return err
	}
	if !filled.IsPositive() {
		g.finishLocked(o, exchange.StatusExpired)
		return nil
	}
	g.cash = g.cash.Add(realized)

	now := g.clock()
	g.trades = append(g.trades, exchange.UserTrade{
		ID:              strconv.Itoa(len(g.trades) + 1),
		OrderID:         r.OrderID,
		Symbol:          r.Symbol,
		Side:            r.Side,
		Price:           formatDecimal(price),
		Quantity:        filled.String(),
		QuoteQty:        formatDecimal(filled.Mul(price)),
		Commission:      "0",
		CommissionAsset: settleAsset,
		RealizedPnl:     formatDecimal(realized),
		Maker:           false,
		Time:            now,
	})
	if r.OrigQty == "0" {
		r.OrigQty = filled.String()
	}
	r.ExecutedQty = filled.String()
	r.AvgPrice = formatDecimal(price)
	r.Status = exchange.StatusFilled
	r.UpdatedAt = now
	return nil
}

func (g *Gateway) finishLocked(o *simOrder, status string) {
	o.result.Status = status
	o.result.UpdatedAt = g.clock()
}

func (g *Gateway) openOrdersLocked(symbol string) []*simOrder {
	out := make([]*simOrder, 0)
	for _, o := range g.orders {
		if o.result.Status != exchange.StatusNew {
			continue
		}
		if symbol != "" && o.result.Symbol != symbol {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// triggered reports whether mark has crossed stop for a trigger order.
// Sell stops fire on the way down, sell take-profits on the way up, and
// buy-side triggers mirror them.
func triggered(orderType exchange.OrderType, side exchange.OrderSide, stop, mark decimal.Decimal) bool {
	down := mark.LessThanOrEqual(stop)
	up := mark.GreaterThanOrEqual(stop)
	switch {
	case orderType == exchange.OrderTypeStopMarket && side == exchange.SideSell:
		return down
	case orderType == exchange.OrderTypeStopMarket && side == exchange.SideBuy:
		return up
	case orderType == exchange.OrderTypeTakeProfitMarket && side == exchange.SideSell:
		return up
	case orderType == exchange.OrderTypeTakeProfitMarket && side == exchange.SideBuy:
		return down
	}
	return false
}
