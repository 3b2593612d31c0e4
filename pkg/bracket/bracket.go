// Package bracket places an entry order together with dependent take-profit
// and stop-loss orders.
package bracket

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"tradegate/pkg/exchange"
	"tradegate/pkg/executor"
)

// ExitPlan carries the trigger prices of the protective orders. A zero
// price omits that leg.
type ExitPlan struct {
	TakeProfit decimal.Decimal `json:"takeProfit"`
	StopLoss   decimal.Decimal `json:"stopLoss"`
}

// Result reports the entry and both legs. Success mirrors the entry order
// only; callers must check both leg ids to know how the position is
// protected.
type Result struct {
	Success           bool                   `json:"success"`
	Main              *executor.Result       `json:"main"`
	MainOrderID       string                 `json:"mainOrderId,omitempty"`
	TakeProfitOrderID string                 `json:"takeProfitOrderId,omitempty"`
	StopLossOrderID   string                 `json:"stopLossOrderId,omitempty"`
	TakeProfitOrder   *exchange.OrderRequest `json:"takeProfitOrder,omitempty"`
	StopLossOrder     *exchange.OrderRequest `json:"stopLossOrder,omitempty"`
	TakeProfitError   string                 `json:"takeProfitError,omitempty"`
	StopLossError     string                 `json:"stopLossError,omitempty"`
	TakeProfitErr     error                  `json:"-"`
	StopLossErr       error                  `json:"-"`
	Error             string                 `json:"error,omitempty"`
	Err               error                  `json:"-"`
}

// Protected reports whether both requested legs are resting.
func (r *Result) Protected() bool {
	if r == nil || !r.Success {
		return false
	}
	tpOK := r.TakeProfitOrder == nil || r.TakeProfitOrderID != ""
	slOK := r.StopLossOrder == nil || r.StopLossOrderID != ""
	return tpOK && slOK
}

// Orchestrator runs the entry through an executor.Engine and places the
// protective legs on the same gateway.
type Orchestrator struct {
	engine   *executor.Engine
	gw       exchange.Gateway
	validate bool
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithValidation rejects legs on the wrong side of the entry price without
// calling the venue.
func WithValidation() Option {
	return func(o *Orchestrator) { o.validate = true }
}

// New constructs an Orchestrator.
func New(engine *executor.Engine, opts ...Option) (*Orchestrator, error) {
	if engine == nil {
		return nil, errors.New("bracket: engine is required")
	}
	o := &Orchestrator{engine: engine, gw: engine.Gateway()}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Execute submits the entry and then, sequentially, the take-profit and
// stop-loss legs. A failing leg never prevents the other from being placed
// and never fails the call.
func (o *Orchestrator) Execute(ctx context.Context, intent executor.Intent, plan ExitPlan) *Result {
	main := o.engine.Execute(ctx, intent)
	res := &Result{Main: main, Success: main.Success}
	if !main.Success {
		res.Err = main.Err
		res.Error = main.Error
		return res
	}
	res.MainOrderID = main.OrderID

	tp, sl := o.Derive(main, plan)
	res.TakeProfitOrder = tp
	res.StopLossOrder = sl
	entry := entryPrice(main)

	if tp != nil {
		id, err := o.placeLeg(ctx, "take profit", tp, plan.TakeProfit, entry, main.Adjusted.Side)
		res.TakeProfitOrderID = id
		if err != nil {
			res.TakeProfitErr = err
			res.TakeProfitError = err.Error()
		}
	}
	if sl != nil {
		id, err := o.placeLeg(ctx, "stop loss", sl, plan.StopLoss, entry, main.Adjusted.Side)
		res.StopLossOrderID = id
		if err != nil {
			res.StopLossErr = err
			res.StopLossError = err.Error()
		}
	}
	return res
}

// Derive builds the protective orders for a filled entry. Both close the
// whole position on the side opposite to the entry. They are sized to the
// executed quantity of the entry, or to the adjusted intent quantity when
// the venue has not reported a fill yet.
func (o *Orchestrator) Derive(main *executor.Result, plan ExitPlan) (tp, sl *exchange.OrderRequest) {
	if main == nil {
		return nil, nil
	}
	intent := main.Adjusted
	qty := main.Order.FilledQuantity()
	if !qty.IsPositive() {
		qty = intent.Quantity
	}
	side := intent.Side.Opposite()

	leg := func(orderType exchange.OrderType, price decimal.Decimal) *exchange.OrderRequest {
		if !price.IsPositive() {
			return nil
		}
		return &exchange.OrderRequest{
			Symbol:        intent.Symbol,
			Side:          side,
			Type:          orderType,
			Quantity:      o.gw.FormatQuantity(qty, intent.Symbol),
			StopPrice:     o.gw.FormatPrice(price, intent.Symbol),
			ClosePosition: true,
			ReduceOnly:    true,
		}
	}
	return leg(exchange.OrderTypeTakeProfitMarket, plan.TakeProfit), leg(exchange.OrderTypeStopMarket, plan.StopLoss)
}

func (o *Orchestrator) placeLeg(ctx context.Context, name string, req *exchange.OrderRequest, trigger, entry decimal.Decimal, entrySide exchange.OrderSide) (string, error) {
	if o.validate && entry.IsPositive() {
		if err := checkLeg(req.Type, trigger, entry, entrySide); err != nil {
			logx.WithContext(ctx).Errorf("bracket: %s %s skipped: %v", req.Symbol, name, err)
			return "", fmt.Errorf("bracket: %s: %w", name, err)
		}
	}
	order, err := o.gw.PlaceOrder(ctx, *req)
	if err != nil {
		logx.WithContext(ctx).Errorf("bracket: %s %s at %s failed: %v", req.Symbol, name, req.StopPrice, err)
		return "", fmt.Errorf("bracket: %s: %w", name, err)
	}
	logx.WithContext(ctx).Infof("bracket: %s %s placed at %s as order %s", req.Symbol, name, req.StopPrice, order.OrderID)
	return order.OrderID, nil
}

// ErrWrongSide is returned by WithValidation for a leg on the wrong side of
// the entry price.
var ErrWrongSide = errors.New("trigger price on the wrong side of entry")

// checkLeg requires a long's take-profit above entry and its stop below; a
// short mirrors that.
func checkLeg(orderType exchange.OrderType, trigger, entry decimal.Decimal, entrySide exchange.OrderSide) error {
	above := trigger.GreaterThan(entry)
	below := trigger.LessThan(entry)
	long := entrySide == exchange.SideBuy
	var ok bool
	switch orderType {
	case exchange.OrderTypeTakeProfitMarket:
		ok = (long && above) || (!long && below)
	case exchange.OrderTypeStopMarket:
		ok = (long && below) || (!long && above)
	}
	if !ok {
		return fmt.Errorf("%w: %s %s vs entry %s", ErrWrongSide, orderType, trigger, entry)
	}
	return nil
}

func entryPrice(main *executor.Result) decimal.Decimal {
	if main.Order != nil {
		if avg := exchange.ParseDecimal(main.Order.AvgPrice); avg.IsPositive() {
			return avg
		}
	}
	return main.Price
}
