package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"tradegate/internal/svc"
	"tradegate/internal/types"
	"tradegate/pkg/bracket"
	"tradegate/pkg/exchange"
	"tradegate/pkg/executor"
)

// ErrBadRequest marks input the caller must fix.
var ErrBadRequest = errors.New("bad request")

type OrdersLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewOrdersLogic(ctx context.Context, svcCtx *svc.ServiceContext) *OrdersLogic {
	return &OrdersLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Execute runs a single intent. Engine failures are reported inside the
// result, not as an error.
func (l *OrdersLogic) Execute(req *types.OrderIntent) (*executor.Result, error) {
	intent, err := toIntent(req)
	if err != nil {
		return nil, err
	}
	engine, _, err := l.svcCtx.Resolve(req.Gateway)
	if err != nil {
		return nil, err
	}
	res := engine.Execute(l.ctx, intent)
	if !res.Success {
		l.Infof("execute %s %s on %s failed: %s", intent.Side, intent.Symbol, engine.Gateway().Name(), res.Error)
	}
	return res, nil
}

// Bracket runs an intent with its take-profit and stop-loss legs.
func (l *OrdersLogic) Bracket(req *types.BracketRequest) (*bracket.Result, error) {
	intent, err := toIntent(&req.Order)
	if err != nil {
		return nil, err
	}
	plan := bracket.ExitPlan{}
	if plan.TakeProfit, err = parseOptionalDecimal("takeProfit", req.TakeProfit); err != nil {
		return nil, err
	}
	if plan.StopLoss, err = parseOptionalDecimal("stopLoss", req.StopLoss); err != nil {
		return nil, err
	}
	if plan.TakeProfit.IsZero() && plan.StopLoss.IsZero() {
		return nil, fmt.Errorf("%w: takeProfit or stopLoss is required", ErrBadRequest)
	}
	_, orchestrator, err := l.svcCtx.Resolve(req.Order.Gateway)
	if err != nil {
		return nil, err
	}
	return orchestrator.Execute(l.ctx, intent, plan), nil
}

func (l *OrdersLogic) OpenOrders(req *types.OpenOrdersRequest) (*types.OpenOrdersResponse, error) {
	engine, _, err := l.svcCtx.Resolve(req.Gateway)
	if err != nil {
		return nil, err
	}
	orders, err := engine.GetOpenOrders(l.ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []exchange.OrderResult{}
	}
	return &types.OpenOrdersResponse{Gateway: engine.Gateway().Name(), Orders: orders}, nil
}

func (l *OrdersLogic) OrderStatus(req *types.OrderStatusRequest) (*exchange.OrderResult, error) {
	if strings.TrimSpace(req.Symbol) == "" || strings.TrimSpace(req.OrderID) == "" {
		return nil, fmt.Errorf("%w: symbol and orderId are required", ErrBadRequest)
	}
	engine, _, err := l.svcCtx.Resolve(req.Gateway)
	if err != nil {
		return nil, err
	}
	return engine.GetOrderDetails(l.ctx, req.Symbol, req.OrderID)
}

// CancelAll reports partial failures in the response body.
func (l *OrdersLogic) CancelAll(req *types.CancelAllRequest) (*types.CancelResponse, error) {
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrBadRequest)
	}
	engine, _, err := l.svcCtx.Resolve(req.Gateway)
	if err != nil {
		return nil, err
	}
	res, err := engine.CancelAllOrders(l.ctx, req.Symbol)
	return cancelResponse(engine, res, err)
}

func (l *OrdersLogic) CancelBracket(req *types.CancelBracketRequest) (*types.CancelResponse, error) {
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrBadRequest)
	}
	engine, _, err := l.svcCtx.Resolve(req.Gateway)
	if err != nil {
		return nil, err
	}
	res, err := engine.CancelBracket(l.ctx, req.Symbol, req.TakeProfitOrderID, req.StopLossOrderID)
	return cancelResponse(engine, res, err)
}

func (l *OrdersLogic) Gateways() *types.GatewaysResponse {
	resp := &types.GatewaysResponse{
		Default:    l.svcCtx.DefaultGateway,
		Configured: []types.GatewayInfo{},
	}
	for _, name := range l.svcCtx.GatewayNames() {
		info := types.GatewayInfo{Name: name, Default: name == l.svcCtx.DefaultGateway}
		if entry := l.svcCtx.ExchangeConfig.Gateways[name]; entry != nil {
			info.Variant = entry.Type
			info.Testnet = entry.Testnet
		}
		resp.Configured = append(resp.Configured, info)
	}
	for _, v := range exchange.SupportedVariants() {
		resp.Supported = append(resp.Supported, string(v))
	}
	return resp
}

func cancelResponse(engine *executor.Engine, res *exchange.CancelAllResult, err error) (*types.CancelResponse, error) {
	if res == nil {
		return nil, err
	}
	resp := &types.CancelResponse{
		Gateway:   engine.Gateway().Name(),
		Symbol:    res.Symbol,
		Cancelled: res.Cancelled,
		Failed:    res.Failed,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}

func toIntent(req *types.OrderIntent) (executor.Intent, error) {
	if req == nil {
		return executor.Intent{}, fmt.Errorf("%w: order is required", ErrBadRequest)
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(req.Quantity))
	if err != nil {
		return executor.Intent{}, fmt.Errorf("%w: invalid quantity %q", ErrBadRequest, req.Quantity)
	}
	price, err := parseOptionalDecimal("price", req.Price)
	if err != nil {
		return executor.Intent{}, err
	}
	return executor.Intent{
		Symbol:        req.Symbol,
		Side:          exchange.ParseSide(req.Side),
		Quantity:      qty,
		Leverage:      req.Leverage,
		MarginMode:    exchange.MarginMode(strings.ToUpper(strings.TrimSpace(req.MarginMode))),
		Type:          exchange.OrderType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Price:         price,
		TimeInForce:   exchange.TimeInForce(strings.ToUpper(strings.TrimSpace(req.TimeInForce))),
		ReduceOnly:    req.ReduceOnly,
		ClientOrderID: req.ClientOrderID,
	}, nil
}

func parseOptionalDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid %s %q", ErrBadRequest, field, raw)
	}
	return v, nil
}
