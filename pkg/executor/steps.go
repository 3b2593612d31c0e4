package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"tradegate/pkg/exchange"
)

func (e *Engine) validate(ctx context.Context, x *execution) error {
	in := &x.intent
	in.Symbol = e.gw.ConvertSymbol(strings.TrimSpace(in.Symbol))
	if in.Symbol == "" {
		return invalidIntent("symbol is required")
	}
	in.Side = exchange.ParseSide(string(in.Side))
	if !in.Side.Valid() {
		return invalidIntent("side must be BUY or SELL, got %q", in.Side)
	}
	if !in.Quantity.IsPositive() {
		return invalidIntent("quantity must be positive, got %s", in.Quantity)
	}
	if in.Leverage == 0 {
		in.Leverage = e.cfg.DefaultLeverage
	}
	if in.Leverage < 1 {
		return invalidIntent("leverage must be at least 1, got %d", in.Leverage)
	}
	if in.MarginMode != "" {
		in.MarginMode = exchange.MarginMode(strings.ToUpper(strings.TrimSpace(string(in.MarginMode))))
		if !in.MarginMode.Valid() {
			return invalidIntent("margin mode must be ISOLATED or CROSSED, got %q", in.MarginMode)
		}
	}
	if in.Type == "" {
		in.Type = exchange.OrderTypeMarket
	}
	switch in.Type {
	case exchange.OrderTypeMarket:
	case exchange.OrderTypeLimit:
		if !in.Price.IsPositive() {
			return invalidIntent("limit intent requires a positive price")
		}
	default:
		return invalidIntent("order type %q is not supported for main orders", in.Type)
	}
	return nil
}

func (e *Engine) checkConnectivity(ctx context.Context, x *execution) error {
	return e.Ping(ctx)
}

// snapshot fetches fresh account, position and price state. Every part is
// best effort: a missing ticker falls back to a conservative fixed price and
// a missing account or position read disables sizing.
func (e *Engine) snapshot(ctx context.Context, x *execution) error {
	symbol := x.intent.Symbol

	account, err := e.gw.GetAccountInfo(ctx)
	if err != nil {
		x.warn(ctx, "account unavailable, margin check skipped: %v", err)
	} else {
		x.account = account
	}

	positions, err := e.gw.GetPositions(ctx, symbol)
	if err != nil {
		x.warn(ctx, "positions unavailable, margin check skipped: %v", err)
	} else {
		x.positionsKnown = true
	}
	for _, p := range positions {
		x.position = x.position.Add(p.Amount())
	}

	if x.intent.Type == exchange.OrderTypeLimit {
		x.price = x.intent.Price
		x.result.PriceSource = PriceFromLimit
	} else {
		ticker, err := e.gw.GetTicker(ctx, symbol)
		switch {
		case err != nil:
			x.warn(ctx, "ticker unavailable, using fallback price %s: %v", e.thresholds.fallbackPrice, err)
		case !ticker.Price().IsPositive():
			x.warn(ctx, "ticker has no price, using fallback price %s", e.thresholds.fallbackPrice)
		default:
			x.price = ticker.Price()
			x.result.PriceSource = PriceFromTicker
		}
		if x.result.PriceSource == "" {
			x.price = e.thresholds.fallbackPrice
			x.result.PriceSource = PriceFromFallback
		}
	}
	x.result.Price = x.price
	return nil
}

func (e *Engine) classify(ctx context.Context, x *execution) error {
	x.result.IsClosing = IsClosing(x.position, x.intent.Side)
	return nil
}

// size enforces margin sufficiency for opening intents, shrinking the
// quantity once when the deficit is within the auto-adjust threshold.
func (e *Engine) size(ctx context.Context, x *execution) error {
	if x.result.IsClosing {
		return skip("closing intent releases margin")
	}
	if x.account == nil {
		return skip("no account snapshot")
	}
	if !x.positionsKnown {
		return skip("no position snapshot")
	}

	lev := decimal.NewFromInt(int64(x.intent.Leverage))
	available := x.account.Available()
	check := &MarginCheck{
		Price:     x.price,
		Available: available,
		Notional:  x.intent.Quantity.Mul(x.price),
	}
	check.Required = check.Notional.Div(lev)
	x.result.Margin = check

	if check.Required.GreaterThan(available) {
		check.Deficit = check.Required.Sub(available)
		if !check.Deficit.LessThan(e.thresholds.autoAdjust.Mul(available)) {
			return &InsufficientMarginError{
				Required:  check.Required,
				Available: available,
				Deficit:   check.Deficit,
				Notional:  check.Notional,
			}
		}

		target := e.thresholds.safety.Mul(available).Mul(lev).Div(x.price)
		adjusted := exchange.ParseDecimal(e.gw.FormatQuantity(target, x.intent.Symbol))
		if !adjusted.IsPositive() {
			return &InsufficientMarginError{
				Required:  check.Required,
				Available: available,
				Deficit:   check.Deficit,
				Notional:  check.Notional,
			}
		}
		x.result.Adjustment = &Adjustment{
			Field:  "quantity",
			From:   x.intent.Quantity,
			To:     adjusted,
			Reason: fmt.Sprintf("required margin %s exceeds available %s", check.Required.StringFixed(2), available.StringFixed(2)),
		}
		x.warn(ctx, "quantity auto-adjusted from %s to %s", x.intent.Quantity, adjusted)
		x.intent.Quantity = adjusted
	}

	notional := x.intent.Quantity.Mul(x.price)
	required := notional.Div(lev)
	if available.IsPositive() {
		check.UsageRatio = required.Div(available)
		if check.UsageRatio.GreaterThan(e.thresholds.highUsage) {
			x.warn(ctx, "high margin usage %s%%", check.UsageRatio.Mul(decimal.NewFromInt(100)).StringFixed(2))
		}
	}
	if notional.LessThan(e.thresholds.minNotional) {
		x.warn(ctx, "notional %s below minimum order value %s", notional.StringFixed(2), e.thresholds.minNotional)
	}
	return nil
}

func (e *Engine) configureMarginMode(ctx context.Context, x *execution) error {
	if x.intent.MarginMode == "" {
		return skip("no margin mode requested")
	}
	ack, err := e.gw.SetMarginType(ctx, x.intent.Symbol, x.intent.MarginMode)
	if err != nil {
		if e.isBenignMarginError(err) {
			logx.WithContext(ctx).Infof("executor: %s margin mode already %s", x.intent.Symbol, x.intent.MarginMode)
			return nil
		}
		return err
	}
	if ack != nil && !ack.Applied {
		logx.WithContext(ctx).Infof("executor: %s margin mode: %s", x.intent.Symbol, ack.Message)
	}
	return nil
}

func (e *Engine) configureLeverage(ctx context.Context, x *execution) error {
	_, err := e.gw.SetLeverage(ctx, x.intent.Symbol, x.intent.Leverage)
	return err
}

func (e *Engine) submit(ctx context.Context, x *execution) error {
	in := x.intent
	qty := e.gw.FormatQuantity(in.Quantity, in.Symbol)
	if !exchange.ParseDecimal(qty).IsPositive() {
		return fmt.Errorf("executor: quantity %s rounds to zero at venue precision", in.Quantity)
	}
	req := exchange.OrderRequest{
		Symbol:        in.Symbol,
		Side:          in.Side,
		Type:          in.Type,
		Quantity:      qty,
		ReduceOnly:    in.ReduceOnly,
		ClientOrderID: in.ClientOrderID,
	}
	if in.Type == exchange.OrderTypeLimit {
		req.Price = e.gw.FormatPrice(in.Price, in.Symbol)
		req.TimeInForce = in.TimeInForce
	}

	order, err := e.gw.PlaceOrder(ctx, req)
	if err != nil {
		return fmt.Errorf("executor: place order: %w", err)
	}
	x.result.Order = order
	if order != nil {
		x.result.OrderID = order.OrderID
	}
	return nil
}

func (e *Engine) isBenignMarginError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range e.cfg.BenignMarginErrors {
		if strings.Contains(msg, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
