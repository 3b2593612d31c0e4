package hyperliquid

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradegate/pkg/exchange"
)

func (c *Client) clearinghouseState(ctx context.Context) (*clearinghouseState, error) {
	user := c.infoAddress()
	if user == "" {
		return nil, errors.New("hyperliquid: client address unavailable")
	}
	var state clearinghouseState
	if err := c.doInfoRequest(ctx, InfoRequest{Type: "clearinghouseState", User: user}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetAccountInfo reports equity and withdrawable balance from the
// clearinghouse state.
func (c *Client) GetAccountInfo(ctx context.Context) (*exchange.AccountInfo, error) {
	state, err := c.clearinghouseState(ctx)
	if err != nil {
		return nil, err
	}
	unrealized := decimal.Zero
	for _, ap := range state.AssetPositions {
		unrealized = unrealized.Add(exchange.ParseDecimal(ap.Position.UnrealizedPnl))
	}
	equity := exchange.ParseDecimal(state.MarginSummary.AccountValue)

	updated := c.clock()
	if state.Time > 0 {
		updated = time.UnixMilli(state.Time)
	}
	return &exchange.AccountInfo{
		TotalBalance:          exchange.OrZero(state.MarginSummary.AccountValue),
		AvailableBalance:      exchange.OrZero(state.Withdrawable),
		TotalUnrealizedProfit: unrealized.String(),
		UpdateTime:            updated,
		Details: &exchange.AccountDetails{
			WalletBalance:      equity.Sub(unrealized).String(),
			MarginBalance:      exchange.OrZero(state.MarginSummary.AccountValue),
			TotalInitialMargin: exchange.OrZero(state.MarginSummary.TotalMarginUsed),
			TotalMaintMargin:   exchange.OrZero(state.CrossMaintenanceMarginUsed),
			MaxWithdrawAmount:  exchange.OrZero(state.Withdrawable),
			CrossWalletBalance: exchange.OrZero(state.CrossMarginSummary.AccountValue),
		},
	}, nil
}

// GetPositions returns the non-zero position on symbol, if any.
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	all, err := c.GetAllPositions(ctx)
	if err != nil {
		return nil, err
	}
	coin := coinFromSymbol(symbol)
	out := make([]exchange.Position, 0, 1)
	for _, p := range all {
		if canonicalAssetKey(p.Symbol) == coin {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetAllPositions returns every non-zero position.
func (c *Client) GetAllPositions(ctx context.Context) ([]exchange.Position, error) {
	state, err := c.clearinghouseState(ctx)
	if err != nil {
		return nil, err
	}
	updated := c.clock()
	if state.Time > 0 {
		updated = time.UnixMilli(state.Time)
	}
	out := make([]exchange.Position, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		pos := ap.Position
		size := exchange.ParseDecimal(pos.Szi)
		if size.IsZero() {
			continue
		}
		mark := decimal.Zero
		if value := exchange.ParseDecimal(pos.PositionValue); value.IsPositive() {
			mark = value.Div(size.Abs())
		}
		mode := exchange.MarginCrossed
		if strings.EqualFold(pos.Leverage.Type, "isolated") {
			mode = exchange.MarginIsolated
		}
		isolated := "0"
		if mode == exchange.MarginIsolated {
			isolated = exchange.OrZero(pos.MarginUsed)
		}
		out = append(out, exchange.Position{
			Symbol:           pos.Coin,
			PositionAmt:      size.String(),
			EntryPrice:       derefOrZero(pos.EntryPx),
			MarkPrice:        mark.String(),
			UnrealizedProfit: exchange.OrZero(pos.UnrealizedPnl),
			LiquidationPrice: derefOrZero(pos.LiquidationPx),
			Leverage:         pos.Leverage.Value,
			MarginMode:       mode,
			IsolatedMargin:   isolated,
			UpdateTime:       updated,
		})
	}
	return out, nil
}

func derefOrZero(v *string) string {
	if v == nil {
		return "0"
	}
	return exchange.OrZero(*v)
}
