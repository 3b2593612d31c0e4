package binance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"tradegate/pkg/exchange"
)

// GetAccountInfo reports wallet totals from the futures account endpoint.
func (c *Client) GetAccountInfo(ctx context.Context) (*exchange.AccountInfo, error) {
	acct, err := c.api.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, wrapErr("account", err)
	}
	return &exchange.AccountInfo{
		TotalBalance:          exchange.OrZero(acct.TotalWalletBalance),
		AvailableBalance:      exchange.OrZero(acct.AvailableBalance),
		TotalUnrealizedProfit: exchange.OrZero(acct.TotalUnrealizedProfit),
		UpdateTime:            c.clock(),
		Details: &exchange.AccountDetails{
			WalletBalance:      exchange.OrZero(acct.TotalWalletBalance),
			MarginBalance:      exchange.OrZero(acct.TotalMarginBalance),
			TotalInitialMargin: exchange.OrZero(acct.TotalInitialMargin),
			TotalMaintMargin:   exchange.OrZero(acct.TotalMaintMargin),
			MaxWithdrawAmount:  exchange.OrZero(acct.MaxWithdrawAmount),
			CrossWalletBalance: exchange.OrZero(acct.TotalCrossWalletBalance),
		},
	}, nil
}

// GetPositions returns the non-zero positions on symbol.
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	return c.positions(ctx, pairFromSymbol(symbol))
}

// GetAllPositions returns every non-zero position.
func (c *Client) GetAllPositions(ctx context.Context) ([]exchange.Position, error) {
	return c.positions(ctx, "")
}

func (c *Client) positions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	svc := c.api.NewGetPositionRiskService()
	if symbol != "" {
		svc = svc.Symbol(symbol)
	}
	risks, err := svc.Do(ctx)
	if err != nil {
		return nil, wrapErr("positionRisk", err)
	}
	now := c.clock()
	out := make([]exchange.Position, 0, len(risks))
	for _, r := range risks {
		if r == nil || exchange.ParseDecimal(r.PositionAmt).IsZero() {
			continue
		}
		leverage, _ := strconv.Atoi(r.Leverage)
		mode := exchange.MarginCrossed
		if strings.EqualFold(r.MarginType, "isolated") {
			mode = exchange.MarginIsolated
		}
		out = append(out, exchange.Position{
			Symbol:           r.Symbol,
			PositionAmt:      r.PositionAmt,
			EntryPrice:       exchange.OrZero(r.EntryPrice),
			MarkPrice:        exchange.OrZero(r.MarkPrice),
			UnrealizedProfit: exchange.OrZero(r.UnRealizedProfit),
			LiquidationPrice: exchange.OrZero(r.LiquidationPrice),
			Leverage:         leverage,
			MarginMode:       mode,
			IsolatedMargin:   exchange.OrZero(r.IsolatedMargin),
			UpdateTime:       now,
		})
	}
	return out, nil
}

// GetTicker returns the 24h rolling statistics for symbol.
func (c *Client) GetTicker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	pair := pairFromSymbol(symbol)
	stats, err := c.api.NewListPriceChangeStatsService().Symbol(pair).Do(ctx)
	if err != nil {
		return nil, wrapErr("ticker", err)
	}
	for _, s := range stats {
		if s == nil || s.Symbol != pair {
			continue
		}
		ts := c.clock()
		if s.CloseTime > 0 {
			ts = time.UnixMilli(s.CloseTime)
		}
		return &exchange.Ticker{
			Symbol:             s.Symbol,
			LastPrice:          exchange.OrZero(s.LastPrice),
			OpenPrice:          exchange.OrZero(s.OpenPrice),
			HighPrice:          exchange.OrZero(s.HighPrice),
			LowPrice:           exchange.OrZero(s.LowPrice),
			Volume:             exchange.OrZero(s.Volume),
			QuoteVolume:        exchange.OrZero(s.QuoteVolume),
			PriceChangePercent: exchange.OrZero(s.PriceChangePercent),
			Time:               ts,
		}, nil
	}
	return nil, wrapErr("ticker", errNoTicker(pair))
}

// SetLeverage changes the initial leverage for symbol.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) (*exchange.Ack, error) {
	pair := pairFromSymbol(symbol)
	res, err := c.api.NewChangeLeverageService().Symbol(pair).Leverage(leverage).Do(ctx)
	if err != nil {
		return nil, wrapErr("leverage", err)
	}
	return &exchange.Ack{Symbol: pair, Applied: true, Message: "leverage set to " + strconv.Itoa(res.Leverage) + "x"}, nil
}

// SetMarginType switches symbol between isolated and cross margin. "No need
// to change margin type" is acknowledged as already applied.
func (c *Client) SetMarginType(ctx context.Context, symbol string, mode exchange.MarginMode) (*exchange.Ack, error) {
	pair := pairFromSymbol(symbol)
	marginType := futuresMarginType(mode)
	if marginType == "" {
		return nil, wrapErr("marginType", errInvalidMarginMode(mode))
	}
	err := c.api.NewChangeMarginTypeService().Symbol(pair).MarginType(marginType).Do(ctx)
	if err != nil {
		if apiErrorCode(err) == codeNoNeedToChangeMargin || strings.Contains(err.Error(), "No need to change margin type") {
			return &exchange.Ack{Symbol: pair, Applied: false, Message: "margin type already " + string(mode)}, nil
		}
		return nil, wrapErr("marginType", err)
	}
	return &exchange.Ack{Symbol: pair, Applied: true, Message: "margin type set to " + string(mode)}, nil
}
