package hyperliquid

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradegate/pkg/exchange"
)

// GetTicker builds a market summary from a fresh metaAndAssetCtxs snapshot.
// The venue reports no 24h high/low; those fields are "0".
func (c *Client) GetTicker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	coin := coinFromSymbol(symbol)
	if err := c.refreshAssetDirectory(ctx); err != nil {
		return nil, err
	}
	info, ok := c.cachedAssetInfo(coin)
	if !ok {
		return nil, exchange.WrapVenue(venueName, "metaAndAssetCtxs", errUnknownAsset(coin))
	}
	assetCtx := info.Ctx
	mark := exchange.ParseDecimal(assetCtx.MarkPx)
	last := exchange.ParseDecimal(assetCtx.MidPx)
	if !last.IsPositive() {
		last = mark
	}
	prev := exchange.ParseDecimal(assetCtx.PrevDayPx)
	change := decimal.Zero
	if prev.IsPositive() {
		change = mark.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return &exchange.Ticker{
		Symbol:             info.Name,
		LastPrice:          last.String(),
		MarkPrice:          mark.String(),
		OpenPrice:          prev.String(),
		HighPrice:          "0",
		LowPrice:           "0",
		Volume:             exchange.OrZero(assetCtx.DayBaseVlm),
		QuoteVolume:        exchange.OrZero(assetCtx.DayNtlVlm),
		PriceChangePercent: change.StringFixed(2),
		Time:               c.clock(),
	}, nil
}

// GetServerTime returns the local clock; the venue has no time endpoint and
// nonces are client-generated.
func (c *Client) GetServerTime(ctx context.Context) (time.Time, error) {
	return c.clock(), nil
}

// SyncServerTime is a no-op.
func (c *Client) SyncServerTime(ctx context.Context) error { return nil }

// GetUserTrades returns account fills, using userFillsByTime when the query
// carries a start time and userFills otherwise.
func (c *Client) GetUserTrades(ctx context.Context, query exchange.TradeQuery) ([]exchange.UserTrade, error) {
	req := InfoRequest{Type: "userFills", User: c.infoAddress()}
	if !query.StartTime.IsZero() {
		req.Type = "userFillsByTime"
		req.StartTime = query.StartTime.UnixMilli()
		if !query.EndTime.IsZero() {
			req.EndTime = query.EndTime.UnixMilli()
		}
	}
	var fills []userFill
	if err := c.doInfoRequest(ctx, req, &fills); err != nil {
		return nil, err
	}

	coin := ""
	if strings.TrimSpace(query.Symbol) != "" {
		coin = coinFromSymbol(query.Symbol)
	}
	trades := make([]exchange.UserTrade, 0, len(fills))
	for _, f := range fills {
		if coin != "" && canonicalAssetKey(f.Coin) != coin {
			continue
		}
		side := exchange.SideBuy
		if f.Side == "A" {
			side = exchange.SideSell
		}
		asset := f.FeeToken
		if asset == "" {
			asset = "USDC"
		}
		px, sz := exchange.ParseDecimal(f.Px), exchange.ParseDecimal(f.Sz)
		trades = append(trades, exchange.UserTrade{
			ID:              strconv.FormatInt(f.Tid, 10),
			OrderID:         strconv.FormatInt(f.Oid, 10),
			Symbol:          f.Coin,
			Side:            side,
			Price:           exchange.OrZero(f.Px),
			Quantity:        exchange.OrZero(f.Sz),
			QuoteQty:        px.Mul(sz).String(),
			Commission:      exchange.OrZero(f.Fee),
			CommissionAsset: asset,
			RealizedPnl:     exchange.OrZero(f.ClosedPnl),
			Maker:           !f.Crossed,
			Time:            time.UnixMilli(f.Time),
		})
	}
	sort.SliceStable(trades, func(i, j int) bool { return trades[i].Time.Before(trades[j].Time) })
	if query.Limit > 0 && len(trades) > query.Limit {
		trades = trades[len(trades)-query.Limit:]
	}
	return trades, nil
}
