package hyperliquid

import (
	"context"
	"fmt"

	"tradegate/pkg/exchange"
)

// SetLeverage submits an updateLeverage action. The cross/isolated flag comes
// from the preference recorded by SetMarginType, defaulting to cross.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) (*exchange.Ack, error) {
	if leverage <= 0 {
		return nil, fmt.Errorf("hyperliquid: leverage must be positive")
	}
	coin := coinFromSymbol(symbol)
	asset, err := c.GetAssetIndex(ctx, coin)
	if err != nil {
		return nil, err
	}
	isCross := c.marginMode(coin) != exchange.MarginIsolated
	if _, err := c.doExchangeRequest(ctx, Action{
		Type:     ActionTypeUpdateLeverage,
		Asset:    &asset,
		IsCross:  &isCross,
		Leverage: leverage,
	}); err != nil {
		return nil, err
	}
	return &exchange.Ack{Symbol: coin, Applied: true, Message: fmt.Sprintf("leverage set to %dx", leverage)}, nil
}

// SetMarginType records the margin preference for coin. Hyperliquid has no
// standalone margin-type call; the mode is sent with the next leverage update.
func (c *Client) SetMarginType(ctx context.Context, symbol string, mode exchange.MarginMode) (*exchange.Ack, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("hyperliquid: invalid margin mode %q", mode)
	}
	coin := coinFromSymbol(symbol)
	c.marginMu.Lock()
	c.marginModes[coin] = mode
	c.marginMu.Unlock()
	return &exchange.Ack{Symbol: coin, Applied: false, Message: "margin mode applied with leverage"}, nil
}

func (c *Client) marginMode(coin string) exchange.MarginMode {
	c.marginMu.Lock()
	defer c.marginMu.Unlock()
	if mode, ok := c.marginModes[coin]; ok {
		return mode
	}
	return exchange.MarginCrossed
}
