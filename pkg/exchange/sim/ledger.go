package sim

import (
	"errors"

	"github.com/shopspring/decimal"

	"tradegate/pkg/exchange"
)

var errReduceOnlyIncrease = errors.New("reduce-only order would increase position")

type positionState struct {
	qty   decimal.Decimal // positive long, negative short
	entry decimal.Decimal // average entry price
}

type accountSnapshot struct {
	positions  []exchange.Position
	unrealized decimal.Decimal
	notional   decimal.Decimal
	margin     decimal.Decimal
}

// applyFillLocked books a fill of size at price and returns the realised PnL
// and the executed size. Reduce-only fills are clamped to the open position.
func (g *Gateway) applyFillLocked(symbol string, price, size decimal.Decimal, side exchange.OrderSide, reduceOnly bool) (decimal.Decimal, decimal.Decimal, error) {
	state := g.positions[symbol]
	if reduceOnly {
		if state == nil || state.qty.IsZero() {
			return decimal.Zero, decimal.Zero, nil
		}
	} else if state == nil {
		state = &positionState{}
		g.positions[symbol] = state
	}

	delta := size
	if side == exchange.SideSell {
		delta = size.Neg()
	}
	oldQty := state.qty
	opposing := oldQty.Mul(delta).IsNegative()

	if reduceOnly {
		if !opposing {
			return decimal.Zero, decimal.Zero, errReduceOnlyIncrease
		}
		if size.GreaterThan(oldQty.Abs()) {
			delta = oldQty.Neg()
		}
	}
	newQty := oldQty.Add(delta)

	realized := decimal.Zero
	if opposing {
		closeQty := decimal.Min(oldQty.Abs(), delta.Abs())
		realized = closeQty.Mul(price.Sub(state.entry))
		if oldQty.IsNegative() {
			realized = realized.Neg()
		}
	}

	switch {
	case oldQty.IsZero():
		state.entry = price
	case !opposing:
		state.entry = oldQty.Mul(state.entry).Add(delta.Mul(price)).Div(newQty)
	case oldQty.Mul(newQty).IsNegative():
		// flipped through zero
		state.entry = price
	}

	state.qty = newQty
	if state.qty.IsZero() {
		delete(g.positions, symbol)
	}
	return realized, delta.Abs(), nil
}

// openingSize returns the part of a fill that adds exposure rather than
// reducing the current position.
func (g *Gateway) openingSize(symbol string, size decimal.Decimal, side exchange.OrderSide) decimal.Decimal {
	state := g.positions[symbol]
	if state == nil || state.qty.IsZero() {
		return size
	}
	long := state.qty.IsPositive()
	if (long && side == exchange.SideBuy) || (!long && side == exchange.SideSell) {
		return size
	}
	rest := size.Sub(state.qty.Abs())
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

func (g *Gateway) markLocked(symbol string) decimal.Decimal {
	if mark, ok := g.marks[symbol]; ok && mark.IsPositive() {
		return mark
	}
	if state, ok := g.positions[symbol]; ok {
		return state.entry
	}
	return decimal.Zero
}

func (g *Gateway) snapshotLocked() accountSnapshot {
	snap := accountSnapshot{positions: make([]exchange.Position, 0, len(g.positions))}
	now := g.clock()
	for symbol, state := range g.positions {
		mark := g.markLocked(symbol)
		notional := state.qty.Mul(mark).Abs()
		unreal := state.qty.Mul(mark.Sub(state.entry))
		lev := g.leverageLocked(symbol)
		margin := notional.Div(decimal.NewFromInt(int64(lev)))
		mode := g.marginLocked(symbol)

		isolated := "0"
		if mode == exchange.MarginIsolated {
			isolated = formatDecimal(margin)
		}
		snap.positions = append(snap.positions, exchange.Position{
			Symbol:           symbol,
			PositionAmt:      state.qty.String(),
			EntryPrice:       formatDecimal(state.entry),
			MarkPrice:        formatDecimal(mark),
			UnrealizedProfit: formatDecimal(unreal),
			LiquidationPrice: "0",
			Leverage:         lev,
			MarginMode:       mode,
			IsolatedMargin:   isolated,
			UpdateTime:       now,
		})
		snap.unrealized = snap.unrealized.Add(unreal)
		snap.notional = snap.notional.Add(notional)
		snap.margin = snap.margin.Add(margin)
	}
	sortPositions(snap.positions)
	return snap
}
