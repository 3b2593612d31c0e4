package exchange

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical trading types shared by every gateway. Numeric fields are decimal
// strings so that venue precision survives the round trip untouched.

// OrderSide represents order direction.
type OrderSide string

const (
	// SideBuy opens or extends a long, or reduces a short.
	SideBuy OrderSide = "BUY"
	// SideSell opens or extends a short, or reduces a long.
	SideSell OrderSide = "SELL"
)

// Valid reports whether the side is one of the known values.
func (s OrderSide) Valid() bool { return s == SideBuy || s == SideSell }

// Opposite returns the closing side.
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// ParseSide normalises user input such as "buy" or " Sell ".
func ParseSide(raw string) OrderSide {
	return OrderSide(strings.ToUpper(strings.TrimSpace(raw)))
}

// OrderType enumerates supported order kinds.
type OrderType string

const (
	OrderTypeMarket           OrderType = "MARKET"
	OrderTypeLimit            OrderType = "LIMIT"
	OrderTypeStopMarket       OrderType = "STOP_MARKET"
	OrderTypeTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
)

// IsTrigger reports whether the order rests until a stop price is crossed.
func (t OrderType) IsTrigger() bool {
	return t == OrderTypeStopMarket || t == OrderTypeTakeProfitMarket
}

// MarginMode selects isolated or cross margin.
type MarginMode string

const (
	MarginIsolated MarginMode = "ISOLATED"
	MarginCrossed  MarginMode = "CROSSED"
)

// Valid reports whether the mode is known.
func (m MarginMode) Valid() bool { return m == MarginIsolated || m == MarginCrossed }

// TimeInForce controls how long a limit order rests.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
	// TimeInForceGTX is post-only.
	TimeInForceGTX TimeInForce = "GTX"
)

// Order statuses reported in OrderResult.Status.
const (
	StatusNew             = "NEW"
	StatusPartiallyFilled = "PARTIALLY_FILLED"
	StatusFilled          = "FILLED"
	StatusCanceled        = "CANCELED"
	StatusRejected        = "REJECTED"
	StatusExpired         = "EXPIRED"
)

// AccountInfo is a point-in-time account snapshot. Unavailable numeric values
// are reported as "0".
type AccountInfo struct {
	TotalBalance          string          `json:"totalBalance"`
	AvailableBalance      string          `json:"availableBalance"`
	TotalUnrealizedProfit string          `json:"totalUnrealizedProfit"`
	UpdateTime            time.Time       `json:"updateTime"`
	Details               *AccountDetails `json:"details,omitempty"`
}

// AccountDetails carries the wallet/margin breakdown some venues expose.
type AccountDetails struct {
	WalletBalance      string `json:"walletBalance"`
	MarginBalance      string `json:"marginBalance"`
	TotalInitialMargin string `json:"totalInitialMargin"`
	TotalMaintMargin   string `json:"totalMaintMargin"`
	MaxWithdrawAmount  string `json:"maxWithdrawAmount"`
	CrossWalletBalance string `json:"crossWalletBalance"`
}

// Available parses AvailableBalance, returning zero when malformed.
func (a *AccountInfo) Available() decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	return ParseDecimal(a.AvailableBalance)
}

// Position describes a live position. PositionAmt is signed: positive long,
// negative short.
type Position struct {
	Symbol           string     `json:"symbol"`
	PositionAmt      string     `json:"positionAmt"`
	EntryPrice       string     `json:"entryPrice"`
	MarkPrice        string     `json:"markPrice"`
	UnrealizedProfit string     `json:"unrealizedProfit"`
	LiquidationPrice string     `json:"liquidationPrice"`
	Leverage         int        `json:"leverage"`
	MarginMode       MarginMode `json:"marginMode"`
	IsolatedMargin   string     `json:"isolatedMargin"`
	UpdateTime       time.Time  `json:"updateTime"`
}

// Amount returns the signed position size.
func (p Position) Amount() decimal.Decimal { return ParseDecimal(p.PositionAmt) }

// OrderRequest is the canonical order submission. Quantity and prices are
// expected to be formatted with the gateway's FormatQuantity/FormatPrice.
type OrderRequest struct {
	Symbol        string      `json:"symbol"`
	Side          OrderSide   `json:"side"`
	Type          OrderType   `json:"type"`
	Quantity      string      `json:"quantity,omitempty"`
	Price         string      `json:"price,omitempty"`
	StopPrice     string      `json:"stopPrice,omitempty"`
	ClosePosition bool        `json:"closePosition,omitempty"`
	ReduceOnly    bool        `json:"reduceOnly,omitempty"`
	TimeInForce   TimeInForce `json:"timeInForce,omitempty"`
	ClientOrderID string      `json:"clientOrderId,omitempty"`
}

// OrderResult is the canonical view of an order after submission or lookup.
type OrderResult struct {
	OrderID       string    `json:"orderId"`
	ClientOrderID string    `json:"clientOrderId,omitempty"`
	Symbol        string    `json:"symbol"`
	Status        string    `json:"status"`
	Side          OrderSide `json:"side"`
	Type          OrderType `json:"type"`
	Price         string    `json:"price"`
	AvgPrice      string    `json:"avgPrice"`
	StopPrice     string    `json:"stopPrice,omitempty"`
	OrigQty       string    `json:"origQty"`
	ExecutedQty   string    `json:"executedQty"`
	ReduceOnly    bool      `json:"reduceOnly,omitempty"`
	ClosePosition bool      `json:"closePosition,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FilledQuantity returns the executed quantity, zero when unknown.
func (o *OrderResult) FilledQuantity() decimal.Decimal {
	if o == nil {
		return decimal.Zero
	}
	return ParseDecimal(o.ExecutedQty)
}

// Ticker is a 24h market summary.
type Ticker struct {
	Symbol             string    `json:"symbol"`
	LastPrice          string    `json:"lastPrice"`
	MarkPrice          string    `json:"markPrice,omitempty"`
	OpenPrice          string    `json:"openPrice"`
	HighPrice          string    `json:"highPrice"`
	LowPrice           string    `json:"lowPrice"`
	Volume             string    `json:"volume"`
	QuoteVolume        string    `json:"quoteVolume"`
	PriceChangePercent string    `json:"priceChangePercent"`
	Time               time.Time `json:"time"`
}

// Price returns the last traded price, falling back to the mark price.
func (t *Ticker) Price() decimal.Decimal {
	if t == nil {
		return decimal.Zero
	}
	if p := ParseDecimal(t.LastPrice); p.IsPositive() {
		return p
	}
	return ParseDecimal(t.MarkPrice)
}

// UserTrade is a single account fill.
type UserTrade struct {
	ID              string    `json:"id"`
	OrderID         string    `json:"orderId"`
	Symbol          string    `json:"symbol"`
	Side            OrderSide `json:"side"`
	Price           string    `json:"price"`
	Quantity        string    `json:"qty"`
	QuoteQty        string    `json:"quoteQty"`
	Commission      string    `json:"commission"`
	CommissionAsset string    `json:"commissionAsset"`
	RealizedPnl     string    `json:"realizedPnl"`
	Maker           bool      `json:"maker"`
	Time            time.Time `json:"time"`
}

// TradeQuery filters GetUserTrades. Zero times mean unbounded.
type TradeQuery struct {
	Symbol    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

// Ack acknowledges a configuration change. Applied is false when the venue
// has no native equivalent and the request was accepted as a no-op or stored
// preference.
type Ack struct {
	Symbol  string `json:"symbol"`
	Applied bool   `json:"applied"`
	Message string `json:"message,omitempty"`
}

// ParseDecimal parses a numeric string, returning zero for empty or malformed input.
func ParseDecimal(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// OrZero substitutes "0" for empty numeric strings.
func OrZero(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "0"
	}
	return raw
}
