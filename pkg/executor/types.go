package executor

import (
	"time"

	"github.com/shopspring/decimal"

	"tradegate/pkg/exchange"
)

// Intent is a caller's request to trade. The engine never mutates it; any
// resizing is reported through Result.Adjusted and Result.Adjustment.
type Intent struct {
	Symbol     string              `json:"symbol"`
	Side       exchange.OrderSide  `json:"side"`
	Quantity   decimal.Decimal     `json:"quantity"`
	Leverage   int                 `json:"leverage"`
	MarginMode exchange.MarginMode `json:"marginMode,omitempty"`

	// Type defaults to MARKET. LIMIT intents size against Price.
	Type          exchange.OrderType   `json:"type,omitempty"`
	Price         decimal.Decimal      `json:"price,omitempty"`
	TimeInForce   exchange.TimeInForce `json:"timeInForce,omitempty"`
	ReduceOnly    bool                 `json:"reduceOnly,omitempty"`
	ClientOrderID string               `json:"clientOrderId,omitempty"`
}

// Adjustment records a change the engine made to the intent.
type Adjustment struct {
	Field  string          `json:"field"`
	From   decimal.Decimal `json:"from"`
	To     decimal.Decimal `json:"to"`
	Reason string          `json:"reason"`
}

// MarginCheck is the arithmetic behind the sizing decision.
type MarginCheck struct {
	Price      decimal.Decimal `json:"price"`
	Required   decimal.Decimal `json:"required"`
	Available  decimal.Decimal `json:"available"`
	Deficit    decimal.Decimal `json:"deficit"`
	Notional   decimal.Decimal `json:"notional"`
	UsageRatio decimal.Decimal `json:"usageRatio"`
}

// StepKind tags a pipeline step by how its failure is handled.
type StepKind string

const (
	// StepHard failures abort the execution.
	StepHard StepKind = "hard"
	// StepSoft failures are logged and recorded as warnings.
	StepSoft StepKind = "soft"
	// StepPure steps perform no I/O and cannot fail.
	StepPure StepKind = "pure"
)

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepWarning StepStatus = "warning"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepRecord traces one pipeline step.
type StepRecord struct {
	Name     string        `json:"name"`
	Kind     StepKind      `json:"kind"`
	Status   StepStatus    `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of Engine.Execute. Success is true iff the main
// order was accepted by the venue.
type Result struct {
	ID          string                `json:"id"`
	Gateway     string                `json:"gateway"`
	Success     bool                  `json:"success"`
	Intent      Intent                `json:"intent"`
	Adjusted    Intent                `json:"adjusted"`
	Adjustment  *Adjustment           `json:"adjustment,omitempty"`
	IsClosing   bool                  `json:"isClosing"`
	Price       decimal.Decimal       `json:"price"`
	PriceSource string                `json:"priceSource,omitempty"`
	Margin      *MarginCheck          `json:"margin,omitempty"`
	Order       *exchange.OrderResult `json:"order,omitempty"`
	OrderID     string                `json:"orderId,omitempty"`
	Warnings    []string              `json:"warnings,omitempty"`
	Steps       []StepRecord          `json:"steps"`
	Error       string                `json:"error,omitempty"`
	Err         error                 `json:"-"`
	StartedAt   time.Time             `json:"startedAt"`
	FinishedAt  time.Time             `json:"finishedAt"`
}

// Step returns the trace entry for name, if the step ran.
func (r *Result) Step(name string) (StepRecord, bool) {
	if r == nil {
		return StepRecord{}, false
	}
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepRecord{}, false
}

// IsClosing reports whether an order on side reduces a position of signed
// size position. A flat position is always opened.
func IsClosing(position decimal.Decimal, side exchange.OrderSide) bool {
	return (position.IsPositive() && side == exchange.SideSell) ||
		(position.IsNegative() && side == exchange.SideBuy)
}
