package executor

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidIntent marks intents rejected before any venue call.
var ErrInvalidIntent = errors.New("executor: invalid intent")

// ConnectivityError reports that the venue could not be reached. It aborts
// an execution before any state is mutated.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("executor: venue unreachable: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// InsufficientMarginError reports a deficit too large to auto-correct.
type InsufficientMarginError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
	Deficit   decimal.Decimal
	Notional  decimal.Decimal
}

func (e *InsufficientMarginError) Error() string {
	return fmt.Sprintf("Insufficient margin: Required %s USDT, Available %s USDT (Deficit: %s USDT). Notional: %s USDT",
		e.Required.StringFixed(2), e.Available.StringFixed(2), e.Deficit.StringFixed(2), e.Notional.StringFixed(2))
}

func invalidIntent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidIntent, fmt.Sprintf(format, args...))
}
