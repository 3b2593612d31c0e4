package exchange

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zeromicro/go-zero/core/threading"
)

// CancelFailure records a single rejected cancellation.
type CancelFailure struct {
	OrderID string `json:"orderId"`
	Error   string `json:"error"`
	err     error
}

// CancelAllResult aggregates the outcome of a bulk cancellation.
type CancelAllResult struct {
	Symbol    string          `json:"symbol"`
	Cancelled []string        `json:"cancelled"`
	Failed    []CancelFailure `json:"failed,omitempty"`
}

// Err joins every failed cancellation, or returns nil when all succeeded.
func (r *CancelAllResult) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		if f.err != nil {
			errs = append(errs, fmt.Errorf("cancel %s: %w", f.OrderID, f.err))
		} else {
			errs = append(errs, fmt.Errorf("cancel %s: %s", f.OrderID, f.Error))
		}
	}
	return errors.Join(errs...)
}

// AddFailure appends a failed cancellation.
func (r *CancelAllResult) AddFailure(orderID string, err error) {
	r.Failed = append(r.Failed, CancelFailure{OrderID: orderID, Error: err.Error(), err: err})
}

// CancelFunc cancels a single order by id.
type CancelFunc func(ctx context.Context, orderID string) error

// CancelConcurrently issues one cancellation per order id without waiting on
// the others and returns the aggregate once all have completed. A failing
// cancellation never prevents the remaining ones from being submitted.
func CancelConcurrently(ctx context.Context, symbol string, orderIDs []string, cancel CancelFunc) *CancelAllResult {
	result := &CancelAllResult{Symbol: symbol, Cancelled: []string{}}
	if len(orderIDs) == 0 {
		return result
	}

	var mu sync.Mutex
	group := threading.NewRoutineGroup()
	for _, id := range orderIDs {
		id := id
		group.RunSafe(func() {
			err := cancel(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.AddFailure(id, err)
				return
			}
			result.Cancelled = append(result.Cancelled, id)
		})
	}
	group.Wait()

	// goroutine completion order is arbitrary
	sort.Strings(result.Cancelled)
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].OrderID < result.Failed[j].OrderID })
	return result
}

// CancelOpenOrders lists the open orders of symbol on gw and cancels them
// concurrently. The returned error is non-nil when listing failed or when any
// cancellation was rejected; the result is populated in the latter case.
func CancelOpenOrders(ctx context.Context, gw Gateway, symbol string) (*CancelAllResult, error) {
	open, err := gw.GetOpenOrders(ctx, symbol)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(open))
	for _, o := range open {
		ids = append(ids, o.OrderID)
	}
	result := CancelConcurrently(ctx, symbol, ids, func(ctx context.Context, id string) error {
		return gw.CancelOrder(ctx, symbol, id)
	})
	return result, result.Err()
}
