package executor

import (
	"context"
	"errors"
	"time"
)

// Recorder persists execution outcomes for audit.
type Recorder interface {
	RecordExecution(ctx context.Context, rec ExecutionRecord) error
}

// ExecutionRecord is the flattened, storage-friendly view of a Result.
type ExecutionRecord struct {
	ID           string       `json:"id"`
	Gateway      string       `json:"gateway"`
	Symbol       string       `json:"symbol"`
	Side         string       `json:"side"`
	OrderType    string       `json:"orderType"`
	RequestedQty string       `json:"requestedQty"`
	SubmittedQty string       `json:"submittedQty"`
	Leverage     int          `json:"leverage"`
	MarginMode   string       `json:"marginMode,omitempty"`
	Closing      bool         `json:"closing"`
	ReferencePx  string       `json:"referencePrice,omitempty"`
	PriceSource  string       `json:"priceSource,omitempty"`
	Adjusted     bool         `json:"adjusted"`
	OrderID      string       `json:"orderId,omitempty"`
	OrderStatus  string       `json:"orderStatus,omitempty"`
	Success      bool         `json:"success"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
	Steps        []StepRecord `json:"steps,omitempty"`
	StartedAt    time.Time    `json:"startedAt"`
	FinishedAt   time.Time    `json:"finishedAt"`
}

// NewExecutionRecord flattens res.
func NewExecutionRecord(res *Result) ExecutionRecord {
	rec := ExecutionRecord{
		ID:           res.ID,
		Gateway:      res.Gateway,
		Symbol:       res.Adjusted.Symbol,
		Side:         string(res.Adjusted.Side),
		OrderType:    string(res.Adjusted.Type),
		RequestedQty: res.Intent.Quantity.String(),
		SubmittedQty: res.Adjusted.Quantity.String(),
		Leverage:     res.Adjusted.Leverage,
		MarginMode:   string(res.Adjusted.MarginMode),
		Closing:      res.IsClosing,
		PriceSource:  res.PriceSource,
		Adjusted:     res.Adjustment != nil,
		OrderID:      res.OrderID,
		Success:      res.Success,
		ErrorMessage: res.Error,
		Warnings:     res.Warnings,
		Steps:        res.Steps,
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
	}
	if rec.Symbol == "" {
		rec.Symbol = res.Intent.Symbol
	}
	if res.Price.IsPositive() {
		rec.ReferencePx = res.Price.String()
	}
	if res.Order != nil {
		rec.OrderStatus = res.Order.Status
	}
	return rec
}

type noopRecorder struct{}

func (noopRecorder) RecordExecution(ctx context.Context, rec ExecutionRecord) error { return nil }

// MultiRecorder fans a record out to every recorder, joining their errors.
type MultiRecorder []Recorder

// RecordExecution implements Recorder.
func (m MultiRecorder) RecordExecution(ctx context.Context, rec ExecutionRecord) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordExecution(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
