package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"tradegate/pkg/exchange"
)

// Step names, in pipeline order.
const (
	StepValidate     = "validate"
	StepConnectivity = "connectivity"
	StepSnapshot     = "snapshot"
	StepClassify     = "classify"
	StepSizing       = "sizing"
	StepMarginMode   = "margin_mode"
	StepLeverage     = "leverage"
	StepSubmit       = "submit"
)

// Price sources reported in Result.PriceSource.
const (
	PriceFromTicker   = "ticker"
	PriceFromLimit    = "limit"
	PriceFromFallback = "fallback"
)

// Engine validates intents against live venue state and submits the main
// order. It holds no state between executions.
type Engine struct {
	gw         exchange.Gateway
	cfg        *Config
	thresholds thresholds
	recorder   Recorder
	clock      func() time.Time
}

type thresholds struct {
	fallbackPrice decimal.Decimal
	autoAdjust    decimal.Decimal
	safety        decimal.Decimal
	highUsage     decimal.Decimal
	minNotional   decimal.Decimal
}

// Option customises Engine construction.
type Option func(*Engine)

// WithRecorder injects a recorder for execution audit. Recording is best
// effort; failures are logged.
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) {
		if recorder == nil {
			e.recorder = noopRecorder{}
			return
		}
		e.recorder = recorder
	}
}

// WithClock overrides the time source used for trace timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine constructs an Engine over gw. A nil cfg selects DefaultConfig.
func NewEngine(gw exchange.Gateway, cfg *Config, opts ...Option) (*Engine, error) {
	if gw == nil {
		return nil, errors.New("executor: gateway is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		gw:  gw,
		cfg: cfg,
		thresholds: thresholds{
			fallbackPrice: decimal.NewFromFloat(cfg.FallbackPrice),
			autoAdjust:    decimal.NewFromFloat(cfg.AutoAdjustThreshold),
			safety:        decimal.NewFromFloat(cfg.SafetyFactor),
			highUsage:     decimal.NewFromFloat(cfg.HighUsageRatio),
			minNotional:   decimal.NewFromFloat(cfg.MinNotional),
		},
		recorder: noopRecorder{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Gateway exposes the underlying venue.
func (e *Engine) Gateway() exchange.Gateway { return e.gw }

// GetConfig returns the engine configuration.
func (e *Engine) GetConfig() *Config { return e.cfg }

// execution carries per-call state through the pipeline.
type execution struct {
	intent   Intent
	account  *exchange.AccountInfo
	position decimal.Decimal
	price    decimal.Decimal
	result   *Result

	// positionsKnown is false when the position read failed. The intent may
	// be closing, so sizing is skipped.
	positionsKnown bool
}

func (x *execution) warn(ctx context.Context, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	x.result.Warnings = append(x.result.Warnings, msg)
	logx.WithContext(ctx).Infof("executor warning: %s %s", x.intent.Symbol, msg)
}

type skipError struct{ reason string }

func (s skipError) Error() string { return s.reason }

func skip(reason string) error { return skipError{reason: reason} }

type step struct {
	name string
	kind StepKind
	run  func(ctx context.Context, x *execution) error
}

func (e *Engine) pipeline() []step {
	return []step{
		{StepValidate, StepHard, e.validate},
		{StepConnectivity, StepHard, e.checkConnectivity},
		{StepSnapshot, StepSoft, e.snapshot},
		{StepClassify, StepPure, e.classify},
		{StepSizing, StepHard, e.size},
		{StepMarginMode, StepSoft, e.configureMarginMode},
		{StepLeverage, StepSoft, e.configureLeverage},
		{StepSubmit, StepHard, e.submit},
	}
}

// Execute runs intent through the pipeline. It never panics on venue or
// validation failures; hard failures are reported in Result.Err.
func (e *Engine) Execute(ctx context.Context, intent Intent) *Result {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	res := &Result{
		ID:        uuid.NewString(),
		Gateway:   e.gw.Name(),
		Intent:    intent,
		Adjusted:  intent,
		Steps:     make([]StepRecord, 0, 8),
		StartedAt: e.clock(),
	}
	x := &execution{intent: intent, result: res}

	steps := e.pipeline()
	for i, s := range steps {
		before := len(res.Warnings)
		start := e.clock()
		err := s.run(ctx, x)
		rec := StepRecord{Name: s.name, Kind: s.kind, Status: StepOK, Duration: e.clock().Sub(start)}

		var skipped skipError
		switch {
		case errors.As(err, &skipped):
			rec.Status = StepSkipped
			rec.Message = skipped.reason
		case err != nil && s.kind == StepHard:
			rec.Status = StepFailed
			rec.Message = err.Error()
			res.Steps = append(res.Steps, rec)
			for _, rest := range steps[i+1:] {
				res.Steps = append(res.Steps, StepRecord{Name: rest.name, Kind: rest.kind, Status: StepSkipped, Message: "aborted"})
			}
			res.Err = err
			res.Error = err.Error()
			logx.WithContext(ctx).Errorf("executor: %s %s %s failed at %s: %v",
				x.intent.Symbol, x.intent.Side, x.intent.Quantity, s.name, err)
			return e.finish(ctx, x)
		case err != nil:
			rec.Status = StepWarning
			rec.Message = err.Error()
			x.result.Warnings = append(x.result.Warnings, fmt.Sprintf("%s: %v", s.name, err))
			logx.WithContext(ctx).Errorf("executor: %s %s failed (continuing): %v", x.intent.Symbol, s.name, err)
		case len(res.Warnings) > before:
			rec.Status = StepWarning
			rec.Message = strings.Join(res.Warnings[before:], "; ")
		}
		res.Steps = append(res.Steps, rec)
	}

	res.Success = true
	return e.finish(ctx, x)
}

func (e *Engine) finish(ctx context.Context, x *execution) *Result {
	res := x.result
	res.Adjusted = x.intent
	res.FinishedAt = e.clock()
	if res.Success {
		logx.WithContext(ctx).Infof("executor: %s %s %s submitted as order %s (%s)",
			x.intent.Symbol, x.intent.Side, x.intent.Quantity, res.OrderID, res.FinishedAt.Sub(res.StartedAt))
	}
	// The execution deadline may already have passed; the audit write must not inherit it.
	if err := e.recorder.RecordExecution(context.WithoutCancel(ctx), NewExecutionRecord(res)); err != nil {
		logx.WithContext(ctx).Errorf("executor: record execution %s: %v", res.ID, err)
	}
	return res
}
