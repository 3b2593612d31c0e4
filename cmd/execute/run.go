package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"tradegate/pkg/bracket"
	"tradegate/pkg/exchange"
	"tradegate/pkg/executor"
	"tradegate/pkg/journal"
)

const (
	actionExecute   = "execute"
	actionOpen      = "open"
	actionStatus    = "status"
	actionCancelAll = "cancel-all"
)

type options struct {
	action       string
	symbol       string
	side         string
	quantity     decimal.Decimal
	leverage     int
	marginMode   string
	orderType    string
	price        decimal.Decimal
	takeProfit   decimal.Decimal
	stopLoss     decimal.Decimal
	orderID      string
	executorPath string
	journalDir   string
	logLevel     string
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, error) {
	opts := &options{}
	var qty, price, tp, sl string
	fs.StringVar(&opts.action, "action", actionExecute, "execute | open | status | cancel-all")
	fs.StringVar(&opts.symbol, "symbol", "", "symbol, e.g. BTC")
	fs.StringVar(&opts.side, "side", "BUY", "BUY or SELL")
	fs.StringVar(&qty, "qty", "", "order quantity")
	fs.IntVar(&opts.leverage, "leverage", 0, "leverage, 0 uses the executor default")
	fs.StringVar(&opts.marginMode, "margin", "", "ISOLATED or CROSSED, empty leaves the venue setting")
	fs.StringVar(&opts.orderType, "type", "MARKET", "MARKET or LIMIT")
	fs.StringVar(&price, "price", "", "limit price")
	fs.StringVar(&tp, "tp", "", "take-profit trigger price")
	fs.StringVar(&sl, "sl", "", "stop-loss trigger price")
	fs.StringVar(&opts.orderID, "order-id", "", "order id for -action status")
	fs.StringVar(&opts.executorPath, "executor-config", "", "path to executor configuration, defaults when empty")
	fs.StringVar(&opts.journalDir, "journal", "", "directory for execution journal files")
	fs.StringVar(&opts.logLevel, "log-level", "error", "logx level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.action = strings.ToLower(strings.TrimSpace(opts.action))
	switch opts.action {
	case actionExecute, actionOpen, actionStatus, actionCancelAll:
	default:
		return nil, fmt.Errorf("unknown action %q", opts.action)
	}
	if opts.action != actionOpen && strings.TrimSpace(opts.symbol) == "" {
		return nil, errors.New("-symbol is required")
	}
	if opts.action == actionStatus && strings.TrimSpace(opts.orderID) == "" {
		return nil, errors.New("-order-id is required for status")
	}

	var err error
	if opts.action == actionExecute {
		if opts.quantity, err = decimal.NewFromString(strings.TrimSpace(qty)); err != nil {
			return nil, fmt.Errorf("invalid -qty %q", qty)
		}
	}
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{{"price", price, &opts.price}, {"tp", tp, &opts.takeProfit}, {"sl", sl, &opts.stopLoss}} {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		if *f.dst, err = decimal.NewFromString(strings.TrimSpace(f.raw)); err != nil {
			return nil, fmt.Errorf("invalid -%s %q", f.name, f.raw)
		}
	}
	return opts, nil
}

func (o *options) intent() executor.Intent {
	return executor.Intent{
		Symbol:     o.symbol,
		Side:       exchange.ParseSide(o.side),
		Quantity:   o.quantity,
		Leverage:   o.leverage,
		MarginMode: exchange.MarginMode(strings.ToUpper(o.marginMode)),
		Type:       exchange.OrderType(strings.ToUpper(o.orderType)),
		Price:      o.price,
	}
}

// run performs the requested action and prints its JSON result. The bool
// reports whether an execution succeeded; query actions always report true.
func run(ctx context.Context, opts *options, gw exchange.Gateway, out io.Writer) (bool, error) {
	cfg := executor.DefaultConfig()
	if opts.executorPath != "" {
		loaded, err := executor.LoadConfig(opts.executorPath)
		if err != nil {
			return false, err
		}
		cfg = loaded
	}
	var engineOpts []executor.Option
	if opts.journalDir != "" {
		engineOpts = append(engineOpts, executor.WithRecorder(journal.NewWriter(opts.journalDir)))
	}
	engine, err := executor.NewEngine(gw, cfg, engineOpts...)
	if err != nil {
		return false, err
	}

	var (
		payload any
		ok      = true
	)
	switch opts.action {
	case actionOpen:
		payload, err = engine.GetOpenOrders(ctx, opts.symbol)
	case actionStatus:
		payload, err = engine.GetOrderDetails(ctx, opts.symbol, opts.orderID)
	case actionCancelAll:
		res, cancelErr := engine.CancelAllOrders(ctx, opts.symbol)
		if res == nil {
			err = cancelErr
		}
		payload, ok = res, cancelErr == nil
	default:
		if opts.takeProfit.IsPositive() || opts.stopLoss.IsPositive() {
			orchestrator, bErr := bracket.New(engine, bracket.WithValidation())
			if bErr != nil {
				return false, bErr
			}
			res := orchestrator.Execute(ctx, opts.intent(), bracket.ExitPlan{TakeProfit: opts.takeProfit, StopLoss: opts.stopLoss})
			payload, ok = res, res.Success
		} else {
			res := engine.Execute(ctx, opts.intent())
			payload, ok = res, res.Success
		}
	}
	if err != nil {
		return false, err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return false, fmt.Errorf("encode result: %w", err)
	}
	return ok, nil
}
