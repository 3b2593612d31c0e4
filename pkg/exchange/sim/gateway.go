package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradegate/pkg/exchange"
)

const (
	venueName       = "sim"
	defaultLeverage = 20
	settleAsset     = "USDT"
)

var defaultInitialCash = decimal.NewFromInt(100000)

// Operation names accepted by FailNext.
const (
	OpGetServerTime   = "GetServerTime"
	OpSyncServerTime  = "SyncServerTime"
	OpGetAccountInfo  = "GetAccountInfo"
	OpGetPositions    = "GetPositions"
	OpGetTicker       = "GetTicker"
	OpPlaceOrder      = "PlaceOrder"
	OpCancelOrder     = "CancelOrder"
	OpGetOrderStatus  = "GetOrderStatus"
	OpGetOpenOrders   = "GetOpenOrders"
	OpGetUserTrades   = "GetUserTrades"
	OpSetLeverage     = "SetLeverage"
	OpSetMarginType   = "SetMarginType"
	OpCancelAllOrders = "CancelAllOrders"
)

var quoteAssets = []string{"USDT", "USDC"}

var precision = exchange.PrecisionTable{
	Quantity:        map[string]int32{"BTC": 3, "ETH": 3, "SOL": 2, "DOGE": 0},
	Price:           map[string]int32{"BTC": 1, "ETH": 2, "SOL": 3, "DOGE": 5},
	DefaultQuantity: 3,
	DefaultPrice:    2,
}

// Gateway is a paper-trading venue that keeps cash, positions and resting
// orders in memory. Market orders fill at the mark price; trigger orders
// rest until SetMarkPrice crosses their stop price.
type Gateway struct {
	mu sync.Mutex

	clock func() time.Time

	cash      decimal.Decimal
	available *decimal.Decimal

	marks     map[string]decimal.Decimal
	positions map[string]*positionState
	leverage  map[string]int
	margin    map[string]exchange.MarginMode

	orders   map[string]*simOrder
	trades   []exchange.UserTrade
	failures map[string][]error
	seq      int64
}

type simOrder struct {
	seq    int64
	result exchange.OrderResult
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithInitialCash sets the starting wallet balance.
func WithInitialCash(cash decimal.Decimal) Option {
	return func(g *Gateway) { g.cash = cash }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(g *Gateway) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// New constructs a simulator with a 100000 USDT wallet.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		clock:     time.Now,
		cash:      defaultInitialCash,
		marks:     make(map[string]decimal.Decimal),
		positions: make(map[string]*positionState),
		leverage:  make(map[string]int),
		margin:    make(map[string]exchange.MarginMode),
		orders:    make(map[string]*simOrder),
		failures:  make(map[string][]error),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements exchange.Gateway.
func (g *Gateway) Name() string { return venueName }

// Close implements exchange.Gateway. The simulator holds no resources.
func (g *Gateway) Close() error { return nil }

// ConvertSymbol maps "btc", "BTC-USDT" or "BTC/USDT" to "BTCUSDT".
func (g *Gateway) ConvertSymbol(symbol string) string {
	return canonical(symbol)
}

// FormatQuantity implements exchange.Gateway.
func (g *Gateway) FormatQuantity(qty decimal.Decimal, symbol string) string {
	return precision.FormatQuantity(qty, baseAsset(symbol))
}

// FormatPrice implements exchange.Gateway.
func (g *Gateway) FormatPrice(price decimal.Decimal, symbol string) string {
	return precision.FormatPrice(price, baseAsset(symbol))
}

// FailNext makes the next call of op return err. Failures queue per op.
func (g *Gateway) FailNext(op string, err error) {
	if err == nil {
		err = errors.New("injected failure")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[op] = append(g.failures[op], err)
}

// SetAvailableBalance pins the reported available balance, which also
// becomes the limit for margin checks on new exposure.
func (g *Gateway) SetAvailableBalance(balance decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.available = &balance
}

// ResetAvailableBalance returns to deriving the available balance from
// equity minus margin in use.
func (g *Gateway) ResetAvailableBalance() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.available = nil
}

// GetServerTime returns the simulator clock.
func (g *Gateway) GetServerTime(ctx context.Context) (time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpGetServerTime); err != nil {
		return time.Time{}, err
	}
	return g.clock(), nil
}

// SyncServerTime is a no-op; the simulator shares the caller's clock.
func (g *Gateway) SyncServerTime(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failureLocked(OpSyncServerTime)
}

// GetAccountInfo reports wallet, equity and margin figures.
func (g *Gateway) GetAccountInfo(ctx context.Context) (*exchange.AccountInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpGetAccountInfo); err != nil {
		return nil, err
	}
	snap := g.snapshotLocked()
	available := g.availableLocked(snap)
	return &exchange.AccountInfo{
		TotalBalance:          formatDecimal(g.cash),
		AvailableBalance:      formatDecimal(available),
		TotalUnrealizedProfit: formatDecimal(snap.unrealized),
		UpdateTime:            g.clock(),
		Details: &exchange.AccountDetails{
			WalletBalance:      formatDecimal(g.cash),
			MarginBalance:      formatDecimal(g.cash.Add(snap.unrealized)),
			TotalInitialMargin: formatDecimal(snap.margin),
			TotalMaintMargin:   "0",
			MaxWithdrawAmount:  formatDecimal(available),
			CrossWalletBalance: formatDecimal(g.cash),
		},
	}, nil
}

// GetPositions returns the open position on symbol, if any.
func (g *Gateway) GetPositions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpGetPositions); err != nil {
		return nil, err
	}
	want := canonical(symbol)
	out := make([]exchange.Position, 0, 1)
	for _, p := range g.snapshotLocked().positions {
		if p.Symbol == want {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetAllPositions returns every open position ordered by symbol.
func (g *Gateway) GetAllPositions(ctx context.Context) ([]exchange.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpGetPositions); err != nil {
		return nil, err
	}
	return g.snapshotLocked().positions, nil
}

// GetTicker reports the mark price as the last price. Symbols without a
// mark price have no market data.
func (g *Gateway) GetTicker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpGetTicker); err != nil {
		return nil, err
	}
	sym := canonical(symbol)
	mark, ok := g.marks[sym]
	if !ok {
		return nil, exchange.WrapVenue(venueName, "ticker", fmt.Errorf("no market data for %s", sym))
	}
	px := formatDecimal(mark)
	return &exchange.Ticker{
		Symbol:             sym,
		LastPrice:          px,
		MarkPrice:          px,
		OpenPrice:          px,
		HighPrice:          px,
		LowPrice:           px,
		Volume:             "0",
		QuoteVolume:        "0",
		PriceChangePercent: "0",
		Time:               g.clock(),
	}, nil
}

// SetLeverage stores the leverage used for margin on new exposure.
func (g *Gateway) SetLeverage(ctx context.Context, symbol string, leverage int) (*exchange.Ack, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpSetLeverage); err != nil {
		return nil, err
	}
	if leverage < 1 {
		return nil, exchange.WrapVenue(venueName, "leverage", fmt.Errorf("leverage must be at least 1, got %d", leverage))
	}
	sym := canonical(symbol)
	g.leverage[sym] = leverage
	return &exchange.Ack{Symbol: sym, Applied: true, Message: "leverage set to " + strconv.Itoa(leverage) + "x"}, nil
}

// SetMarginType stores the margin mode. Re-applying the current mode is
// acknowledged the way a venue reports "No need to change margin type".
func (g *Gateway) SetMarginType(ctx context.Context, symbol string, mode exchange.MarginMode) (*exchange.Ack, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failureLocked(OpSetMarginType); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, exchange.WrapVenue(venueName, "marginType", fmt.Errorf("invalid margin mode %q", mode))
	}
	sym := canonical(symbol)
	if g.marginLocked(sym) == mode {
		return &exchange.Ack{Symbol: sym, Applied: false, Message: "No need to change margin type"}, nil
	}
	if state := g.positions[sym]; state != nil && !state.qty.IsZero() {
		return nil, exchange.WrapVenue(venueName, "marginType", errors.New("margin type cannot be changed with an open position"))
	}
	g.margin[sym] = mode
	return &exchange.Ack{Symbol: sym, Applied: true, Message: "margin type set to " + string(mode)}, nil
}

func (g *Gateway) failureLocked(op string) error {
	queue := g.failures[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	if len(queue) == 1 {
		delete(g.failures, op)
	} else {
		g.failures[op] = queue[1:]
	}
	return exchange.WrapVenue(venueName, op, err)
}

func (g *Gateway) leverageLocked(symbol string) int {
	if lev, ok := g.leverage[symbol]; ok && lev > 0 {
		return lev
	}
	return defaultLeverage
}

func (g *Gateway) marginLocked(symbol string) exchange.MarginMode {
	if mode, ok := g.margin[symbol]; ok {
		return mode
	}
	return exchange.MarginCrossed
}

func (g *Gateway) availableLocked(snap accountSnapshot) decimal.Decimal {
	if g.available != nil {
		return *g.available
	}
	free := g.cash.Add(snap.unrealized).Sub(snap.margin)
	if free.IsNegative() {
		return decimal.Zero
	}
	return free
}

func canonical(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
	if s == "" {
		return s
	}
	for _, quote := range quoteAssets {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}
	return s + "USDT"
}

func baseAsset(symbol string) string {
	pair := canonical(symbol)
	for _, quote := range quoteAssets {
		if base := strings.TrimSuffix(pair, quote); base != pair && base != "" {
			return base
		}
	}
	return pair
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(8).String()
}

func sortPositions(positions []exchange.Position) {
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
}
