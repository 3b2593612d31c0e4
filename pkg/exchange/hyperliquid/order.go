package hyperliquid

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradegate/pkg/exchange"
)

var (
	errInvalidSize  = errors.New("hyperliquid: size must be positive")
	errInvalidPrice = errors.New("hyperliquid: price must be positive")
)

// PlaceOrder translates a canonical order into a signed "order" action.
func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	coin := coinFromSymbol(req.Symbol)
	if coin == "" {
		return nil, errors.New("hyperliquid: symbol is required")
	}
	if !req.Side.Valid() {
		return nil, fmt.Errorf("hyperliquid: invalid side %q", req.Side)
	}
	info, err := c.GetAssetInfo(ctx, coin)
	if err != nil {
		return nil, err
	}

	size := exchange.ParseDecimal(req.Quantity)
	if size.IsZero() && req.ClosePosition {
		if size, err = c.closingSize(ctx, coin); err != nil {
			return nil, err
		}
	}
	if !size.IsPositive() {
		return nil, errInvalidSize
	}

	payload := orderPayload{
		Asset:      info.Index,
		IsBuy:      req.Side == exchange.SideBuy,
		Sz:         c.FormatQuantity(size, coin),
		ReduceOnly: req.ReduceOnly || req.ClosePosition,
		Cloid:      cloidFor(req.ClientOrderID),
	}

	switch req.Type {
	case exchange.OrderTypeMarket, "":
		mark, err := c.markPrice(ctx, coin)
		if err != nil {
			return nil, err
		}
		payload.LimitPx = c.FormatPrice(c.slipped(mark, payload.IsBuy), coin)
		payload.OrderType = orderTypePayload{Limit: &limitOrderPayload{TIF: "Ioc"}}
	case exchange.OrderTypeLimit:
		price := exchange.ParseDecimal(req.Price)
		if !price.IsPositive() {
			return nil, errInvalidPrice
		}
		tif, err := mapTimeInForce(req.TimeInForce)
		if err != nil {
			return nil, err
		}
		payload.LimitPx = c.FormatPrice(price, coin)
		payload.OrderType = orderTypePayload{Limit: &limitOrderPayload{TIF: tif}}
	case exchange.OrderTypeStopMarket, exchange.OrderTypeTakeProfitMarket:
		trigger := exchange.ParseDecimal(req.StopPrice)
		if !trigger.IsPositive() {
			return nil, fmt.Errorf("hyperliquid: %s requires a positive stop price", req.Type)
		}
		tpsl := "sl"
		if req.Type == exchange.OrderTypeTakeProfitMarket {
			tpsl = "tp"
		}
		payload.LimitPx = c.FormatPrice(c.slipped(trigger, payload.IsBuy), coin)
		payload.OrderType = orderTypePayload{Trigger: &triggerOrderPayload{
			IsMarket:  true,
			TriggerPx: c.FormatPrice(trigger, coin),
			Tpsl:      tpsl,
		}}
	default:
		return nil, fmt.Errorf("hyperliquid: unsupported order type %q", req.Type)
	}

	action := Action{Type: ActionTypeOrder, Orders: []orderPayload{payload}, Grouping: "na"}
	resp, err := c.doExchangeRequest(ctx, action)
	if err != nil {
		return nil, err
	}
	if len(resp.Statuses) == 0 {
		return nil, exchange.WrapVenue(venueName, "order", errors.New("empty order status"))
	}

	now := c.clock()
	result := &exchange.OrderResult{
		ClientOrderID: payload.Cloid,
		Symbol:        coin,
		Side:          req.Side,
		Type:          req.Type,
		Price:         payload.LimitPx,
		AvgPrice:      "0",
		StopPrice:     req.StopPrice,
		OrigQty:       payload.Sz,
		ExecutedQty:   "0",
		ReduceOnly:    payload.ReduceOnly,
		ClosePosition: req.ClosePosition,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if result.Type == "" {
		result.Type = exchange.OrderTypeMarket
	}
	status := resp.Statuses[0]
	switch {
	case status.Error != "":
		return nil, exchange.WrapVenue(venueName, "order", errors.New(status.Error))
	case status.Filled != nil:
		result.OrderID = strconv.FormatInt(status.Filled.Oid, 10)
		result.Status = exchange.StatusFilled
		result.ExecutedQty = exchange.OrZero(status.Filled.TotalSz)
		result.AvgPrice = exchange.OrZero(status.Filled.AvgPx)
	case status.Resting != nil:
		result.OrderID = strconv.FormatInt(status.Resting.Oid, 10)
		result.Status = exchange.StatusNew
	default:
		return nil, exchange.WrapVenue(venueName, "order", errors.New("unrecognised order status"))
	}
	return result, nil
}

// CancelOrder cancels a single resting order by oid.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	oid, err := parseOid(orderID)
	if err != nil {
		return err
	}
	asset, err := c.GetAssetIndex(ctx, symbol)
	if err != nil {
		return err
	}
	resp, err := c.doExchangeRequest(ctx, Action{
		Type:    ActionTypeCancel,
		Cancels: []cancelPayload{{Asset: asset, Oid: oid}},
	})
	if err != nil {
		return err
	}
	if len(resp.Statuses) > 0 && resp.Statuses[0].Error != "" {
		return exchange.WrapVenue(venueName, "cancel", errors.New(resp.Statuses[0].Error))
	}
	return nil
}

// CancelAllOrders cancels every open order on symbol concurrently.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) (*exchange.CancelAllResult, error) {
	return exchange.CancelOpenOrders(ctx, c, coinFromSymbol(symbol))
}

// GetOpenOrders returns resting orders, restricted to symbol when non-empty.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]exchange.OrderResult, error) {
	var raw []openOrder
	if err := c.doInfoRequest(ctx, InfoRequest{Type: "frontendOpenOrders", User: c.infoAddress()}, &raw); err != nil {
		return nil, err
	}
	coin := ""
	if strings.TrimSpace(symbol) != "" {
		coin = coinFromSymbol(symbol)
	}
	results := make([]exchange.OrderResult, 0, len(raw))
	for _, o := range raw {
		if coin != "" && canonicalAssetKey(o.Coin) != coin {
			continue
		}
		results = append(results, toOrderResult(o, "open", o.Timestamp))
	}
	return results, nil
}

// GetOrderStatus looks up a single order by oid.
func (c *Client) GetOrderStatus(ctx context.Context, symbol, orderID string) (*exchange.OrderResult, error) {
	oid, err := parseOid(orderID)
	if err != nil {
		return nil, err
	}
	var resp orderStatusResponse
	if err := c.doInfoRequest(ctx, InfoRequest{Type: "orderStatus", User: c.infoAddress(), Oid: oid}, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "order" || resp.Order == nil {
		return nil, exchange.WrapVenue(venueName, "orderStatus", fmt.Errorf("order %s not found", orderID))
	}
	result := toOrderResult(resp.Order.Order, resp.Order.Status, resp.Order.StatusTimestamp)
	return &result, nil
}

func toOrderResult(o openOrder, status string, updated int64) exchange.OrderResult {
	orig := exchange.ParseDecimal(o.OrigSz)
	remaining := exchange.ParseDecimal(o.Sz)
	if orig.IsZero() {
		orig = remaining
	}
	executed := orig.Sub(remaining)
	if executed.IsNegative() {
		executed = decimal.Zero
	}
	side := exchange.SideBuy
	if o.Side == "A" {
		side = exchange.SideSell
	}
	return exchange.OrderResult{
		OrderID:       strconv.FormatInt(o.Oid, 10),
		ClientOrderID: o.Cloid,
		Symbol:        o.Coin,
		Status:        mapOrderStatus(status, executed),
		Side:          side,
		Type:          mapOrderType(o.OrderType),
		Price:         exchange.OrZero(o.LimitPx),
		AvgPrice:      "0",
		StopPrice:     o.TriggerPx,
		OrigQty:       orig.String(),
		ExecutedQty:   executed.String(),
		ReduceOnly:    o.ReduceOnly,
		CreatedAt:     time.UnixMilli(o.Timestamp),
		UpdatedAt:     time.UnixMilli(updated),
	}
}

func mapOrderStatus(status string, executed decimal.Decimal) string {
	switch strings.ToLower(status) {
	case "open":
		if executed.IsPositive() {
			return exchange.StatusPartiallyFilled
		}
		return exchange.StatusNew
	case "filled":
		return exchange.StatusFilled
	case "canceled", "margincanceled":
		return exchange.StatusCanceled
	case "rejected":
		return exchange.StatusRejected
	default:
		return strings.ToUpper(status)
	}
}

func mapOrderType(raw string) exchange.OrderType {
	switch {
	case strings.HasPrefix(raw, "Take Profit"):
		return exchange.OrderTypeTakeProfitMarket
	case strings.HasPrefix(raw, "Stop"):
		return exchange.OrderTypeStopMarket
	case raw == "Market":
		return exchange.OrderTypeMarket
	default:
		return exchange.OrderTypeLimit
	}
}

func mapTimeInForce(tif exchange.TimeInForce) (string, error) {
	switch tif {
	case "", exchange.TimeInForceGTC:
		return "Gtc", nil
	case exchange.TimeInForceIOC:
		return "Ioc", nil
	case exchange.TimeInForceGTX:
		return "Alo", nil
	default:
		return "", fmt.Errorf("hyperliquid: time in force %q not supported", tif)
	}
}

// slipped moves price against the taker so an IOC limit crosses the book.
func (c *Client) slipped(price decimal.Decimal, isBuy bool) decimal.Decimal {
	slip := decimal.NewFromFloat(c.slippage)
	if isBuy {
		return price.Mul(decimal.NewFromInt(1).Add(slip))
	}
	return price.Mul(decimal.NewFromInt(1).Sub(slip))
}

func (c *Client) markPrice(ctx context.Context, coin string) (decimal.Decimal, error) {
	ticker, err := c.GetTicker(ctx, coin)
	if err != nil {
		return decimal.Zero, err
	}
	mark := exchange.ParseDecimal(ticker.MarkPrice)
	if !mark.IsPositive() {
		mark = ticker.Price()
	}
	if !mark.IsPositive() {
		return decimal.Zero, fmt.Errorf("hyperliquid: no mark price for %s", coin)
	}
	return mark, nil
}

func (c *Client) closingSize(ctx context.Context, coin string) (decimal.Decimal, error) {
	positions, err := c.GetPositions(ctx, coin)
	if err != nil {
		return decimal.Zero, err
	}
	if len(positions) > 0 {
		return positions[0].Amount().Abs(), nil
	}
	return decimal.Zero, fmt.Errorf("hyperliquid: no open %s position to close", coin)
}

// cloidFor returns a 16-byte hex client order id. Ids already in that form
// pass through; other caller ids are mapped deterministically.
func cloidFor(clientOrderID string) string {
	id := strings.TrimSpace(clientOrderID)
	if id == "" {
		u := uuid.New()
		return "0x" + hex.EncodeToString(u[:])
	}
	if raw := strings.TrimPrefix(strings.ToLower(id), "0x"); len(raw) == 32 && strings.HasPrefix(strings.ToLower(id), "0x") {
		if _, err := hex.DecodeString(raw); err == nil {
			return "0x" + raw
		}
	}
	u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
	return "0x" + hex.EncodeToString(u[:])
}

func parseOid(orderID string) (int64, error) {
	oid, err := strconv.ParseInt(strings.TrimSpace(orderID), 10, 64)
	if err != nil || oid <= 0 {
		return 0, fmt.Errorf("hyperliquid: invalid order id %q", orderID)
	}
	return oid, nil
}
