package hyperliquid

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ActionType enumerates supported exchange actions.
type ActionType string

const (
	ActionTypeOrder          ActionType = "order"
	ActionTypeCancel         ActionType = "cancel"
	ActionTypeUpdateLeverage ActionType = "updateLeverage"
)

// Action encodes the payload sent to the exchange endpoint. Field order is
// significant: it fixes the msgpack key order used for the connection id.
type Action struct {
	Type     ActionType      `json:"type" msgpack:"type"`
	Orders   []orderPayload  `json:"orders,omitempty" msgpack:"orders,omitempty"`
	Cancels  []cancelPayload `json:"cancels,omitempty" msgpack:"cancels,omitempty"`
	Grouping string          `json:"grouping,omitempty" msgpack:"grouping,omitempty"`
	Asset    *int            `json:"asset,omitempty" msgpack:"asset,omitempty"`
	IsCross  *bool           `json:"isCross,omitempty" msgpack:"isCross,omitempty"`
	Leverage int             `json:"leverage,omitempty" msgpack:"leverage,omitempty"`
}

type orderPayload struct {
	Asset      int              `json:"a" msgpack:"a"`
	IsBuy      bool             `json:"b" msgpack:"b"`
	LimitPx    string           `json:"p" msgpack:"p"`
	Sz         string           `json:"s" msgpack:"s"`
	ReduceOnly bool             `json:"r" msgpack:"r"`
	OrderType  orderTypePayload `json:"t" msgpack:"t"`
	Cloid      string           `json:"c,omitempty" msgpack:"c,omitempty"`
}

type orderTypePayload struct {
	Limit   *limitOrderPayload   `json:"limit,omitempty" msgpack:"limit,omitempty"`
	Trigger *triggerOrderPayload `json:"trigger,omitempty" msgpack:"trigger,omitempty"`
}

type limitOrderPayload struct {
	TIF string `json:"tif" msgpack:"tif"`
}

type triggerOrderPayload struct {
	IsMarket  bool   `json:"isMarket" msgpack:"isMarket"`
	TriggerPx string `json:"triggerPx" msgpack:"triggerPx"`
	Tpsl      string `json:"tpsl" msgpack:"tpsl"`
}

type cancelPayload struct {
	Asset int   `json:"a" msgpack:"a"`
	Oid   int64 `json:"o" msgpack:"o"`
}

// ExchangeRequest is the signed request envelope for exchange actions.
type ExchangeRequest struct {
	Action       Action    `json:"action"`
	Nonce        int64     `json:"nonce"`
	Signature    Signature `json:"signature"`
	VaultAddress string    `json:"vaultAddress,omitempty"`
}

// Signature represents an ECDSA signature.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// InfoRequest targets read-only endpoints that do not require signatures.
type InfoRequest struct {
	Type      string `json:"type"`
	User      string `json:"user,omitempty"`
	Oid       any    `json:"oid,omitempty"`
	StartTime int64  `json:"startTime,omitempty"`
	EndTime   int64  `json:"endTime,omitempty"`
}

// exchangeResponse is the envelope returned by /exchange. On failure the
// venue replies {"status":"err","response":"<message>"}.
type exchangeResponse struct {
	Status   string
	Type     string
	Statuses []actionStatus
	Message  string
}

func (r *exchangeResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status   string          `json:"status"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Status = raw.Status
	if len(raw.Response) == 0 || string(raw.Response) == "null" {
		return nil
	}
	if raw.Response[0] == '"' {
		return json.Unmarshal(raw.Response, &r.Message)
	}
	var body struct {
		Type string `json:"type"`
		Data struct {
			Statuses []actionStatus `json:"statuses"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw.Response, &body); err != nil {
		return err
	}
	r.Type = body.Type
	r.Statuses = body.Data.Statuses
	return nil
}

// Err returns the venue rejection, if any.
func (r *exchangeResponse) Err() error {
	if strings.EqualFold(r.Status, "ok") {
		return nil
	}
	if r.Message != "" {
		return errors.New(r.Message)
	}
	return fmt.Errorf("status %q", r.Status)
}

// actionStatus is one entry of response.data.statuses: either the bare string
// "success" (cancels) or an object describing the order outcome.
type actionStatus struct {
	Success bool
	Resting *restingOrder
	Filled  *filledOrder
	Error   string
}

type restingOrder struct {
	Oid   int64  `json:"oid"`
	Cloid string `json:"cloid,omitempty"`
}

type filledOrder struct {
	TotalSz string `json:"totalSz"`
	AvgPx   string `json:"avgPx"`
	Oid     int64  `json:"oid"`
	Cloid   string `json:"cloid,omitempty"`
}

func (s *actionStatus) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		s.Success = text == "success"
		if !s.Success {
			s.Error = text
		}
		return nil
	}
	var obj struct {
		Resting *restingOrder `json:"resting"`
		Filled  *filledOrder  `json:"filled"`
		Error   string        `json:"error"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Resting, s.Filled, s.Error = obj.Resting, obj.Filled, obj.Error
	s.Success = obj.Error == ""
	return nil
}

// clearinghouseState is the perpetuals account summary.
type clearinghouseState struct {
	MarginSummary              marginSummary   `json:"marginSummary"`
	CrossMarginSummary         marginSummary   `json:"crossMarginSummary"`
	CrossMaintenanceMarginUsed string          `json:"crossMaintenanceMarginUsed"`
	Withdrawable               string          `json:"withdrawable"`
	AssetPositions             []assetPosition `json:"assetPositions"`
	Time                       int64           `json:"time"`
}

type marginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalMarginUsed string `json:"totalMarginUsed"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUSD     string `json:"totalRawUsd"`
}

type assetPosition struct {
	Type     string       `json:"type"`
	Position positionData `json:"position"`
}

type positionData struct {
	Coin           string       `json:"coin"`
	Szi            string       `json:"szi"`
	EntryPx        *string      `json:"entryPx"`
	PositionValue  string       `json:"positionValue"`
	UnrealizedPnl  string       `json:"unrealizedPnl"`
	ReturnOnEquity string       `json:"returnOnEquity"`
	LiquidationPx  *string      `json:"liquidationPx"`
	MarginUsed     string       `json:"marginUsed"`
	MaxLeverage    int          `json:"maxLeverage"`
	Leverage       leverageInfo `json:"leverage"`
}

type leverageInfo struct {
	Type   string `json:"type"` // "cross" or "isolated"
	Value  int    `json:"value"`
	RawUsd string `json:"rawUsd,omitempty"`
}

// openOrder mirrors frontendOpenOrders entries and orderStatus.order.order.
type openOrder struct {
	Coin       string `json:"coin"`
	Side       string `json:"side"` // "B" bid, "A" ask
	LimitPx    string `json:"limitPx"`
	Sz         string `json:"sz"`
	OrigSz     string `json:"origSz"`
	Oid        int64  `json:"oid"`
	Timestamp  int64  `json:"timestamp"`
	Cloid      string `json:"cloid"`
	ReduceOnly bool   `json:"reduceOnly"`
	OrderType  string `json:"orderType"`
	IsTrigger  bool   `json:"isTrigger"`
	TriggerPx  string `json:"triggerPx"`
	Tif        string `json:"tif"`
}

type orderStatusResponse struct {
	Status string `json:"status"` // "order" or "unknownOid"
	Order  *struct {
		Order           openOrder `json:"order"`
		Status          string    `json:"status"`
		StatusTimestamp int64     `json:"statusTimestamp"`
	} `json:"order"`
}

type userFill struct {
	Coin          string `json:"coin"`
	Px            string `json:"px"`
	Sz            string `json:"sz"`
	Side          string `json:"side"`
	Time          int64  `json:"time"`
	StartPosition string `json:"startPosition"`
	Dir           string `json:"dir"`
	ClosedPnl     string `json:"closedPnl"`
	Hash          string `json:"hash"`
	Oid           int64  `json:"oid"`
	Crossed       bool   `json:"crossed"`
	Fee           string `json:"fee"`
	Tid           int64  `json:"tid"`
	FeeToken      string `json:"feeToken"`
}

// MetaAndAssetCtxsResponse includes universe meta plus per-asset context.
type MetaAndAssetCtxsResponse struct {
	Universe  []AssetUniverseEntry `json:"universe"`
	AssetCtxs []AssetCtx           `json:"assetCtxs"`
}

// UnmarshalJSON accepts both the object and the [meta, ctxs] array forms.
func (m *MetaAndAssetCtxsResponse) UnmarshalJSON(data []byte) error {
	type alias MetaAndAssetCtxsResponse
	var object alias
	if err := json.Unmarshal(data, &object); err == nil && (len(object.Universe) > 0 || len(object.AssetCtxs) > 0) {
		m.Universe = object.Universe
		m.AssetCtxs = object.AssetCtxs
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("hyperliquid: metaAndAssetCtxs decode: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("hyperliquid: metaAndAssetCtxs empty payload")
	}
	var universeHolder struct {
		Universe []AssetUniverseEntry `json:"universe"`
	}
	if err := json.Unmarshal(raw[0], &universeHolder); err != nil {
		return fmt.Errorf("hyperliquid: metaAndAssetCtxs universe: %w", err)
	}
	m.Universe = universeHolder.Universe
	if len(raw) > 1 {
		if err := json.Unmarshal(raw[1], &m.AssetCtxs); err != nil {
			return fmt.Errorf("hyperliquid: metaAndAssetCtxs assetCtxs: %w", err)
		}
	}
	return nil
}

// AssetUniverseEntry describes asset listing info from the meta endpoint.
type AssetUniverseEntry struct {
	Name         string  `json:"name"`
	SzDecimals   int     `json:"szDecimals"`
	MaxLeverage  float64 `json:"maxLeverage"`
	OnlyIsolated bool    `json:"onlyIsolated"`
	IsDelisted   bool    `json:"isDelisted"`
}

// AssetCtx provides contextual info such as funding and mark price.
type AssetCtx struct {
	Funding      string   `json:"funding"`
	OpenInterest string   `json:"openInterest"`
	PrevDayPx    string   `json:"prevDayPx"`
	DayNtlVlm    string   `json:"dayNtlVlm"`
	DayBaseVlm   string   `json:"dayBaseVlm"`
	Premium      string   `json:"premium"`
	OraclePx     string   `json:"oraclePx"`
	MarkPx       string   `json:"markPx"`
	MidPx        string   `json:"midPx"`
	ImpactPxs    []string `json:"impactPxs"`
}

// AssetInfo aggregates convenience metadata for trading use cases.
type AssetInfo struct {
	Name         string
	Index        int
	SzDecimals   int
	MaxLeverage  float64
	OnlyIsolated bool
	IsDelisted   bool
	Ctx          AssetCtx
}
