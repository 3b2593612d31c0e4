package types

import (
	"tradegate/pkg/exchange"
	"tradegate/pkg/executor"
)

type OrderIntent struct {
	Gateway       string `json:"gateway,optional"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Quantity      string `json:"quantity"`
	Leverage      int    `json:"leverage,optional"`
	MarginMode    string `json:"marginMode,optional"`
	Type          string `json:"type,optional"`
	Price         string `json:"price,optional"`
	TimeInForce   string `json:"timeInForce,optional"`
	ReduceOnly    bool   `json:"reduceOnly,optional"`
	ClientOrderID string `json:"clientOrderId,optional"`
}

type BracketRequest struct {
	Order      OrderIntent `json:"order"`
	TakeProfit string      `json:"takeProfit,optional"`
	StopLoss   string      `json:"stopLoss,optional"`
}

type OpenOrdersRequest struct {
	Gateway string `form:"gateway,optional"`
	Symbol  string `form:"symbol,optional"`
}

type OpenOrdersResponse struct {
	Gateway string                 `json:"gateway"`
	Orders  []exchange.OrderResult `json:"orders"`
}

type OrderStatusRequest struct {
	Gateway string `form:"gateway,optional"`
	Symbol  string `form:"symbol"`
	OrderID string `form:"orderId"`
}

type CancelAllRequest struct {
	Gateway string `json:"gateway,optional"`
	Symbol  string `json:"symbol"`
}

type CancelBracketRequest struct {
	Gateway           string `json:"gateway,optional"`
	Symbol            string `json:"symbol"`
	TakeProfitOrderID string `json:"takeProfitOrderId,optional"`
	StopLossOrderID   string `json:"stopLossOrderId,optional"`
}

type CancelResponse struct {
	Gateway   string                   `json:"gateway"`
	Symbol    string                   `json:"symbol"`
	Cancelled []string                 `json:"cancelled"`
	Failed    []exchange.CancelFailure `json:"failed,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

type GatewayInfo struct {
	Name    string `json:"name"`
	Variant string `json:"variant"`
	Testnet bool   `json:"testnet"`
	Default bool   `json:"default"`
}

type GatewaysResponse struct {
	Default    string        `json:"default"`
	Configured []GatewayInfo `json:"configured"`
	Supported  []string      `json:"supported"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ExecutionsRequest struct {
	Gateway string `form:"gateway,optional"`
	Symbol  string `form:"symbol,optional"`
	Limit   int    `form:"limit,default=50"`
}

type ExecutionsResponse struct {
	Source     string                     `json:"source"`
	Executions []executor.ExecutionRecord `json:"executions"`
}
