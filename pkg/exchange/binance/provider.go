package binance

import (
	"net/http"

	"tradegate/pkg/exchange"
)

var _ exchange.Gateway = (*Client)(nil)

func init() {
	exchange.RegisterGateway(exchange.VariantBinance, func(cfg exchange.GatewayConfig) (exchange.Gateway, error) {
		opts := []ClientOption{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		return NewClient(cfg.APIKey, cfg.APISecret, cfg.Testnet, opts...)
	})
}
