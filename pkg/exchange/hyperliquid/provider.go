package hyperliquid

import (
	"net/http"

	"tradegate/pkg/exchange"
)

var _ exchange.Gateway = (*Client)(nil)

func init() {
	exchange.RegisterGateway(exchange.VariantHyperliquid, func(cfg exchange.GatewayConfig) (exchange.Gateway, error) {
		opts := []ClientOption{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		if cfg.VaultAddress != "" {
			opts = append(opts, WithVaultAddress(cfg.VaultAddress))
		}
		if cfg.MainAddress != "" {
			opts = append(opts, WithMainAddress(cfg.MainAddress))
		}
		return NewClient(cfg.PrivateKey, cfg.Testnet, opts...)
	})
}
