package sim

import (
	"tradegate/pkg/exchange"
)

var _ exchange.Gateway = (*Gateway)(nil)

// Registry hook for exchange.New.
func init() {
	exchange.RegisterGateway(exchange.VariantSim, func(cfg exchange.GatewayConfig) (exchange.Gateway, error) {
		return New(), nil
	})
}
