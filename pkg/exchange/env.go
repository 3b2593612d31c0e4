package exchange

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"tradegate/pkg/confkit"
)

// EnvConfig lists the environment inputs consulted by NewFromEnv.
type EnvConfig struct {
	Type    string        `envconfig:"EXCHANGE_TYPE" default:"binance"`
	Testnet bool          `envconfig:"EXCHANGE_TESTNET" default:"false"`
	Timeout time.Duration `envconfig:"EXCHANGE_TIMEOUT" default:"0s"`

	Binance struct {
		APIKey    string `envconfig:"BINANCE_API_KEY"`
		APISecret string `envconfig:"BINANCE_API_SECRET"`
		Testnet   bool   `envconfig:"BINANCE_TESTNET" default:"false"`
	}

	Hyperliquid struct {
		PrivateKey   string `envconfig:"HYPERLIQUID_PRIVATE_KEY"`
		VaultAddress string `envconfig:"HYPERLIQUID_VAULT_ADDRESS"`
		MainAddress  string `envconfig:"HYPERLIQUID_MAIN_ADDRESS"`
		Testnet      bool   `envconfig:"HYPERLIQUID_TESTNET" default:"false"`
	}
}

// LoadEnvConfig reads EnvConfig after loading .env once.
func LoadEnvConfig() (*EnvConfig, error) {
	confkit.LoadDotenvOnce()
	var env EnvConfig
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("exchange env: %w", err)
	}
	return &env, nil
}

// GatewayConfig resolves the variant and its credentials. Each variant honours
// its own testnet flag in addition to EXCHANGE_TESTNET.
func (e *EnvConfig) GatewayConfig() GatewayConfig {
	cfg := GatewayConfig{
		Variant: normaliseVariant(e.Type),
		Timeout: e.Timeout,
	}
	if cfg.Variant == "" {
		cfg.Variant = VariantBinance
	}
	switch cfg.Variant {
	case VariantBinance:
		cfg.APIKey = e.Binance.APIKey
		cfg.APISecret = e.Binance.APISecret
		cfg.Testnet = e.Binance.Testnet || e.Testnet
	case VariantHyperliquid:
		cfg.PrivateKey = e.Hyperliquid.PrivateKey
		cfg.VaultAddress = e.Hyperliquid.VaultAddress
		cfg.MainAddress = e.Hyperliquid.MainAddress
		cfg.Testnet = e.Hyperliquid.Testnet || e.Testnet
	default:
		cfg.Testnet = e.Testnet
	}
	return cfg
}

// NewFromEnv builds a gateway from environment variables.
func NewFromEnv() (Gateway, error) {
	env, err := LoadEnvConfig()
	if err != nil {
		return nil, err
	}
	return New(env.GatewayConfig())
}
