package exchange_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exchange "tradegate/pkg/exchange"
	_ "tradegate/pkg/exchange/binance"
	_ "tradegate/pkg/exchange/hyperliquid"
	_ "tradegate/pkg/exchange/sim"
)

const testPrivateKey = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a741b52d7c5d5095e2f"

func TestLoadConfigAndBuildGateways(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("EXCHANGE_PRIVATE_KEY", testPrivateKey)
	t.Setenv("EXCHANGE_BINANCE_KEY", "key")
	t.Setenv("EXCHANGE_BINANCE_SECRET", "secret")

	configYAML := `
default: hyperliquid_main
gateways:
  hyperliquid_main:
    type: hyperliquid
    private_key: ${EXCHANGE_PRIVATE_KEY}
    timeout: 45s
    testnet: true
    vault_address: 0x0000000000000000000000000000000000000000
  binance_main:
    type: binance
    api_key: ${EXCHANGE_BINANCE_KEY}
    api_secret: ${EXCHANGE_BINANCE_SECRET}
    testnet: true
  paper:
    type: sim
`
	path := filepath.Join(dir, "exchange.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := exchange.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "hyperliquid_main", cfg.Default)
	assert.Equal(t, 45*time.Second, cfg.Gateways["hyperliquid_main"].Timeout)
	assert.Equal(t, "key", cfg.Gateways["binance_main"].APIKey)

	gateways, err := cfg.BuildGateways()
	require.NoError(t, err)
	require.Len(t, gateways, 3)
	assert.Equal(t, "hyperliquid", gateways["hyperliquid_main"].Name())
	assert.Equal(t, "binance", gateways["binance_main"].Name())
	assert.Equal(t, "sim", gateways["paper"].Name())
	for _, gw := range gateways {
		assert.NoError(t, gw.Close())
	}
}

func TestLoadConfigRequiresPrivateKey(t *testing.T) {
	configYAML := `
gateways:
  hyperliquid_main:
    type: hyperliquid
`
	_, err := exchange.LoadConfigFromReader(strings.NewReader(configYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key")
}

func TestLoadConfigRejectsUnknownDefault(t *testing.T) {
	configYAML := `
default: missing
gateways:
  paper:
    type: sim
`
	_, err := exchange.LoadConfigFromReader(strings.NewReader(configYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `default gateway "missing"`)
}

func TestLoadConfigInvalidTimeout(t *testing.T) {
	configYAML := `
gateways:
  paper:
    type: sim
    timeout: soon
`
	_, err := exchange.LoadConfigFromReader(strings.NewReader(configYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout")
}

func TestConfigDefaultName(t *testing.T) {
	cfg, err := exchange.LoadConfigFromReader(strings.NewReader("gateways:\n  paper:\n    type: sim\n"))
	require.NoError(t, err)
	assert.Equal(t, "paper", cfg.DefaultName())
}
