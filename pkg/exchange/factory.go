package exchange

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Variant names a venue implementation.
type Variant string

const (
	VariantBinance     Variant = "binance"
	VariantHyperliquid Variant = "hyperliquid"
	// VariantSim is the in-memory paper venue.
	VariantSim Variant = "sim"
)

var knownVariants = []Variant{VariantBinance, VariantHyperliquid, VariantSim}

// GatewayConfig describes how to construct a gateway.
type GatewayConfig struct {
	Variant    Variant
	APIKey     string
	APISecret  string
	PrivateKey string
	Testnet    bool

	// Hyperliquid API-wallet setups.
	VaultAddress string
	MainAddress  string

	// Timeout bounds each HTTP round-trip; zero keeps the adapter default.
	Timeout time.Duration
}

// Builder constructs a gateway from a validated configuration.
type Builder func(cfg GatewayConfig) (Gateway, error)

var (
	gatewayRegistry   = make(map[Variant]Builder)
	gatewayRegistryMu sync.RWMutex
)

// RegisterGateway associates a builder with a variant. Adapters call it from init.
func RegisterGateway(variant Variant, builder Builder) {
	gatewayRegistryMu.Lock()
	defer gatewayRegistryMu.Unlock()
	gatewayRegistry[normaliseVariant(string(variant))] = builder
}

func lookupBuilder(variant Variant) (Builder, bool) {
	gatewayRegistryMu.RLock()
	defer gatewayRegistryMu.RUnlock()
	builder, ok := gatewayRegistry[variant]
	return builder, ok
}

// New validates cfg for its variant and constructs the gateway. Credential
// problems surface as *ConfigError before any network I/O.
func New(cfg GatewayConfig) (Gateway, error) {
	cfg.Variant = normaliseVariant(string(cfg.Variant))
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APISecret = strings.TrimSpace(cfg.APISecret)
	cfg.PrivateKey = strings.TrimSpace(cfg.PrivateKey)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	builder, ok := lookupBuilder(cfg.Variant)
	if !ok {
		return nil, fmt.Errorf("%w %q: adapter not linked", ErrUnsupportedVariant, cfg.Variant)
	}
	return builder(cfg)
}

// Validate checks that credentials match the variant.
func (c GatewayConfig) Validate() error {
	switch c.Variant {
	case VariantBinance:
		if c.APIKey == "" {
			return &ConfigError{Variant: c.Variant, Field: "api key"}
		}
		if c.APISecret == "" {
			return &ConfigError{Variant: c.Variant, Field: "api secret"}
		}
	case VariantHyperliquid:
		if c.PrivateKey == "" {
			return &ConfigError{Variant: c.Variant, Field: "private key"}
		}
	case VariantSim:
	case "":
		return &ConfigError{Variant: c.Variant, Reason: "variant must be specified"}
	default:
		return &ConfigError{Variant: c.Variant, Reason: fmt.Sprintf("is not supported (supported: %s)", joinVariants())}
	}
	if c.Timeout < 0 {
		return &ConfigError{Variant: c.Variant, Reason: "timeout must not be negative"}
	}
	return nil
}

// SupportedVariants lists every known variant in declaration order.
func SupportedVariants() []Variant {
	out := make([]Variant, len(knownVariants))
	copy(out, knownVariants)
	return out
}

// IsSupported reports whether name is a known variant (case-insensitive).
func IsSupported(name string) bool {
	v := normaliseVariant(name)
	for _, known := range knownVariants {
		if v == known {
			return true
		}
	}
	return false
}

// RegisteredVariants lists variants with a linked adapter, sorted.
func RegisteredVariants() []Variant {
	gatewayRegistryMu.RLock()
	defer gatewayRegistryMu.RUnlock()
	out := make([]Variant, 0, len(gatewayRegistry))
	for v := range gatewayRegistry {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func normaliseVariant(raw string) Variant {
	return Variant(strings.ToLower(strings.TrimSpace(raw)))
}

func joinVariants() string {
	names := make([]string, len(knownVariants))
	for i, v := range knownVariants {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
