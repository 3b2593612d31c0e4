package exchange

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tradegate/pkg/confkit"
)

// Config captures one or more named gateways.
type Config struct {
	Default  string                    `yaml:"default"`
	Gateways map[string]*GatewayEntry `yaml:"gateways"`
}

// GatewayEntry describes how to construct a named gateway instance.
type GatewayEntry struct {
	Type         string `yaml:"type"`
	PrivateKey   string `yaml:"private_key"`
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	VaultAddress string `yaml:"vault_address"`
	MainAddress  string `yaml:"main_address"` // main account when signing with an API wallet
	Testnet      bool   `yaml:"testnet"`

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exchange config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads etc/exchange.yaml from the project root and panics on error.
func MustLoad() *Config {
	path := confkit.MustProjectPath("etc/exchange.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read exchange config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal exchange config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	c.Default = strings.TrimSpace(os.ExpandEnv(c.Default))
	if c.Gateways == nil {
		c.Gateways = make(map[string]*GatewayEntry)
	}
	for name, entry := range c.Gateways {
		if entry == nil {
			entry = &GatewayEntry{}
			c.Gateways[name] = entry
		}
		entry.expandEnv()
		if err := entry.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (g *GatewayEntry) expandEnv() {
	g.Type = strings.TrimSpace(os.ExpandEnv(g.Type))
	g.PrivateKey = strings.TrimSpace(os.ExpandEnv(g.PrivateKey))
	g.APIKey = strings.TrimSpace(os.ExpandEnv(g.APIKey))
	g.APISecret = strings.TrimSpace(os.ExpandEnv(g.APISecret))
	g.VaultAddress = strings.TrimSpace(os.ExpandEnv(g.VaultAddress))
	g.MainAddress = strings.TrimSpace(os.ExpandEnv(g.MainAddress))
	g.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(g.TimeoutRaw))
}

func (g *GatewayEntry) parseDurations(name string) error {
	if g.TimeoutRaw == "" {
		g.Timeout = 0
		return nil
	}
	d, err := time.ParseDuration(g.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("exchange gateway %s: invalid timeout %q: %w", name, g.TimeoutRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("exchange gateway %s: timeout must be positive, got %s", name, d)
	}
	g.Timeout = d
	return nil
}

// GatewayConfig converts the entry into a factory input.
func (g *GatewayEntry) GatewayConfig() GatewayConfig {
	return GatewayConfig{
		Variant:      normaliseVariant(g.Type),
		APIKey:       g.APIKey,
		APISecret:    g.APISecret,
		PrivateKey:   g.PrivateKey,
		Testnet:      g.Testnet,
		VaultAddress: g.VaultAddress,
		MainAddress:  g.MainAddress,
		Timeout:      g.Timeout,
	}
}

// Validate ensures all gateways have sane configuration.
func (c *Config) Validate() error {
	if len(c.Gateways) == 0 {
		return fmt.Errorf("exchange config: gateways cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Gateways[c.Default]; !ok {
			return fmt.Errorf("exchange config: default gateway %q not defined", c.Default)
		}
	}
	for name, entry := range c.Gateways {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("exchange config: gateway name cannot be empty")
		}
		if entry.Type == "" {
			return fmt.Errorf("exchange config: gateway %s must specify type", name)
		}
		if err := entry.GatewayConfig().Validate(); err != nil {
			return fmt.Errorf("exchange config: gateway %s: %w", name, err)
		}
	}
	return nil
}

// BuildGateways instantiates every configured gateway. Gateways built before
// a failure are closed.
func (c *Config) BuildGateways() (map[string]Gateway, error) {
	result := make(map[string]Gateway, len(c.Gateways))
	for name, entry := range c.Gateways {
		gw, err := New(entry.GatewayConfig())
		if err != nil {
			for _, built := range result {
				_ = built.Close()
			}
			return nil, fmt.Errorf("exchange gateway %s: %w", name, err)
		}
		result[name] = gw
	}
	return result, nil
}

// DefaultName returns the configured default, or the only gateway when exactly one exists.
func (c *Config) DefaultName() string {
	if c.Default != "" || len(c.Gateways) != 1 {
		return c.Default
	}
	for name := range c.Gateways {
		return name
	}
	return ""
}
