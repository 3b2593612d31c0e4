package executor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tradegate/pkg/confkit"
)

// Config controls the thresholds of the execution pipeline.
type Config struct {
	// FallbackPrice is used for margin arithmetic when the ticker is unavailable.
	FallbackPrice       float64  `yaml:"fallback_price"`
	AutoAdjustThreshold float64  `yaml:"auto_adjust_threshold"`
	SafetyFactor        float64  `yaml:"safety_factor"`
	HighUsageRatio      float64  `yaml:"high_usage_ratio"`
	MinNotional         float64  `yaml:"min_notional"`
	BenignMarginErrors  []string `yaml:"benign_margin_errors"`
	DefaultLeverage     int      `yaml:"default_leverage"`

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

var defaultBenignMarginErrors = []string{
	"No need to change margin type",
	"Multi-Assets mode",
	"-4168",
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	_ = cfg.parseDurations()
	return cfg
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open executor config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads executor configuration from the default project location and panics on error.
func MustLoad() *Config {
	path := confkit.MustProjectPath("etc/executor.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read executor config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal executor config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.FallbackPrice == 0 {
		c.FallbackPrice = 1000
	}
	if c.AutoAdjustThreshold == 0 {
		c.AutoAdjustThreshold = 0.10
	}
	if c.SafetyFactor == 0 {
		c.SafetyFactor = 0.95
	}
	if c.HighUsageRatio == 0 {
		c.HighUsageRatio = 0.80
	}
	if c.MinNotional == 0 {
		c.MinNotional = 5
	}
	if c.BenignMarginErrors == nil {
		c.BenignMarginErrors = append([]string(nil), defaultBenignMarginErrors...)
	}
	if c.DefaultLeverage == 0 {
		c.DefaultLeverage = 1
	}
	if strings.TrimSpace(c.TimeoutRaw) == "" {
		c.TimeoutRaw = "30s"
	}
}

func (c *Config) parseDurations() error {
	timeout, err := time.ParseDuration(strings.TrimSpace(c.TimeoutRaw))
	if err != nil {
		return fmt.Errorf("executor config: invalid timeout %q: %w", c.TimeoutRaw, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("executor config: timeout must be positive, got %s", timeout)
	}
	c.Timeout = timeout
	return nil
}

// Validate ensures configuration sanity.
func (c *Config) Validate() error {
	if c.FallbackPrice <= 0 {
		return errors.New("executor config: fallback_price must be positive")
	}
	if c.AutoAdjustThreshold <= 0 || c.AutoAdjustThreshold > 1 {
		return errors.New("executor config: auto_adjust_threshold must be in (0, 1]")
	}
	if c.SafetyFactor <= 0 || c.SafetyFactor > 1 {
		return errors.New("executor config: safety_factor must be in (0, 1]")
	}
	if c.HighUsageRatio <= 0 || c.HighUsageRatio > 1 {
		return errors.New("executor config: high_usage_ratio must be in (0, 1]")
	}
	if c.MinNotional < 0 {
		return errors.New("executor config: min_notional must not be negative")
	}
	if c.DefaultLeverage < 1 {
		return errors.New("executor config: default_leverage must be at least 1")
	}
	for i, pattern := range c.BenignMarginErrors {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("executor config: benign_margin_errors[%d] is empty", i)
		}
	}
	return nil
}
