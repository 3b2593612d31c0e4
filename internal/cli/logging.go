package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"tradegate/internal/config"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Listen: %s:%d", cfg.Host, cfg.Port),
		fmt.Sprintf("Postgres: %s", presence(cfg.Postgres.DSN != "")),
		fmt.Sprintf("Journal: %s", orNotConfigured(cfg.Journal.Dir)),
		fmt.Sprintf("Exchange config: %s", cfg.Exchange.Describe()),
		fmt.Sprintf("Executor config: %s", cfg.Executor.Describe()),
	}
	if ex := cfg.Exchange.Value; ex != nil {
		lines = append(lines, fmt.Sprintf("Gateways: %d (default %s)", len(ex.Gateways), orNotConfigured(ex.DefaultName())))
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func orNotConfigured(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not configured"
	}
	return v
}
