package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"tradegate/internal/cli"
	"tradegate/internal/config"
	"tradegate/internal/svc"
)

const (
	defaultInterval = 5 * time.Minute  // gateway health check interval
	apiTimeout      = 10 * time.Second // timeout for one gateway probe
	shutdownTimeout = 10 * time.Second // grace period for shutdown
)

func main() {
	var (
		configPath = flag.String("f", "etc/tradegate.yaml", "the config file")
		interval   = flag.Duration("interval", defaultInterval, "time between gateway checks")
		once       = flag.Bool("once", false, "run a single round and exit")
	)
	flag.Parse()
	logx.DisableStat()

	appCfg, err := config.Load(*configPath)
	if err != nil {
		logx.Errorf("[main] load config: %v", err)
		os.Exit(1)
	}
	cli.LogConfigSummary(appCfg)

	sc, err := svc.New(*appCfg, appCfg.MainPath())
	if err != nil {
		logx.Errorf("[main] build service context: %v", err)
		os.Exit(1)
	}
	defer sc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := newMonitor(sc, apiTimeout)
	if *once {
		m.round(ctx)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.run(ctx, *interval)
	}()
	logx.Infof("[main] gateway monitor started, interval=%s gateways=%v", *interval, sc.GatewayNames())

	<-ctx.Done()
	logx.Info("[main] shutdown signal received, stopping monitor")

	select {
	case <-done:
		logx.Info("[main] monitor stopped cleanly")
	case <-time.After(shutdownTimeout):
		logx.Info("[main] shutdown timeout exceeded, forcing exit")
	}
}
