package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeromicro/go-zero/core/logx"

	"tradegate/pkg/exchange"
	_ "tradegate/pkg/exchange/binance"
	_ "tradegate/pkg/exchange/hyperliquid"
	_ "tradegate/pkg/exchange/sim"
)

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fatalf("%v", err)
	}
	logx.MustSetup(logx.LogConf{Mode: "console", Encoding: "plain", Level: opts.logLevel})
	logx.DisableStat()

	gw, err := exchange.NewFromEnv()
	if err != nil {
		fatalf("build gateway from env: %v", err)
	}
	defer func() {
		_ = gw.Close()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ok, err := run(ctx, opts, gw, os.Stdout)
	if err != nil {
		fatalf("%v", err)
	}
	if !ok {
		os.Exit(2)
	}
}

func fatalf(format string, args ...interface{}) {
	logx.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
