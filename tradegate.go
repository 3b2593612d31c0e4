package main

import (
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/rest"

	"tradegate/internal/cli"
	"tradegate/internal/config"
	"tradegate/internal/handler"
	"tradegate/internal/svc"
)

var configFile = flag.String("f", "etc/tradegate.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	cli.LogConfigSummary(cfg)
	ctx := svc.NewServiceContext(*cfg, cfg.MainPath())
	defer ctx.Close()
	handler.RegisterHandlers(server, ctx)

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
