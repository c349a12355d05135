package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogurasousui/driver-retention/internal/app"
	"github.com/ogurasousui/driver-retention/internal/platform/config"
	"github.com/ogurasousui/driver-retention/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := application.StartAutoSync(ctx); err != nil {
		log.Fatalf("failed to start auto sync: %v", err)
	}

	if err := server.New(cfg.Server.ListenAddr, application.Handler()).Run(ctx); err != nil {
		log.Fatalf("server stopped with error: %v", err)
	}
}
