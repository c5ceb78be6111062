package main

import (
	"context"
	"flag"
	"log"
	"os"

	"FinAdvisor/internal/di"
	"FinAdvisor/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path, empty for built-in defaults")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s providers=%s kafka=%t clickhouse=%t redis=%t finnhub=%t",
		cfg.Environment, cfg.Advisor.Providers,
		cfg.Kafka.Enabled, cfg.ClickHouse.Enabled, cfg.Redis.Enabled, cfg.Finnhub.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Blocks until SIGINT/SIGTERM.
	if err := app.Run(context.Background()); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
