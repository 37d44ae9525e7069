package main

import (
	"flag"
	"log"
	"os"

	"TrendCast/internal/di"
	"TrendCast/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s horizon=%d step=%s unit=%s", cfg.Environment, cfg.Forecast.HorizonSteps, cfg.Forecast.Step, cfg.Forecast.OutputUnit)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if cfg.Kafka.Enabled {
		log.Printf("kafka: brokers=%v requests=%s results=%s", cfg.Kafka.Brokers, cfg.Kafka.RequestTopic, cfg.Kafka.ResultTopic)
	}
	if cfg.ClickHouse.Enabled {
		log.Printf("clickhouse: connected and schema ready - db: %s", cfg.ClickHouse.Database)
	}

	// Blocks until SIGINT/SIGTERM.
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
