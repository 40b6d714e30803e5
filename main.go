package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"invoice-desk/cmd"
	"invoice-desk/internal/config"
	"invoice-desk/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
	}
	logCfg := logger.DefaultConfig()
	if cfg != nil {
		logCfg = cfg.GetLoggerConfig()
	}
	closer, err := logger.Setup(logCfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd.Execute(ctx, cfg)
	stop()
	_ = closer.Close()
	os.Exit(code)
}
