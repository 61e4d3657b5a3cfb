package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"ma-crossover-bot-go/internal/binance"
	"ma-crossover-bot-go/internal/config"
	"ma-crossover-bot-go/internal/logger"
	"ma-crossover-bot-go/internal/trader"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.String("symbol", cfg.Trading.Symbol))

	// Initialize Binance REST client
	restClient := binance.NewRestClient(&cfg.Binance, log)
	if _, err := restClient.GetServerTime(); err != nil {
		log.Fatal("Failed to connect to Binance API", zap.Error(err))
	}
	log.Info("Successfully connected to Binance API.")

	// Initialize the trading engine
	tradeEngine, err := trader.NewEngine(log, &cfg, restClient)
	if err != nil {
		log.Fatal("Invalid trading configuration", zap.Error(err))
	}

	// Unknown symbol or missing constraint metadata must never reach the loop.
	if err := tradeEngine.Initialize(); err != nil {
		log.Fatal("Failed to initialize engine", zap.Error(err))
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	tradeEngine.Run(ctx)

	log.Info("Bot has been shut down.")
}
