package main

import (
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"ma-crossover-bot-go/internal/config"
	"ma-crossover-bot-go/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The viewer only reads the bot's log file; its own output goes to the
	// console so it never pollutes the file it serves.
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Setup HTTP server
	mux := http.NewServeMux()

	handler := NewLogHandler(log, cfg.Logger.File)

	mux.HandleFunc("/", handler.HomeHandler)
	mux.HandleFunc("/api/logs", handler.LogsHandler)
	mux.HandleFunc("/download", handler.DownloadHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting log viewer", zap.String("address", addr), zap.String("log_file", cfg.Logger.File))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Log viewer failed", zap.Error(err))
	}
}
