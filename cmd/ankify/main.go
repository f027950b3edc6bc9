package main

import (
	"log/slog"
	"os"

	"github.com/ankify-dev/ankify/internal/cli"
	"github.com/ankify-dev/ankify/internal/config"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	os.Exit(cli.Execute())
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
