// Command updownbot trades 5-minute up/down prediction markets for one
// symbol. It loads configuration, validates it, wires dependencies, sets up
// signal handling, and runs the trading session until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kaiwenyuan/updownbot/internal/app"
	"github.com/kaiwenyuan/updownbot/internal/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-config path] <symbol>\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "  symbol  market symbol to trade, e.g. btc or eth")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	symbol := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	if symbol == "" {
		usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			"path", *configPath, "error", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, symbol, logger)
	defer application.Close()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	logger.Info("stopped")
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
