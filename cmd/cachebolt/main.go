package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fenden/cachebolt/internal/config"
	"github.com/fenden/cachebolt/internal/logging"
	"github.com/fenden/cachebolt/internal/proxy"
	"github.com/fenden/cachebolt/internal/tracing"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Mirrors the four-worker multi-threaded runtime of the original
	// implementation.
	runtime.GOMAXPROCS(4)

	cfg, err := config.LoadSingleton(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cachebolt: failed to load config from %q: %v\n", *configPath, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.AppID, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cachebolt: failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitTracing(cfg.Tracing)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize tracing", err)
	}
	defer shutdownTracing()

	stopWatch, err := config.Watch(*configPath, logger)
	if err != nil {
		logger.Warn(ctx, "config file watch disabled", zap.Error(err))
	} else {
		defer stopWatch()
	}

	server, err := proxy.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "failed to construct server", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info(ctx, "cachebolt starting",
			zap.String("app_id", cfg.AppID), zap.Int("proxy_port", cfg.ProxyPort))
		if err := server.Start(ctx); err != nil && err != context.Canceled {
			logger.Error(ctx, "server stopped with error", err)
		}
	}()

	<-sigCh
	logger.Info(ctx, "received termination signal, shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "error during shutdown", err)
	}

	logger.Info(ctx, "cachebolt stopped")
}
