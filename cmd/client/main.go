package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BetaCatPro/ws-pingpong/internal/config"
	"github.com/BetaCatPro/ws-pingpong/internal/errors"
	"github.com/BetaCatPro/ws-pingpong/internal/eventlog"
	"github.com/BetaCatPro/ws-pingpong/internal/logger"
	"github.com/BetaCatPro/ws-pingpong/internal/telemetry"
	"github.com/BetaCatPro/ws-pingpong/pkg/client"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer log.Sync()

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.MetricsHandler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	wsClient, err := client.NewClient(cfg, eventlog.NewConsole(os.Stdout), log)
	if err != nil {
		log.Error("create client", zap.Error(err))
		return 2
	}
	log.Info("starting", zap.String("url", wsClient.URL()), zap.String("protocol", string(cfg.Version)))

	err = wsClient.Run(ctx)
	switch {
	case err == nil, stderrors.Is(err, context.Canceled):
		return 0
	case stderrors.Is(err, errors.ErrDeadlineExceeded):
		return 3
	default:
		log.Error("connection failed", zap.Error(err))
		return 1
	}
}
