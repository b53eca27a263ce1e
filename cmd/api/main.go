package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasktracker/configs"
	"tasktracker/internal/api"
	"tasktracker/internal/config"
	"tasktracker/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := configs.LoadConfig()

	if err := logger.InitLoggers(cfg.LogDir); err != nil {
		log.Fatalf("init loggers: %v", err)
	}
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := config.Build(ctx, cfg)
	if err != nil {
		logger.ErrorLogger.Error("Application failed to initialise", zap.Error(err))
		logger.SyncLoggers()
		os.Exit(1)
	}
	defer deps.Close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	go deps.Hub.Run(hubCtx)

	app := api.NewApp(deps)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.SystemLogger.Info("Application ready", zap.String("addr", addr), zap.String("sync_mode", cfg.SyncMode))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
		}
	case <-ctx.Done():
		logger.SystemLogger.Info("Shutting down")
	}

	stopHub()
	<-deps.Hub.Done()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.ErrorLogger.Error("Error during shutdown", zap.Error(err))
	}
	logger.SystemLogger.Info("Stopped")
}
