// Command eater runs the worker dispatcher: it consumes the request topics,
// performs the storage work, and answers each message with a correlated
// response envelope.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/singularis/chater/internal/eater"
	"github.com/singularis/chater/internal/eater/store"
	"github.com/singularis/chater/internal/runtime"
	configpkg "github.com/singularis/chater/internal/runtime/config"
	loggingpkg "github.com/singularis/chater/internal/runtime/logging"
)

func main() {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := loggingpkg.NewSlogServiceLogger(slogger)

	conf := configpkg.FromEnv()
	if err := configpkg.ValidateConfig(conf); err != nil {
		logger.Error("Invalid configuration", err, nil)
		os.Exit(1)
	}

	svc, err := runtime.TryNewService(conf, logger, runtime.ServiceDependencies{})
	if err != nil {
		logger.Error("Service init failed", err, nil)
		os.Exit(1)
	}
	defer svc.Close()

	if conf.PostgresURL == "" {
		logger.Error("POSTGRES_URL is required", nil, nil)
		os.Exit(1)
	}
	st, err := store.Open(conf.PostgresURL)
	if err != nil {
		logger.Error("Storage init failed", err, nil)
		os.Exit(1)
	}

	dispatcher := svc.NewDispatcher()
	handlers := eater.NewHandlers(st, nil)
	if err := handlers.RegisterAll(dispatcher); err != nil {
		logger.Error("Handler registration failed", err, nil)
		os.Exit(1)
	}

	svc.StartMetricsServer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting eater worker", loggingpkg.LogFields{
		"topics": dispatcher.Topics(),
		"dev":    conf.Dev,
	})
	if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Dispatcher stopped", err, nil)
		os.Exit(1)
	}
}
