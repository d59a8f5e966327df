package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"

	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eval-bench/eval-bench/cmd/eval_bench/server"
	"github.com/eval-bench/eval-bench/internal/archive"
	"github.com/eval-bench/eval-bench/internal/config"
	"github.com/eval-bench/eval-bench/internal/gateway"
	"github.com/eval-bench/eval-bench/internal/logging"
	"github.com/eval-bench/eval-bench/internal/queue"
	"github.com/eval-bench/eval-bench/internal/runstore"
	"github.com/eval-bench/eval-bench/internal/runtimes"
	"github.com/eval-bench/eval-bench/internal/validation"
)

var (
	// Version can be set during the compilation
	Version string = "0.0.1"
	// Build is set during the compilation
	Build string
	// BuildDate is set during the compilation
	BuildDate string
)

func main() {
	logger, logShutdown, err := logging.NewLogger()
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(nil, err, "Failed to create service logger", logging.FallbackLogger())
	}

	serviceConfig, err := config.LoadConfig(logger, Version, Build, BuildDate)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(nil, err, "Failed to create service config", logger)
	}

	// set up the validator
	validate, err := validation.NewValidator()
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create validator", logger)
	}

	// set up the run archive; a nil archive disables persistence
	runArchive, err := archive.NewArchive(serviceConfig.Database, logger)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create archive", logger)
	}

	// setup the executor
	executor, err := runtimes.NewExecutor(logger)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create executor", logger)
	}
	logger.Info("Executor created", "executor", executor.Name())

	queueConf := config.QueueConfig{}
	if serviceConfig.Queue != nil {
		queueConf = *serviceConfig.Queue
	}
	queueConf = queueConf.WithDefaults()

	store := runstore.NewStore(logger)
	scheduler := queue.NewScheduler(logger, store, executor, runArchive, queueConf)
	gw := gateway.NewGateway(logger, store, scheduler, queueConf.HeartbeatInterval)

	// wire the change hooks: run level events flow from the store, queue
	// level events from the scheduler
	store.SetNotify(gw.OnRunEvent)
	scheduler.SetNotify(gw.OnQueueChanged)
	gw.Start()

	srv, err := server.NewServer(logger, serviceConfig, scheduler, gw, runArchive, validate)
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(serviceConfig, err, "Failed to create server", logger)
	}

	// log the start up details
	logger.Info("Server starting",
		"server_port", srv.GetPort(),
		"version", serviceConfig.Service.Version,
		"build", serviceConfig.Service.Build,
		"build_date", serviceConfig.Service.BuildDate,
		"validator", validate != nil,
		"local", serviceConfig.Service.LocalMode,
		"archive", runArchive != nil,
	)

	// Start server in a goroutine
	go func() {
		if err := srv.Start(); err != nil {
			// we do this as no point trying to continue
			if errors.Is(err, &server.ServerClosedError{}) {
				logger.Info("Server closed gracefully")
				return
			}
			startUpFailed(serviceConfig, err, "Server failed to start", logger)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// stop accepting new work and let the active run wind down
	if err := scheduler.CancelQueue(); err != nil {
		logger.Info("Queue cancellation on shutdown", "detail", err.Error())
	}
	gw.Close()

	// shutdown the archive
	if runArchive != nil {
		if err := runArchive.Close(); err != nil {
			logger.Error("Failed to close archive", "error", err.Error())
		}
	}

	// Create a context with timeout for graceful shutdown
	waitForShutdown := 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), waitForShutdown)
	defer cancel()

	// shutdown the logger
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err.Error(), "timeout", waitForShutdown)
		_ = logShutdown() // ignore the error
	} else {
		logger.Info("Server shutdown gracefully")
		_ = logShutdown() // ignore the error
	}
}

func startUpFailed(conf *config.Config, err error, msg string, logger *slog.Logger) {
	termErr := server.WriteTerminationMessage(server.TerminationFilePath(conf, logger), fmt.Sprintf("%s: %s", msg, err.Error()), logger)
	if termErr != nil {
		logger.Error("Failed to set termination message", "message", msg, "error", termErr.Error())
		log.Println(termErr.Error())
	}
	log.Fatal(err)
}
