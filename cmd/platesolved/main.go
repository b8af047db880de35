// Command platesolved serves the configured solver over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/litescript/ls-platesolve/internal/backend"
	"github.com/litescript/ls-platesolve/internal/config"
	"github.com/litescript/ls-platesolve/internal/history"
	"github.com/litescript/ls-platesolve/internal/logging"
	"github.com/litescript/ls-platesolve/internal/observability"
	"github.com/litescript/ls-platesolve/internal/platesolve"
	"github.com/litescript/ls-platesolve/internal/server"
	"github.com/litescript/ls-platesolve/internal/version"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	addr := flag.String("addr", "", "Listen address override (e.g. :8080)")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	if err := run(*configPath, *addr, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr, logLevel string) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if cfg.Solver.Type == config.SolverSim {
		return fmt.Errorf("solver.type %q needs a simulated mount and cannot be served", cfg.Solver.Type)
	}

	logger := logging.NewWithConfig(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})
	if logger.Enabled(logging.LevelDebug) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	metrics, err := backend.NewMetrics(cfg, nil)
	if err != nil {
		return err
	}

	adapter, err := backend.NewSolver(cfg, nil, logger)
	if err != nil {
		return err
	}
	solver := platesolve.NewImageSolver(adapter, nil, backend.Options(logger, metrics)...)

	srv := server.New(solver, server.Config{
		Addr:           cfg.Server.Addr,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		Defaults:       cfg.PlateSolveParameter(),
		SolveTimeout:   solveTimeout(cfg),
		History:        history.NewManager(history.Config{MaxAttempts: cfg.History.Capacity}),
		Metrics:        metrics,
		Logger:         logger,
	})

	logger.Info("platesolved v%s (solver=%s)", version.Version, cfg.Solver.Type)
	return srv.Run(ctx)
}

// solveTimeout covers a targeted solve and its blind failover.
func solveTimeout(cfg *config.Config) time.Duration {
	var per float64
	switch cfg.Solver.Type {
	case config.SolverASTAP:
		per = cfg.Solver.ASTAP.TimeoutSec
	case config.SolverRemote:
		per = cfg.Solver.Remote.TimeoutSec
	}
	return time.Duration(2 * per * float64(time.Second))
}
