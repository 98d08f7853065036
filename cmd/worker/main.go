// Command worker runs the queue worker: an HTTP process that sits behind
// the local delivery daemon, classifies its requests, and executes the
// periodic tasks and verified jobs they carry.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/gatehouse/internal/config"
	"github.com/aristath/gatehouse/internal/jobs"
	"github.com/aristath/gatehouse/internal/server"
	"github.com/aristath/gatehouse/internal/sqsd"
	"github.com/aristath/gatehouse/internal/tasks"
	"github.com/aristath/gatehouse/pkg/logger"
)

func main() {
	// Bootstrap logger; rebuilt with the configured level below.
	log := logger.New(logger.Config{Level: "info"})

	log.Info().Msg("Starting gatehouse worker")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})

	// Periodic tasks and job handlers. Deployments extend these two
	// registries; ping and echo stay registered so a fresh environment can
	// be smoke-tested end to end.
	registry := tasks.NewRegistry(log)
	registry.Register(tasks.Func("ping", pingTask(log)))

	executor := jobs.NewExecutor(log)
	executor.Register("echo", echoJob(log))

	// Container detection runs once, here. From this point the trust
	// boundary works off plain configuration.
	bridgeAddr := sqsd.DockerHostAddr()
	if bridgeAddr != "" {
		log.Info().Str("bridge_addr", bridgeAddr).Msg("Container environment detected")
	}

	if cfg.ProcessQueueMessages && cfg.SecretKeyBase == "" {
		log.Warn().Msg("SECRET_KEY_BASE is empty; signed job deliveries will be rejected")
	}

	boundary := sqsd.New(sqsd.Options{
		Enabled:    cfg.ProcessQueueMessages,
		Secret:     cfg.SecretKeyBase,
		BridgeAddr: bridgeAddr,
	}, registry, executor, log)

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:     cfg.Port,
		Log:      log,
		Boundary: boundary,
		Tasks:    registry,
		Jobs:     executor,
	})

	// In dev mode there is no delivery daemon; a local cron scheduler
	// stands in for the scheduled triggers.
	if cfg.DevMode {
		sched := tasks.NewScheduler(registry, log)
		if err := sched.Add("0 * * * * *", "ping"); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule ping task")
		}
		sched.Start()
		defer sched.Stop()
	}

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().
		Int("port", cfg.Port).
		Bool("queue_processing", cfg.ProcessQueueMessages).
		Msg("Worker started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")

	// Graceful shutdown: give in-flight deliveries up to 10 seconds.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Worker stopped")
}

// pingTask logs a heartbeat. Wire it into the environment's scheduled
// tasks to confirm triggers reach the worker.
func pingTask(log zerolog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		log.Info().Msg("pong")
		return nil
	}
}

// echoJob logs its arguments. Enqueue it to confirm the signed job path
// works end to end.
func echoJob(log zerolog.Logger) jobs.HandlerFunc {
	return func(ctx context.Context, job jobs.Description) error {
		log.Info().
			Str("job_id", job.JobID).
			Interface("arguments", job.Arguments).
			Msg("echo")
		return nil
	}
}
