// Command enqueue sends one signed job to the worker queue. It exists for
// smoke tests and operations: the message it produces is exactly what the
// application's enqueuer produces.
//
// Usage:
//
//	enqueue -class echo -args '["hello"]'
//	enqueue -class ProcessOrder -args '[42]' -delay 5m
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"time"

	"github.com/aristath/gatehouse/internal/config"
	"github.com/aristath/gatehouse/internal/enqueuer"
	"github.com/aristath/gatehouse/internal/jobs"
	"github.com/aristath/gatehouse/internal/signing"
	"github.com/aristath/gatehouse/pkg/logger"
)

func main() {
	var (
		class    = flag.String("class", "", "job class to enqueue (required)")
		argsJSON = flag.String("args", "[]", "job arguments as a JSON array")
		queue    = flag.String("queue", "", "queue URL (overrides WORKER_QUEUE_URL)")
		delay    = flag.Duration("delay", 0, "delivery delay, up to 15m")
	)
	flag.Parse()

	// Bootstrap logger; rebuilt with the configured level below.
	log := logger.New(logger.Config{Level: "info"})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	if *class == "" {
		log.Fatal().Msg("-class is required")
	}

	arguments, err := parseArguments(*argsJSON)
	if err != nil {
		log.Fatal().Err(err).Msg("-args must be a JSON array")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := enqueuer.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build queue client")
	}

	queueURL, err := resolveQueueURL(ctx, client, *queue, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve target queue")
	}

	enq := enqueuer.New(client, queueURL, signing.NewVerifier(cfg.SecretKeyBase), log)

	job := jobs.Description{JobClass: *class, Arguments: arguments}

	var messageID string
	if *delay > 0 {
		messageID, err = enq.EnqueueIn(ctx, job, *delay)
	} else {
		messageID, err = enq.Enqueue(ctx, job)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to enqueue job")
	}

	log.Info().
		Str("job_class", *class).
		Str("message_id", messageID).
		Str("queue_url", queueURL).
		Msg("Job enqueued")
}

// parseArguments decodes the -args flag value, a JSON array of job arguments.
func parseArguments(raw string) ([]any, error) {
	var arguments []any
	if err := json.Unmarshal([]byte(raw), &arguments); err != nil {
		return nil, err
	}
	return arguments, nil
}

// resolveQueueURL picks the target queue: the explicit flag wins, then the
// configured URL, then a name lookup against the queue service.
func resolveQueueURL(ctx context.Context, client enqueuer.API, flagURL string, cfg *config.Config) (string, error) {
	switch {
	case flagURL != "":
		return flagURL, nil
	case cfg.QueueURL != "":
		return cfg.QueueURL, nil
	case cfg.QueueName != "":
		return enqueuer.ResolveQueueName(ctx, client, cfg.QueueName)
	}
	return "", errors.New("no queue configured: set -queue, WORKER_QUEUE_URL or WORKER_QUEUE_NAME")
}
