package tasks

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler drives registered tasks on cron schedules. It stands in for the
// queue daemon's scheduled triggers when running outside a worker
// environment, e.g. in local development.
type Scheduler struct {
	cron     *cron.Cron
	registry *Registry
	log      zerolog.Logger
}

// NewScheduler creates a scheduler backed by the given registry.
func NewScheduler(registry *Registry, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		registry: registry,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Add schedules a registered task by name. Unknown names are refused here
// rather than at tick time.
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) Add(schedule, taskName string) error {
	if !s.registry.Has(taskName) {
		return fmt.Errorf("cannot schedule %q: %w", taskName, ErrUnknownTask)
	}

	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.registry.RunTask(context.Background(), taskName); err != nil {
			s.log.Error().
				Err(err).
				Str("task", taskName).
				Msg("Scheduled task failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %q: %w", taskName, err)
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("task", taskName).
		Msg("Task scheduled")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}
