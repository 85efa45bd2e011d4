// Package scheduler runs the daily reward pipeline on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/streakfarm/streakfarm-api/internal/config"
	prommetrics "github.com/streakfarm/streakfarm-api/internal/metrics"
	"github.com/streakfarm/streakfarm-api/pkg/logger"
)

// BoxPipeline is the box-facing slice of the daily pipeline.
type BoxPipeline interface {
	GenerateDaily(ctx context.Context, now time.Time) (int, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// StreakPipeline is the streak-facing slice of the daily pipeline.
type StreakPipeline interface {
	ProcessResets(ctx context.Context, now time.Time) (int64, error)
}

// Service handles the daily reward pipeline scheduling.
type Service struct {
	config  *config.Config
	boxes   BoxPipeline
	streaks StreakPipeline
	log     *logger.Logger
	cron    *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	boxes BoxPipeline,
	streaks StreakPipeline,
	log *logger.Logger,
) *Service {
	return &Service{
		config:  cfg,
		boxes:   boxes,
		streaks: streaks,
		log:     log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.Scheduler.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	cronExpr, err := s.buildCronExpression()
	if err != nil {
		return fmt.Errorf("failed to build cron expression: %w", err)
	}

	_, err = s.cron.AddFunc(cronExpr, func() {
		_ = s.RunPipeline(context.Background(), time.Now())
	})
	if err != nil {
		return fmt.Errorf("failed to register daily pipeline job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", cronExpr).
		Str("timezone", s.config.Scheduler.Timezone).
		Str("time", s.config.Scheduler.Time).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression generates a cron expression from config.
func (s *Service) buildCronExpression() (string, error) {
	// Parse time string (format: "HH:MM")
	parts := strings.Split(s.config.Scheduler.Time, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", s.config.Scheduler.Time)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// RunPipeline executes the three daily steps strictly in order: generate
// boxes, process streak resets, expire unopened boxes. A step failure aborts
// the remaining steps; each step is idempotent so the pipeline is safe to
// rerun after a partial failure.
func (s *Service) RunPipeline(ctx context.Context, now time.Time) error {
	start := time.Now()
	defer prommetrics.SetSchedulerLastRun()

	s.log.Info().Msg("Running daily reward pipeline")

	if err := s.runStep(ctx, "generate_boxes", now, s.stepGenerateBoxes); err != nil {
		return err
	}
	if err := s.runStep(ctx, "process_resets", now, s.stepProcessResets); err != nil {
		return err
	}
	if err := s.runStep(ctx, "expire_boxes", now, s.stepExpireBoxes); err != nil {
		return err
	}

	s.log.Info().
		Dur("total_duration", time.Since(start)).
		Msg("Daily reward pipeline completed successfully")

	return nil
}

// runStep executes one pipeline step with duration and outcome metrics.
func (s *Service) runStep(ctx context.Context, name string, now time.Time, step func(context.Context, time.Time) error) error {
	start := time.Now()
	err := step(ctx, now)
	duration := time.Since(start)

	if err != nil {
		prommetrics.RecordSchedulerStep(name, "error", duration)
		s.log.Error().
			Err(err).
			Str("step", name).
			Dur("duration", duration).
			Msg("Pipeline step failed, aborting remaining steps")
		return fmt.Errorf("pipeline step %s: %w", name, err)
	}

	prommetrics.RecordSchedulerStep(name, "success", duration)
	return nil
}

func (s *Service) stepGenerateBoxes(ctx context.Context, now time.Time) error {
	generated, err := s.boxes.GenerateDaily(ctx, now)
	if err != nil {
		return err
	}
	s.log.Info().Int("boxes", generated).Msg("Pipeline generated daily boxes")
	return nil
}

func (s *Service) stepProcessResets(ctx context.Context, now time.Time) error {
	reset, err := s.streaks.ProcessResets(ctx, now)
	if err != nil {
		return err
	}
	s.log.Info().Int64("reset", reset).Msg("Pipeline processed streak resets")
	return nil
}

func (s *Service) stepExpireBoxes(ctx context.Context, now time.Time) error {
	expired, err := s.boxes.ExpireDue(ctx, now)
	if err != nil {
		return err
	}
	s.log.Info().Int64("expired", expired).Msg("Pipeline expired unopened boxes")
	return nil
}
