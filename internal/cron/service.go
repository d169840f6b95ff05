package cron

import (
	"context"
	"fmt"
	"time"

	robcron "github.com/robfig/cron/v3"

	"github.com/angelmondragon/prodflow-backend/pkg/logger"
	"github.com/angelmondragon/prodflow-backend/pkg/metrics"
)

const defaultLockTTL = 30 * time.Minute

// locker serializes job runs across worker replicas.
type locker interface {
	AcquireLock(ctx context.Context, scope string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, scope string) error
}

// SchedulerParams configure the cron scheduler.
type SchedulerParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   locker
	Metrics  *metrics.CronJobMetrics
	LockTTL  time.Duration
}

// Scheduler runs registered jobs on their cron expressions. Each job run is
// guarded by a Redis lock so only one worker replica executes it.
type Scheduler struct {
	logg     *logger.Logger
	registry *Registry
	locker   locker
	metrics  *metrics.CronJobMetrics
	lockTTL  time.Duration
	cron     *robcron.Cron
}

// NewScheduler builds a cron scheduler.
func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	lockTTL := params.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Scheduler{
		logg:     params.Logger,
		registry: registry,
		locker:   params.Locker,
		metrics:  params.Metrics,
		lockTTL:  lockTTL,
		cron:     robcron.New(),
	}, nil
}

// Run schedules every registered job and blocks until the context is
// canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, job := range s.registry.Jobs() {
		job := job
		if _, err := s.cron.AddFunc(job.Schedule(), func() {
			s.runJob(ctx, job)
		}); err != nil {
			return fmt.Errorf("schedule job %s: %w", job.Name(), err)
		}
	}
	s.cron.Start()
	s.logg.Info(ctx, "cron scheduler started")

	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logg.Info(context.Background(), "cron scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")

	scope := "cron:" + job.Name()
	locked, err := s.locker.AcquireLock(jobCtx, scope, s.lockTTL)
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		s.recordFailure(job.Name())
		return
	}
	if !locked {
		s.logg.Info(jobCtx, "another worker holds the job lock; skipping")
		s.recordSkipped(job.Name())
		return
	}
	defer func() {
		if relErr := s.locker.ReleaseLock(jobCtx, scope); relErr != nil {
			s.logg.Error(jobCtx, "failed to release job lock", relErr)
		}
	}()

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.recordSuccess(job.Name())
}

func (s *Scheduler) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Scheduler) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Scheduler) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}

func (s *Scheduler) recordSkipped(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSkipped(job)
}
