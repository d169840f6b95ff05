package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/prodflow-backend/internal/importer"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
)

type syncRunner interface {
	SyncAll(ctx context.Context) (importer.Result, error)
}

// AccountingSyncJobParams configure the accounting sync job.
type AccountingSyncJobParams struct {
	Logger   *logger.Logger
	Sync     syncRunner
	Schedule string
}

// NewAccountingSyncJob builds the job that pulls accounting orders for every
// tenant on a fixed cadence.
func NewAccountingSyncJob(params AccountingSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sync == nil {
		return nil, fmt.Errorf("sync service required")
	}
	if params.Schedule == "" {
		return nil, fmt.Errorf("schedule required")
	}
	return &accountingSyncJob{
		logg:     params.Logger,
		sync:     params.Sync,
		schedule: params.Schedule,
	}, nil
}

type accountingSyncJob struct {
	logg     *logger.Logger
	sync     syncRunner
	schedule string
}

func (j *accountingSyncJob) Name() string     { return "accounting-sync" }
func (j *accountingSyncJob) Schedule() string { return j.schedule }

func (j *accountingSyncJob) Run(ctx context.Context) error {
	result, err := j.sync.SyncAll(ctx)
	if err != nil {
		return fmt.Errorf("accounting sync: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"skipped":  result.Skipped,
	})
	j.logg.Info(logCtx, "accounting sync run complete")
	return nil
}
