package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

const defaultOutboxRetention = 14 * 24 * time.Hour

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository publishedOutboxPruner
	// Retention is in days; zero keeps two weeks of published rows.
	Retention int
}

type publishedOutboxPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// outboxRetentionJob prunes published outbox rows. Unpublished rows are
// never touched regardless of age.
type outboxRetentionJob struct {
	logg   *logger.Logger
	pruner publishedOutboxPruner
	keep   time.Duration
	now    func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil || params.Repository == nil {
		return nil, errors.New("outbox retention job needs a logger and repository")
	}
	keep := defaultOutboxRetention
	if params.Retention > 0 {
		keep = time.Duration(params.Retention) * 24 * time.Hour
	}
	return &outboxRetentionJob{
		logg:   params.Logger,
		pruner: params.Repository,
		keep:   keep,
		now:    time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.keep)
	pruned, err := j.pruner.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune published outbox rows before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": pruned,
	}), "outbox retention cleanup complete")
	return nil
}
