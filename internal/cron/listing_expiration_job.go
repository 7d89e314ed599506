package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

const (
	defaultSweepBatchSize = 500
	maxSweepBatches       = 20
)

type ListingExpirationJobParams struct {
	Logger    *logger.Logger
	Listings  listingExpirer
	BatchSize int
}

type listingExpirer interface {
	ExpireStale(ctx context.Context, limit int) (int64, error)
}

// NewListingExpirationJob sweeps active listings whose expiry has passed.
// Reads already expire lazily; the sweep keeps stored status in step for
// listings nobody looks at.
func NewListingExpirationJob(params ListingExpirationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listings service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	return &listingExpirationJob{
		logg:       params.Logger,
		listings:   params.Listings,
		batchSize:  batch,
		maxBatches: maxSweepBatches,
	}, nil
}

type listingExpirationJob struct {
	logg       *logger.Logger
	listings   listingExpirer
	batchSize  int
	maxBatches int
}

func (j *listingExpirationJob) Name() string { return "listing-expiration-sweep" }

func (j *listingExpirationJob) Run(ctx context.Context) error {
	var total int64
	batches := 0
	for batches < j.maxBatches {
		if err := ctx.Err(); err != nil {
			return err
		}
		expired, err := j.listings.ExpireStale(ctx, j.batchSize)
		if err != nil {
			return fmt.Errorf("listing expiration sweep: %w", err)
		}
		batches++
		total += expired
		if expired < int64(j.batchSize) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"batches":       batches,
		"batch_size":    j.batchSize,
		"rows_affected": total,
	})
	j.logg.Info(logCtx, "listing expiration sweep complete")
	return nil
}
