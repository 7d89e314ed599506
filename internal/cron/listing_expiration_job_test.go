package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

type fakeExpirer struct {
	results []int64
	limits  []int
	err     error
}

func (f *fakeExpirer) ExpireStale(ctx context.Context, limit int) (int64, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.results) == 0 {
		return 0, nil
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next, nil
}

func newListingExpirationJob(t *testing.T, expirer *fakeExpirer, batch int) Job {
	t.Helper()
	job, err := NewListingExpirationJob(ListingExpirationJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Listings:  expirer,
		BatchSize: batch,
	})
	if err != nil {
		t.Fatalf("NewListingExpirationJob: %v", err)
	}
	return job
}

func TestListingExpirationJobDrainsFullBatches(t *testing.T) {
	expirer := &fakeExpirer{results: []int64{10, 10, 4}}
	job := newListingExpirationJob(t, expirer, 10)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.limits) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(expirer.limits))
	}
	for _, limit := range expirer.limits {
		if limit != 10 {
			t.Fatalf("unexpected batch limit %d", limit)
		}
	}
}

func TestListingExpirationJobStopsAtBatchCeiling(t *testing.T) {
	results := make([]int64, maxSweepBatches+5)
	for i := range results {
		results[i] = 1
	}
	expirer := &fakeExpirer{results: results}
	job := newListingExpirationJob(t, expirer, 1)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.limits) != maxSweepBatches {
		t.Fatalf("expected %d batches, got %d", maxSweepBatches, len(expirer.limits))
	}
}

func TestListingExpirationJobDefaultsBatchSize(t *testing.T) {
	expirer := &fakeExpirer{}
	job := newListingExpirationJob(t, expirer, 0)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.limits) != 1 || expirer.limits[0] != defaultSweepBatchSize {
		t.Fatalf("unexpected limits %v", expirer.limits)
	}
}

func TestListingExpirationJobPropagatesErrors(t *testing.T) {
	job := newListingExpirationJob(t, &fakeExpirer{err: errors.New("boom")}, 5)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
