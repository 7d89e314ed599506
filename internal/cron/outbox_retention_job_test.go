package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPruner struct {
	cutoffs []time.Time
	err     error
}

func (p *recordingPruner) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return 3, p.err
}

func TestOutboxRetentionCutoff(t *testing.T) {
	now := time.Date(2026, time.February, 10, 6, 0, 0, 0, time.UTC)
	cases := []struct {
		days int
		want time.Time
	}{
		{0, now.AddDate(0, 0, -14)},
		{3, now.AddDate(0, 0, -3)},
	}
	for _, tc := range cases {
		pruner := &recordingPruner{}
		job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: quietLogger(), Repository: pruner, Retention: tc.days})
		require.NoError(t, err)
		job.(*outboxRetentionJob).now = func() time.Time { return now }

		require.NoError(t, job.Run(context.Background()))
		require.Len(t, pruner.cutoffs, 1)
		assert.True(t, pruner.cutoffs[0].Equal(tc.want), "retention %d: cutoff %s", tc.days, pruner.cutoffs[0])
	}
}

func TestOutboxRetentionWrapsRepositoryErrors(t *testing.T) {
	boom := errors.New("boom")
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: quietLogger(), Repository: &recordingPruner{err: boom}})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Run(context.Background()), boom)
}

func TestNewOutboxRetentionJobValidates(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: quietLogger()})
	assert.Error(t, err)
}
