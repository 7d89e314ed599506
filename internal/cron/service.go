// Package cron runs the periodic maintenance jobs behind a distributed lock.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/angelmondragon/petpair-backend/pkg/logger"
	"github.com/angelmondragon/petpair-backend/pkg/metrics"
)

const (
	defaultSchedule = "*/15 * * * *"
	// scheduleRetry is the pause when the next tick cannot be computed.
	scheduleRetry = 30 * time.Second
)

var errLockLost = errors.New("cron lock lost mid-cycle")

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Schedule string
	Now      func() time.Time
}

// Service fires one cycle per schedule tick. A cycle runs every registered
// job in order while holding the lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	schedule string
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	svc := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		schedule: params.Schedule,
		now:      params.Now,
	}
	if svc.registry == nil {
		svc.registry = NewRegistry()
	}
	if svc.schedule == "" {
		svc.schedule = defaultSchedule
	}
	if !gronx.IsValid(svc.schedule) {
		return nil, fmt.Errorf("invalid cron schedule %q", svc.schedule)
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	return svc, nil
}

// NextRun returns the first tick strictly after from.
func (s *Service) NextRun(from time.Time) (time.Time, error) {
	return gronx.NextTickAfter(s.schedule, from, false)
}

// Run executes a cycle immediately, then once per tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"schedule": s.schedule,
		"jobs":     s.registry.Len(),
	}), "cron service started")

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		if err := s.waitForTick(ctx); err != nil {
			s.logg.Info(ctx, "cron service stopping")
			return err
		}
	}
}

func (s *Service) waitForTick(ctx context.Context) error {
	wait := scheduleRetry
	if next, err := s.NextRun(s.now()); err != nil {
		s.logg.Error(ctx, "failed to compute next cron tick", err)
	} else {
		wait = max(next.Sub(s.now()), 0)
		s.logg.Debug(s.logg.WithField(ctx, "next_run", next), "cron cycle scheduled")
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	won, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !won {
		s.metrics.IncSkippedCycle()
		s.logg.Info(ctx, "cron lock held elsewhere; skipping cycle")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()

	jobs := s.registry.Jobs()
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.runJob(ctx, job)
		if i == len(jobs)-1 {
			break
		}
		held, err := s.lock.Refresh(ctx)
		if err != nil {
			return err
		}
		if !held {
			return errLockLost
		}
	}
	return nil
}

// runJob never fails the cycle; a failing job is logged and counted.
func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	started := time.Now()
	err := job.Run(jobCtx)
	took := time.Since(started)
	s.metrics.ObserveRun(job.Name(), started, took, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron job failed", err)
		return
	}
	s.logg.Info(jobCtx, "cron job completed")
}
