package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/petpair-backend/internal/cities"
	"github.com/angelmondragon/petpair-backend/internal/cron"
	"github.com/angelmondragon/petpair-backend/internal/listings"
	"github.com/angelmondragon/petpair-backend/internal/notifications"
	"github.com/angelmondragon/petpair-backend/internal/users"
	"github.com/angelmondragon/petpair-backend/pkg/config"
	"github.com/angelmondragon/petpair-backend/pkg/db"
	"github.com/angelmondragon/petpair-backend/pkg/instance"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
	"github.com/angelmondragon/petpair-backend/pkg/metrics"
	"github.com/angelmondragon/petpair-backend/pkg/migrate"
	"github.com/angelmondragon/petpair-backend/pkg/outbox"
	"github.com/angelmondragon/petpair-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeQuietly(logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeQuietly(logg, "redis", redisClient.Close)

	lockTTL := time.Duration(cfg.Cron.LockTTLMinutes) * time.Minute
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceName), lockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		return fmt.Errorf("build cron jobs: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Schedule: cfg.Cron.Schedule,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	logg.Info(ctx, "starting cron worker")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := service.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if cfg.Cron.MetricsPort != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.Cron.MetricsPort) })
	}
	return g.Wait()
}

// buildRegistry registers the maintenance jobs enabled in config. Outbox
// retention always runs.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	registry := cron.NewRegistry()

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	sink, err := notifications.NewEmitter(notifications.EmitterParams{Repo: notificationsRepo, Logger: logg})
	if err != nil {
		return nil, err
	}

	if !cfg.Cron.DisableListingSweep {
		cityService, err := cities.NewService(cities.NewRepository(dbClient.DB()), nil)
		if err != nil {
			return nil, err
		}
		listingService, err := listings.NewService(listings.ServiceParams{
			Repo:       listings.NewRepository(dbClient.DB()),
			Tx:         dbClient,
			Identities: users.NewIdentityResolver(users.NewRepository(dbClient.DB())),
			Cities:     cityService,
			Notifier:   sink,
			Logger:     logg,
			TTL:        cfg.Listings.TTL(),
		})
		if err != nil {
			return nil, err
		}
		if err := register(registry)(cron.NewListingExpirationJob(cron.ListingExpirationJobParams{
			Logger:    logg,
			Listings:  listingService,
			BatchSize: cfg.Listings.SweepBatchSize,
		})); err != nil {
			return nil, err
		}
	}

	if !cfg.Cron.DisableNotificationGC {
		notificationService, err := notifications.NewService(notifications.ServiceParams{
			Repo:  notificationsRepo,
			Sink:  sink,
			Users: users.NewRepository(dbClient.DB()),
		})
		if err != nil {
			return nil, err
		}
		if err := register(registry)(cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
			Logger:        logg,
			Notifications: notificationService,
			Retention:     cfg.Notifications.RetentionDays,
		})); err != nil {
			return nil, err
		}
	}

	if err := register(registry)(cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.OutboxRetentionDays,
	})); err != nil {
		return nil, err
	}

	return registry, nil
}

// register adapts a job constructor's (job, err) pair onto the registry.
func register(registry *cron.Registry) func(cron.Job, error) error {
	return func(job cron.Job, err error) error {
		if err != nil {
			return err
		}
		return registry.Register(job)
	}
}
// serveMetrics exposes the default prometheus registry until ctx ends.
func serveMetrics(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func closeQuietly(logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+what, err)
	}
}
