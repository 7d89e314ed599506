package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/petpair-backend/api/routes"
	"github.com/angelmondragon/petpair-backend/internal/admin"
	"github.com/angelmondragon/petpair-backend/internal/auth"
	"github.com/angelmondragon/petpair-backend/internal/chat"
	"github.com/angelmondragon/petpair-backend/internal/cities"
	"github.com/angelmondragon/petpair-backend/internal/favorites"
	"github.com/angelmondragon/petpair-backend/internal/listings"
	"github.com/angelmondragon/petpair-backend/internal/notifications"
	"github.com/angelmondragon/petpair-backend/internal/users"
	"github.com/angelmondragon/petpair-backend/pkg/auth/session"
	"github.com/angelmondragon/petpair-backend/pkg/config"
	"github.com/angelmondragon/petpair-backend/pkg/db"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
	"github.com/angelmondragon/petpair-backend/pkg/mailer"
	"github.com/angelmondragon/petpair-backend/pkg/metrics"
	"github.com/angelmondragon/petpair-backend/pkg/outbox"
	"github.com/angelmondragon/petpair-backend/pkg/redis"
	"github.com/angelmondragon/petpair-backend/pkg/storage"
)

// buildDependencies wires every domain service the router needs.
func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, sessionManager *session.Manager) (routes.Dependencies, error) {
	conn := dbClient.DB()

	emitter, err := notifications.NewEmitter(notifications.EmitterParams{
		Repo:      notifications.NewRepository(conn),
		Outbox:    outbox.NewService(outbox.NewRepository(conn), logg),
		Tx:        dbClient,
		UseOutbox: cfg.Notifications.UsesOutbox(),
		Logger:    logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	cityService, err := cities.NewService(cities.NewRepository(conn), nil)
	if err != nil {
		return routes.Dependencies{}, err
	}

	userRepo := users.NewRepository(conn)
	listingService, err := listings.NewService(listings.ServiceParams{
		Repo:       listings.NewRepository(conn),
		Tx:         dbClient,
		Identities: users.NewIdentityResolver(userRepo),
		Cities:     cityService,
		Notifier:   emitter,
		Logger:     logg,
		TTL:        cfg.Listings.TTL(),
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	userService, err := users.NewService(users.ServiceParams{
		Repo:     userRepo,
		Tx:       dbClient,
		Listings: listingService,
		Notices:  emitter,
		Sessions: sessionManager,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	mail, err := mailer.New(cfg.Mail, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Mailer:         mail,
		Cities:         cityService,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	favoriteService, err := favorites.NewService(favorites.NewRepository(conn), listingService, nil)
	if err != nil {
		return routes.Dependencies{}, err
	}

	chatService, err := chat.NewService(chat.ServiceParams{
		Repo:   chat.NewRepository(conn),
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	notificationService, err := notifications.NewService(notifications.ServiceParams{
		Repo:  notifications.NewRepository(conn),
		Sink:  emitter,
		Users: userRepo,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	adminService, err := admin.NewService(admin.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := routes.Dependencies{
		DB:             dbClient,
		Redis:          redisClient,
		Sessions:       sessionManager,
		Auth:           authService,
		Users:          userService,
		Listings:       listingService,
		Cities:         cityService,
		Favorites:      favoriteService,
		Chat:           chatService,
		Notifications:  notificationService,
		Admin:          adminService,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	if cfg.Storage.Enabled() {
		store, err := storage.New(cfg.Storage, logg)
		if err != nil {
			return routes.Dependencies{}, err
		}
		deps.Images = store
		deps.Storage = store
	} else {
		logg.Warn(context.Background(), "object storage not configured; image uploads disabled")
	}

	return deps, nil
}
