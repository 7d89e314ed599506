package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/petpair-backend/api/controllers"
	"github.com/angelmondragon/petpair-backend/api/middleware"
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
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
	"github.com/angelmondragon/petpair-backend/pkg/metrics"
	"github.com/angelmondragon/petpair-backend/pkg/redis"
)

// Dependencies collects everything the HTTP surface needs. Nil services
// answer with an internal error; nil infrastructure disables the middleware
// that depends on it.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Images   controllers.ImageStore
	Storage  controllers.Pinger

	Auth          auth.Service
	Users         users.Service
	Listings      listings.Service
	Cities        cities.Service
	Favorites     favorites.Service
	Chat          chat.Service
	Notifications notifications.Service
	Admin         admin.Service

	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
		middleware.Metrics(deps.HTTPMetrics),
	)

	// Typed nil clients must not leak into the middleware interfaces.
	var idempotencyStore redis.IdempotencyStore
	var counterStore middleware.RateLimitStore
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		counterStore = deps.Redis
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	authenticated := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg)
	writeLimit := middleware.UserRateLimit(cfg.APIRateLimit, logg)
	idempotent := middleware.Idempotency(idempotencyStore, logg)

	readiness := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}
	if deps.Storage != nil {
		readiness["storage"] = deps.Storage
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(idempotent)
		r.With(middleware.AuthRateLimit(registerPolicy, counterStore, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, counterStore, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, counterStore, logg)).Post("/forgot-password", controllers.AuthForgotPassword(deps.Auth, logg))
		r.Post("/verify-email", controllers.AuthVerifyEmail(deps.Auth, logg))
		r.Post("/resend-code", controllers.AuthResendCode(deps.Auth, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.Get("/me", controllers.AuthMe(deps.Auth, logg))
			r.Patch("/me", controllers.AuthUpdateProfile(deps.Auth, logg))
			r.Post("/change-password", controllers.AuthChangePassword(deps.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public reads. A presented token still identifies the viewer so
		// owners and admins see their hidden listings.
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/cities", controllers.ListCities(deps.Cities, logg))
			r.Get("/cities/{cityId}", controllers.GetCity(deps.Cities, logg))
			r.Get("/cities/{cityId}/listings", controllers.ListCityListings(deps.Listings, logg))
			r.Get("/listings", controllers.ListListings(deps.Listings, logg))
			r.Get("/listings/search", controllers.SearchListings(deps.Listings, logg))
			r.Get("/listings/{listingId}", controllers.GetListing(deps.Listings, logg))
			r.Get("/users/{userId}/listings", controllers.ListUserListings(deps.Listings, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated, writeLimit, idempotent)

			r.Get("/me/listings", controllers.ListMyListings(deps.Listings, logg))
			r.Post("/listings", controllers.CreateListing(deps.Listings, logg))
			r.Post("/listings/images/presign", controllers.PresignListingImage(deps.Images, logg))
			r.Delete("/listings/images", controllers.DeleteListingImage(deps.Images, logg))
			r.Patch("/listings/{listingId}", controllers.UpdateListing(deps.Listings, logg))
			r.Delete("/listings/{listingId}", controllers.DeleteListing(deps.Listings, logg))
			r.Post("/listings/{listingId}/extend", controllers.ExtendListing(deps.Listings, logg))

			r.Post("/listings/{listingId}/pair-requests", controllers.SendPairRequest(deps.Listings, logg))
			r.Get("/listings/{listingId}/pair-requests", controllers.ListPairRequests(deps.Listings, logg))
			r.Post("/listings/{listingId}/pair-requests/{requestId}/respond", controllers.RespondToPairRequest(deps.Listings, logg))
			r.Get("/pair-requests/sent", controllers.ListSentPairRequests(deps.Listings, logg))

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", controllers.ListFavorites(deps.Favorites, logg))
				r.Get("/{listingId}", controllers.CheckFavorite(deps.Favorites, logg))
				r.Post("/{listingId}/toggle", controllers.ToggleFavorite(deps.Favorites, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Delete("/", controllers.DeleteAllNotifications(deps.Notifications, logg))
				r.Get("/unread-count", controllers.NotificationUnreadCount(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
				r.Delete("/{notificationId}", controllers.DeleteNotification(deps.Notifications, logg))
			})

			r.Route("/chat", func(r chi.Router) {
				r.Get("/thread", controllers.GetMyChatThread(deps.Chat, logg))
				r.Post("/messages", controllers.SendChatMessage(deps.Chat, logg))
				r.Get("/unread-count", controllers.MyChatUnreadCount(deps.Chat, logg))
				r.Post("/read", controllers.MarkMyChatRead(deps.Chat, logg))
				r.Delete("/threads/{threadId}/messages/{messageId}", controllers.DeleteChatMessage(deps.Chat, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(authenticated)
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(idempotent)

		r.Get("/stats", controllers.AdminStats(deps.Admin, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(deps.Users, logg))
			r.Get("/stats", controllers.AdminUserStats(deps.Users, logg))
			r.Get("/{userId}", controllers.AdminGetUser(deps.Users, logg))
			r.Post("/{userId}/block", controllers.AdminSetUserBlocked(deps.Users, true, logg))
			r.Post("/{userId}/unblock", controllers.AdminSetUserBlocked(deps.Users, false, logg))
			r.Delete("/{userId}", controllers.AdminDeleteUser(deps.Users, logg))
		})

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", controllers.ListListings(deps.Listings, logg))
			r.Post("/{listingId}/toggle-block", controllers.ToggleListingBlock(deps.Listings, logg))
			r.Delete("/{listingId}", controllers.DeleteListing(deps.Listings, logg))
		})

		r.Route("/cities", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateCity(deps.Cities, logg))
			r.Patch("/{cityId}", controllers.AdminUpdateCity(deps.Cities, logg))
			r.Delete("/{cityId}", controllers.AdminDeleteCity(deps.Cities, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/send", controllers.AdminSendNotification(deps.Notifications, logg))
			r.Post("/bulk", controllers.AdminSendBulkNotification(deps.Notifications, logg))
		})

		r.Route("/chat", func(r chi.Router) {
			r.Get("/threads", controllers.AdminListChatThreads(deps.Chat, logg))
			r.Get("/unread-count", controllers.AdminChatUnreadCount(deps.Chat, logg))
			r.Get("/threads/{threadId}", controllers.AdminGetChatThread(deps.Chat, logg))
			r.Post("/threads/{threadId}/reply", controllers.AdminReplyChatThread(deps.Chat, logg))
			r.Post("/threads/{threadId}/close", controllers.AdminCloseChatThread(deps.Chat, logg))
			r.Delete("/threads/{threadId}", controllers.AdminDeleteChatThread(deps.Chat, logg))
			r.Delete("/threads/{threadId}/messages/{messageId}", controllers.DeleteChatMessage(deps.Chat, logg))
		})
	})

	return r
}
