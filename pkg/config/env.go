package config

const (
	EnvPrefix = "PETPAIR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	NotificationDeliveryDirect = "direct"
	NotificationDeliveryOutbox = "outbox"

	EnvAppEnv                 = "PETPAIR_APP_ENV"
	EnvPort                   = "PETPAIR_APP_PORT"
	EnvDBDSN                  = "PETPAIR_DB_DSN"
	EnvDBHost                 = "PETPAIR_DB_HOST"
	EnvDBUser                 = "PETPAIR_DB_USER"
	EnvDBName                 = "PETPAIR_DB_NAME"
	EnvRedisURL               = "PETPAIR_REDIS_URL"
	EnvJWTSecret              = "PETPAIR_JWT_SECRET"
	EnvJWTIssuer              = "PETPAIR_JWT_ISSUER"
	EnvJWTExpMins             = "PETPAIR_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "PETPAIR_REFRESH_TOKEN_TTL_MINUTES"
	EnvNotificationsDelivery  = "PETPAIR_NOTIFICATIONS_DELIVERY"
	EnvListingTTLDays         = "PETPAIR_LISTING_TTL_DAYS"
	EnvCronSchedule           = "PETPAIR_CRON_SCHEDULE"
	EnvStorageEndpoint        = "PETPAIR_STORAGE_ENDPOINT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
