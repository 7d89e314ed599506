package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	APIRateLimit  APIRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Listings      ListingsConfig
	Notifications NotificationsConfig
	Cron          CronConfig
	Eventing      EventingConfig
	Outbox        OutboxConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Storage       StorageConfig
	Mail          MailConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Notifications.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PETPAIR_APP_ENV" required:"true"`
	Port         string `envconfig:"PETPAIR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PETPAIR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PETPAIR_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PETPAIR_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"PETPAIR_CORS_ORIGINS"`
}

// ConsoleLogs reports whether PETPAIR_LOG_FORMAT asks for human-readable logs.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(a.LogFormat, "console")
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	out := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"PETPAIR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PETPAIR_DB_DSN"`
	Driver string `envconfig:"PETPAIR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PETPAIR_DB_HOST"`
	LegacyPort     int    `envconfig:"PETPAIR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PETPAIR_DB_USER"`
	LegacyPassword string `envconfig:"PETPAIR_DB_PASSWORD"`
	LegacyName     string `envconfig:"PETPAIR_DB_NAME"`
	LegacySSLMode  string `envconfig:"PETPAIR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PETPAIR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PETPAIR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PETPAIR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PETPAIR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PETPAIR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PETPAIR_REDIS_ADDR"`
	Password     string        `envconfig:"PETPAIR_REDIS_PASSWORD"`
	DB           int           `envconfig:"PETPAIR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PETPAIR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PETPAIR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PETPAIR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PETPAIR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PETPAIR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PETPAIR_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PETPAIR_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PETPAIR_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"PETPAIR_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PETPAIR_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PETPAIR_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PETPAIR_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PETPAIR_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PETPAIR_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PETPAIR_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PETPAIR_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PETPAIR_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PETPAIR_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PETPAIR_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PETPAIR_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// APIRateLimitConfig bounds per-user write throughput on the authenticated API.
type APIRateLimitConfig struct {
	WritesPerSecond float64 `envconfig:"PETPAIR_API_RATE_LIMIT_WRITES_PER_SECOND" default:"2"`
	Burst           int     `envconfig:"PETPAIR_API_RATE_LIMIT_BURST" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PETPAIR_AUTO_MIGRATE" default:"false"`
}

type ListingsConfig struct {
	TTLDays           int `envconfig:"PETPAIR_LISTING_TTL_DAYS" default:"30"`
	MaxExtendDays     int `envconfig:"PETPAIR_LISTING_MAX_EXTEND_DAYS" default:"365"`
	SweepBatchSize    int `envconfig:"PETPAIR_LISTING_SWEEP_BATCH_SIZE" default:"500"`
	MaxImagesPerEntry int `envconfig:"PETPAIR_LISTING_MAX_IMAGES" default:"10"`
}

// TTL returns the default listing lifetime.
func (l ListingsConfig) TTL() time.Duration {
	days := l.TTLDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

type NotificationsConfig struct {
	Delivery      string `envconfig:"PETPAIR_NOTIFICATIONS_DELIVERY" default:"direct"`
	RetentionDays int    `envconfig:"PETPAIR_NOTIFICATIONS_RETENTION_DAYS" default:"90"`
}

// UsesOutbox reports whether notifications are routed through the outbox/pubsub pipeline.
func (n NotificationsConfig) UsesOutbox() bool {
	return strings.EqualFold(strings.TrimSpace(n.Delivery), NotificationDeliveryOutbox)
}

func (n NotificationsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(n.Delivery)) {
	case NotificationDeliveryDirect, NotificationDeliveryOutbox:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvNotificationsDelivery, NotificationDeliveryDirect, NotificationDeliveryOutbox)
	}
}

type CronConfig struct {
	Schedule              string `envconfig:"PETPAIR_CRON_SCHEDULE" default:"*/15 * * * *"`
	OutboxRetentionDays   int    `envconfig:"PETPAIR_CRON_OUTBOX_RETENTION_DAYS" default:"14"`
	LockTTLMinutes        int    `envconfig:"PETPAIR_CRON_LOCK_TTL_MINUTES" default:"10"`
	MetricsPort           string `envconfig:"PETPAIR_CRON_METRICS_PORT" default:"9102"`
	DisableListingSweep   bool   `envconfig:"PETPAIR_CRON_DISABLE_LISTING_SWEEP" default:"false"`
	DisableNotificationGC bool   `envconfig:"PETPAIR_CRON_DISABLE_NOTIFICATION_GC" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PETPAIR_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PETPAIR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PETPAIR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PETPAIR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PETPAIR_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"PETPAIR_PUBSUB_NOTIFICATION_TOPIC" default:"petpair-notification-events"`
	NotificationSubscription string `envconfig:"PETPAIR_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"petpair-notification-events-worker"`
}

// StorageConfig points at an S3-compatible bucket holding listing images.
type StorageConfig struct {
	Endpoint        string        `envconfig:"PETPAIR_STORAGE_ENDPOINT"`
	AccessKey       string        `envconfig:"PETPAIR_STORAGE_ACCESS_KEY"`
	SecretKey       string        `envconfig:"PETPAIR_STORAGE_SECRET_KEY"`
	Bucket          string        `envconfig:"PETPAIR_STORAGE_BUCKET" default:"petpair-listings"`
	Region          string        `envconfig:"PETPAIR_STORAGE_REGION"`
	UseSSL          bool          `envconfig:"PETPAIR_STORAGE_USE_SSL" default:"true"`
	PublicBaseURL   string        `envconfig:"PETPAIR_STORAGE_PUBLIC_BASE_URL"`
	UploadURLExpiry time.Duration `envconfig:"PETPAIR_STORAGE_UPLOAD_URL_EXPIRY" default:"15m"`
}

// Enabled reports whether an object store endpoint was configured.
func (s StorageConfig) Enabled() bool {
	return strings.TrimSpace(s.Endpoint) != ""
}

type MailConfig struct {
	Host     string `envconfig:"PETPAIR_SMTP_HOST"`
	Port     int    `envconfig:"PETPAIR_SMTP_PORT" default:"587"`
	Username string `envconfig:"PETPAIR_SMTP_USERNAME"`
	Password string `envconfig:"PETPAIR_SMTP_PASSWORD"`
	From     string `envconfig:"PETPAIR_SMTP_FROM" default:"no-reply@petpair.local"`
}

// Enabled reports whether SMTP delivery is configured.
func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.Host) != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
