package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
	Pricing      PricingConfig
	Retention    RetentionConfig
	Monitor      MonitorConfig
	Stats        StatsConfig
	Sellers      SellersConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KACLIRA_APP_ENV" required:"true"`
	Port         string `envconfig:"KACLIRA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KACLIRA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KACLIRA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KACLIRA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KACLIRA_DB_DSN"`
	Driver string `envconfig:"KACLIRA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KACLIRA_DB_HOST"`
	LegacyPort     int    `envconfig:"KACLIRA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KACLIRA_DB_USER"`
	LegacyPassword string `envconfig:"KACLIRA_DB_PASSWORD"`
	LegacyName     string `envconfig:"KACLIRA_DB_NAME"`
	LegacySSLMode  string `envconfig:"KACLIRA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KACLIRA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KACLIRA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KACLIRA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KACLIRA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KACLIRA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KACLIRA_REDIS_ADDR"`
	Password     string        `envconfig:"KACLIRA_REDIS_PASSWORD"`
	DB           int           `envconfig:"KACLIRA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KACLIRA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KACLIRA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KACLIRA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KACLIRA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KACLIRA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KACLIRA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KACLIRA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KACLIRA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RateLimitConfig struct {
	Window       time.Duration `envconfig:"KACLIRA_RATE_LIMIT_WINDOW" default:"1m"`
	RequestLimit int64         `envconfig:"KACLIRA_RATE_LIMIT_REQUESTS" default:"120"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KACLIRA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KACLIRA_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"KACLIRA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"KACLIRA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"KACLIRA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AlertsTopic        string `envconfig:"KACLIRA_PUBSUB_ALERTS_TOPIC" default:"kac-price-alerts"`
	AlertsSubscription string `envconfig:"KACLIRA_PUBSUB_ALERTS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KACLIRA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KACLIRA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KACLIRA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"KACLIRA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// PricingConfig carries the alert thresholds and bulk update bounds.
// The thresholds were literals in the legacy system; they are configuration here.
type PricingConfig struct {
	UserAlertPercent  float64 `envconfig:"KACLIRA_PRICING_USER_ALERT_PERCENT" default:"5.0"`
	AdminAlertPercent float64 `envconfig:"KACLIRA_PRICING_ADMIN_ALERT_PERCENT" default:"20.0"`
	BulkMaxItems      int     `envconfig:"KACLIRA_PRICING_BULK_MAX_ITEMS" default:"100"`
	BulkChunkSize     int     `envconfig:"KACLIRA_PRICING_BULK_CHUNK_SIZE" default:"50"`
	BulkChunkDelayMS  int     `envconfig:"KACLIRA_PRICING_BULK_CHUNK_DELAY_MS" default:"50"`
}

type RetentionConfig struct {
	HistoryDays      int `envconfig:"KACLIRA_RETENTION_HISTORY_DAYS" default:"365"`
	BatchSize        int `envconfig:"KACLIRA_RETENTION_BATCH_SIZE" default:"1000"`
	BatchDelayMS     int `envconfig:"KACLIRA_RETENTION_BATCH_DELAY_MS" default:"50"`
	NotificationDays int `envconfig:"KACLIRA_RETENTION_NOTIFICATION_DAYS" default:"30"`
}

type MonitorConfig struct {
	LookbackHours    int     `envconfig:"KACLIRA_MONITOR_LOOKBACK_HOURS" default:"1"`
	ThresholdPercent float64 `envconfig:"KACLIRA_MONITOR_THRESHOLD_PERCENT" default:"5.0"`
}

type StatsConfig struct {
	CacheTTL time.Duration `envconfig:"KACLIRA_STATS_CACHE_TTL" default:"5m"`
}

type SellersConfig struct {
	ExpiryWarningDays int `envconfig:"KACLIRA_SELLERS_EXPIRY_WARNING_DAYS" default:"30"`
	MaxHierarchyDepth int `envconfig:"KACLIRA_SELLERS_MAX_HIERARCHY_DEPTH" default:"10"`
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
