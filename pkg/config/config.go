package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Ingest       IngestConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Payouts      PayoutsConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.Payouts.Minimum(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WALLET_APP_ENV" required:"true"`
	Port         string `envconfig:"WALLET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WALLET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WALLET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"WALLET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"WALLET_DB_DSN"`
	Driver string `envconfig:"WALLET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WALLET_DB_HOST"`
	LegacyPort     int    `envconfig:"WALLET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WALLET_DB_USER"`
	LegacyPassword string `envconfig:"WALLET_DB_PASSWORD"`
	LegacyName     string `envconfig:"WALLET_DB_NAME"`
	LegacySSLMode  string `envconfig:"WALLET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WALLET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WALLET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WALLET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WALLET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"WALLET_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WALLET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WALLET_REDIS_ADDR"`
	Password     string        `envconfig:"WALLET_REDIS_PASSWORD"`
	DB           int           `envconfig:"WALLET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WALLET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WALLET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WALLET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WALLET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WALLET_REDIS_WRITE_TIMEOUT" default:"5s"`
	Namespace    string        `envconfig:"WALLET_REDIS_NAMESPACE" default:"cw"`
}

type JWTConfig struct {
	Secret            string        `envconfig:"WALLET_JWT_SECRET" required:"true"`
	Issuer            string        `envconfig:"WALLET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int           `envconfig:"WALLET_JWT_EXPIRATION_MINUTES" default:"60"`
	Audience          string        `envconfig:"WALLET_JWT_AUDIENCE" default:"creator-wallet"`
	Leeway            time.Duration `envconfig:"WALLET_JWT_LEEWAY" default:"30s"`
}

// IngestConfig protects the sale ingestion endpoint used by the booking system.
type IngestConfig struct {
	KeyHash          string `envconfig:"WALLET_INGEST_KEY_HASH"`
	ArgonMemoryKB    int    `envconfig:"WALLET_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int    `envconfig:"WALLET_ARGON_TIME" default:"3"`
	ArgonParallelism int    `envconfig:"WALLET_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int    `envconfig:"WALLET_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int    `envconfig:"WALLET_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	PayoutRequestWindow time.Duration `envconfig:"WALLET_RATE_LIMIT_PAYOUT_WINDOW" default:"1h"`
	PayoutRequestLimit  int           `envconfig:"WALLET_RATE_LIMIT_PAYOUT_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WALLET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WALLET_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"WALLET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookIdempotencyTTL time.Duration `envconfig:"WALLET_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"WALLET_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"WALLET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"WALLET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PayoutsTopic        string `envconfig:"WALLET_PUBSUB_PAYOUTS_TOPIC" required:"true"`
	PayoutsSubscription string `envconfig:"WALLET_PUBSUB_PAYOUTS_SUBSCRIPTION" required:"true"`
	LedgerTopic         string `envconfig:"WALLET_PUBSUB_LEDGER_TOPIC" default:"wallet-ledger-events"`
	MaxOutstanding      int    `envconfig:"WALLET_PUBSUB_MAX_OUTSTANDING" default:"10"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"WALLET_BIGQUERY_DATASET" default:"creator_wallet"`
	LedgerTable      string `envconfig:"WALLET_BIGQUERY_LEDGER_TABLE" default:"wallet_transactions"`
	ExportEnabled    bool   `envconfig:"WALLET_BIGQUERY_EXPORT_ENABLED" default:"false"`
	ExportBatchLimit int    `envconfig:"WALLET_BIGQUERY_EXPORT_BATCH_LIMIT" default:"500"`
	CreateTable      bool   `envconfig:"WALLET_BIGQUERY_CREATE_TABLE" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"WALLET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"WALLET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"WALLET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"WALLET_STRIPE_API_KEY"`
	Secret     string `envconfig:"WALLET_STRIPE_WEBHOOK_SECRET"`
	Env        string `envconfig:"WALLET_STRIPE_ENV" default:"test"`
	RefreshURL string `envconfig:"WALLET_STRIPE_ONBOARDING_REFRESH_URL" default:"http://localhost:3000/payouts/onboarding/refresh"`
	ReturnURL  string `envconfig:"WALLET_STRIPE_ONBOARDING_RETURN_URL" default:"http://localhost:3000/payouts/onboarding/return"`
	MaxRetries int64  `envconfig:"WALLET_STRIPE_MAX_NETWORK_RETRIES" default:"2"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PayoutsConfig struct {
	Currency      string        `envconfig:"WALLET_PAYOUT_CURRENCY" default:"USD"`
	MinimumAmount string        `envconfig:"WALLET_PAYOUT_MINIMUM_AMOUNT" default:"50.00"`
	StuckAfter    time.Duration `envconfig:"WALLET_PAYOUT_STUCK_AFTER" default:"30m"`
}

// Minimum parses the configured fallback minimum payout amount.
func (p PayoutsConfig) Minimum() (decimal.Decimal, error) {
	value := strings.TrimSpace(p.MinimumAmount)
	if value == "" {
		return decimal.Zero, nil
	}
	minimum, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s: %w", EnvPayoutMinimumAmount, err)
	}
	if minimum.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", EnvPayoutMinimumAmount)
	}
	return minimum.Round(2), nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"WALLET_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"WALLET_CRON_LOCK_TTL" default:"4m"`

	OutboxRetention time.Duration `envconfig:"WALLET_OUTBOX_RETENTION" default:"720h"`
	DLQRetention    time.Duration `envconfig:"WALLET_OUTBOX_DLQ_RETENTION" default:"2160h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite && db.DSN != "" {
		db.Driver = "sqlite"
	}
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.Driver = "sqlite"
		db.DSN = defaultSQLiteDSN
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
