package config

// EnvPrefix is the envconfig prefix; every tag below spells out the full name.
const EnvPrefix = "WALLET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const defaultSQLiteDSN = "file:creator-wallet.db?_busy_timeout=5000&_txlock=immediate"

const (
	EnvAppEnv   = "WALLET_APP_ENV"
	EnvPort     = "WALLET_APP_PORT"
	EnvLogLevel = "WALLET_LOG_LEVEL"

	EnvDBDSN  = "WALLET_DB_DSN"
	EnvDBHost = "WALLET_DB_HOST"
	EnvDBUser = "WALLET_DB_USER"
	EnvDBName = "WALLET_DB_NAME"

	EnvRedisURL = "WALLET_REDIS_URL"

	EnvJWTSecret  = "WALLET_JWT_SECRET"
	EnvJWTIssuer  = "WALLET_JWT_ISSUER"
	EnvJWTExpMins = "WALLET_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite = "WALLET_USE_SQLITE"

	EnvGCPProjectID = "WALLET_GCP_PROJECT_ID"

	EnvPubSubPayoutsTopic = "WALLET_PUBSUB_PAYOUTS_TOPIC"
	EnvPubSubPayoutsSub   = "WALLET_PUBSUB_PAYOUTS_SUBSCRIPTION"

	EnvStripeAPIKey        = "WALLET_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "WALLET_STRIPE_WEBHOOK_SECRET"

	EnvPayoutMinimumAmount = "WALLET_PAYOUT_MINIMUM_AMOUNT"

	EnvIngestKeyHash = "WALLET_INGEST_KEY_HASH"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
