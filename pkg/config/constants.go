package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so it is informational only.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	CartStorageMemory = "memory"
	CartStorageRedis  = "redis"
	CartStorageSQL    = "sql"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv       = "STOREFRONT_APP_ENV"
	EnvPort         = "STOREFRONT_APP_PORT"
	EnvLogLevel     = "STOREFRONT_LOG_LEVEL"
	EnvCatalogPath  = "STOREFRONT_CATALOG_PATH"
	EnvCORSOrigins  = "STOREFRONT_CORS_ORIGINS"
	EnvDBDSN        = "STOREFRONT_DB_DSN"
	EnvDBDriver     = "STOREFRONT_DB_DRIVER"
	EnvDBHost       = "STOREFRONT_DB_HOST"
	EnvDBUser       = "STOREFRONT_DB_USER"
	EnvDBName       = "STOREFRONT_DB_NAME"
	EnvRedisURL     = "STOREFRONT_REDIS_URL"
	EnvRedisAddr    = "STOREFRONT_REDIS_ADDR"
	EnvCartStorage  = "STOREFRONT_CART_STORAGE"
	EnvCartStateKey = "STOREFRONT_CART_STATE_KEY"
	EnvToastTTL     = "STOREFRONT_NOTIFICATION_TOAST_TTL"

	EnvGCPProjectID    = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubEnabled   = "STOREFRONT_PUBSUB_ENABLED"
	EnvPubSubCartTopic = "STOREFRONT_PUBSUB_CART_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
