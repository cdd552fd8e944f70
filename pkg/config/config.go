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
	DB            DBConfig
	Redis         RedisConfig
	Cart          CartConfig
	Notifications NotificationsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Metrics       MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Cart.Storage {
	case CartStorageMemory:
	case CartStorageRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s or %s is required when cart storage is %q", EnvRedisURL, EnvRedisAddr, CartStorageRedis)
		}
	case CartStorageSQL:
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported cart storage %q", c.Cart.Storage)
	}
	// Orders need a database even when carts live elsewhere.
	if c.Cart.Storage != CartStorageSQL && (c.DB.DSN != "" || c.DB.LegacyHost != "") {
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
	}
	if c.PubSub.Enabled {
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			return fmt.Errorf("%s is required when pubsub is enabled", EnvGCPProjectID)
		}
		if strings.TrimSpace(c.PubSub.CartEventsTopic) == "" {
			return fmt.Errorf("%s is required when pubsub is enabled", EnvPubSubCartTopic)
		}
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	CatalogPath  string `envconfig:"STOREFRONT_CATALOG_PATH"`
	// CORSOrigins is a comma separated allow-list for browser clients.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN         string `envconfig:"STOREFRONT_DB_DSN"`
	Driver      string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`
	AutoMigrate bool   `envconfig:"STOREFRONT_DB_AUTO_MIGRATE" default:"false"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQueryThreshold logs queries slower than this at warn; zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"200ms"`
}

// Enabled reports whether a database has been configured.
func (db DBConfig) Enabled() bool {
	return strings.TrimSpace(db.DSN) != ""
}

// IsSQLite reports whether the configured driver is the embedded sqlite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL            string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address        string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password       string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB             int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
	ConnectRetries uint64        `envconfig:"STOREFRONT_REDIS_CONNECT_RETRIES" default:"3"`
}

type CartConfig struct {
	Storage     string        `envconfig:"STOREFRONT_CART_STORAGE" default:"memory"`
	StateKey    string        `envconfig:"STOREFRONT_CART_STATE_KEY" default:"cart"`
	StateTTL    time.Duration `envconfig:"STOREFRONT_CART_STATE_TTL" default:"720h"`
	SaveTimeout time.Duration `envconfig:"STOREFRONT_CART_SAVE_TIMEOUT" default:"2s"`
	MaxSessions int           `envconfig:"STOREFRONT_CART_MAX_SESSIONS" default:"10000"`
}

type NotificationsConfig struct {
	ToastTTL time.Duration `envconfig:"STOREFRONT_NOTIFICATION_TOAST_TTL" default:"5s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	Enabled         bool   `envconfig:"STOREFRONT_PUBSUB_ENABLED" default:"false"`
	CartEventsTopic string `envconfig:"STOREFRONT_PUBSUB_CART_EVENTS_TOPIC" default:"sf-cart-events"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"STOREFRONT_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"STOREFRONT_METRICS_PATH" default:"/metrics"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
