package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "MEMOWINDOW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MEMOWINDOW_DB_DSN"
	EnvDBHost = "MEMOWINDOW_DB_HOST"
	EnvDBUser = "MEMOWINDOW_DB_USER"
	EnvDBName = "MEMOWINDOW_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Fulfillment  FulfillmentConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"MEMOWINDOW_APP_ENV" required:"true"`
	Port         string `envconfig:"MEMOWINDOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEMOWINDOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEMOWINDOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MEMOWINDOW_DB_DSN"`
	Driver string `envconfig:"MEMOWINDOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEMOWINDOW_DB_HOST"`
	LegacyPort     int    `envconfig:"MEMOWINDOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEMOWINDOW_DB_USER"`
	LegacyPassword string `envconfig:"MEMOWINDOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEMOWINDOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEMOWINDOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEMOWINDOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEMOWINDOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEMOWINDOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEMOWINDOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEMOWINDOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MEMOWINDOW_REDIS_ADDR"`
	Password     string        `envconfig:"MEMOWINDOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEMOWINDOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEMOWINDOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEMOWINDOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEMOWINDOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEMOWINDOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEMOWINDOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MEMOWINDOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MEMOWINDOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MEMOWINDOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	WebhookSecret  string        `envconfig:"MEMOWINDOW_STRIPE_WEBHOOK_SECRET"`
	IdempotencyTTL time.Duration `envconfig:"MEMOWINDOW_STRIPE_IDEMPOTENCY_TTL" default:"720h"`
}

type FulfillmentConfig struct {
	WebhookSecret string `envconfig:"MEMOWINDOW_FULFILLMENT_WEBHOOK_SECRET"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MEMOWINDOW_AUTO_MIGRATE" default:"false"`
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
