package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	Stripe  StripeConfig
	Payout  PayoutConfig
	GCP     GCPConfig
	PubSub  PubSubConfig
	Outbox  OutboxConfig
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
	Env          string `envconfig:"MERCATA_APP_ENV" required:"true"`
	Port         string `envconfig:"MERCATA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MERCATA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MERCATA_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"MERCATA_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MERCATA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MERCATA_DB_DSN"`
	Driver string `envconfig:"MERCATA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MERCATA_DB_HOST"`
	LegacyPort     int    `envconfig:"MERCATA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MERCATA_DB_USER"`
	LegacyPassword string `envconfig:"MERCATA_DB_PASSWORD"`
	LegacyName     string `envconfig:"MERCATA_DB_NAME"`
	LegacySSLMode  string `envconfig:"MERCATA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MERCATA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MERCATA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MERCATA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MERCATA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MERCATA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MERCATA_REDIS_ADDR"`
	Password     string        `envconfig:"MERCATA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MERCATA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MERCATA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MERCATA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MERCATA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MERCATA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MERCATA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey  string        `envconfig:"MERCATA_STRIPE_API_KEY"`
	Env     string        `envconfig:"MERCATA_STRIPE_ENV" default:"test"`
	Timeout time.Duration `envconfig:"MERCATA_STRIPE_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// PayoutConfig tunes the settlement engine.
type PayoutConfig struct {
	PlatformFeeBPS    int64         `envconfig:"MERCATA_PLATFORM_FEE_BPS" default:"500"`
	ClearingDelay     time.Duration `envconfig:"MERCATA_CLEARING_DELAY" default:"48h"`
	SweepInterval     time.Duration `envconfig:"MERCATA_PAYOUT_SWEEP_INTERVAL" default:"5m"`
	DefaultMinimum    int64         `envconfig:"MERCATA_PAYOUT_DEFAULT_MINIMUM_CENTS" default:"2500"`
	OverdrawTolerance int64         `envconfig:"MERCATA_PAYOUT_OVERDRAW_TOLERANCE_CENTS" default:"0"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MERCATA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MERCATA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MERCATA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementTopic        string `envconfig:"MERCATA_PUBSUB_SETTLEMENT_TOPIC" default:"mercata-settlement-events"`
	SettlementSubscription string `envconfig:"MERCATA_PUBSUB_SETTLEMENT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MERCATA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MERCATA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MERCATA_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
