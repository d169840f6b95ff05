package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	Outbox     OutboxConfig
	Sync       SyncConfig
	Accounting AccountingConfig
	Eventing   EventingConfig
	Flags      FeatureFlagsConfig
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
	Env          string `envconfig:"PRODFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"PRODFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRODFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRODFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PRODFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PRODFLOW_DB_DSN"`
	Driver string `envconfig:"PRODFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRODFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"PRODFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRODFLOW_DB_USER"`
	LegacyPassword string `envconfig:"PRODFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRODFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRODFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRODFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRODFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRODFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRODFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRODFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PRODFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"PRODFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRODFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRODFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRODFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRODFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRODFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRODFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PRODFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PRODFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PRODFLOW_JWT_EXPIRATION_MINUTES" required:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PRODFLOW_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PRODFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PRODFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"PRODFLOW_PUBSUB_DOMAIN_TOPIC" default:"prodflow-domain-events"`
	DomainSubscription string `envconfig:"PRODFLOW_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PRODFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PRODFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PRODFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"PRODFLOW_OUTBOX_RETENTION_DAYS" default:"14"`
}

type SyncConfig struct {
	AccountingSchedule   string `envconfig:"PRODFLOW_SYNC_ACCOUNTING_SCHEDULE" default:"*/15 * * * *"`
	CleanupSchedule      string `envconfig:"PRODFLOW_SYNC_CLEANUP_SCHEDULE" default:"30 3 * * *"`
	NotificationDays     int    `envconfig:"PRODFLOW_SYNC_NOTIFICATION_RETENTION_DAYS" default:"30"`
	LockTTLMinutes       int    `envconfig:"PRODFLOW_SYNC_LOCK_TTL_MINUTES" default:"30"`
	MetricsListenAddress string `envconfig:"PRODFLOW_SYNC_METRICS_ADDR" default:":9102"`
}

type AccountingConfig struct {
	BaseURL        string        `envconfig:"PRODFLOW_ACCOUNTING_BASE_URL"`
	APIKey         string        `envconfig:"PRODFLOW_ACCOUNTING_API_KEY"`
	RequestTimeout time.Duration `envconfig:"PRODFLOW_ACCOUNTING_TIMEOUT" default:"30s"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PRODFLOW_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PRODFLOW_AUTO_MIGRATE" default:"false"`
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
