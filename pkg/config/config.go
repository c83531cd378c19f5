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
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Notify        NotifyConfig
	AuthRateLimit AuthRateLimitConfig
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
	Env          string `envconfig:"COMPLYPOINT_APP_ENV" required:"true"`
	Port         string `envconfig:"COMPLYPOINT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COMPLYPOINT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMPLYPOINT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COMPLYPOINT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COMPLYPOINT_DB_DSN"`
	Driver string `envconfig:"COMPLYPOINT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COMPLYPOINT_DB_HOST"`
	LegacyPort     int    `envconfig:"COMPLYPOINT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COMPLYPOINT_DB_USER"`
	LegacyPassword string `envconfig:"COMPLYPOINT_DB_PASSWORD"`
	LegacyName     string `envconfig:"COMPLYPOINT_DB_NAME"`
	LegacySSLMode  string `envconfig:"COMPLYPOINT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COMPLYPOINT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COMPLYPOINT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COMPLYPOINT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMPLYPOINT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COMPLYPOINT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COMPLYPOINT_REDIS_ADDR"`
	Password     string        `envconfig:"COMPLYPOINT_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMPLYPOINT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMPLYPOINT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMPLYPOINT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMPLYPOINT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMPLYPOINT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMPLYPOINT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"COMPLYPOINT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"COMPLYPOINT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"COMPLYPOINT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"COMPLYPOINT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"COMPLYPOINT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"COMPLYPOINT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"COMPLYPOINT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"COMPLYPOINT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"COMPLYPOINT_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COMPLYPOINT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COMPLYPOINT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"COMPLYPOINT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COMPLYPOINT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"COMPLYPOINT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COMPLYPOINT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"COMPLYPOINT_PUBSUB_NOTIFICATION_TOPIC" default:"cp-notification-events"`
	NotificationSubscription string `envconfig:"COMPLYPOINT_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COMPLYPOINT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COMPLYPOINT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"COMPLYPOINT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// NotifyConfig holds per-channel delivery settings for the fanout worker.
type NotifyConfig struct {
	PushEndpoint    string        `envconfig:"COMPLYPOINT_NOTIFY_PUSH_ENDPOINT"`
	PushAPIKey      string        `envconfig:"COMPLYPOINT_NOTIFY_PUSH_API_KEY"`
	EmailEndpoint   string        `envconfig:"COMPLYPOINT_NOTIFY_EMAIL_ENDPOINT"`
	EmailAPIKey     string        `envconfig:"COMPLYPOINT_NOTIFY_EMAIL_API_KEY"`
	EmailFrom       string        `envconfig:"COMPLYPOINT_NOTIFY_EMAIL_FROM" default:"no-reply@complypoint.io"`
	SMSEndpoint     string        `envconfig:"COMPLYPOINT_NOTIFY_SMS_ENDPOINT"`
	SMSAPIKey       string        `envconfig:"COMPLYPOINT_NOTIFY_SMS_API_KEY"`
	WebhookTimeout  time.Duration `envconfig:"COMPLYPOINT_NOTIFY_WEBHOOK_TIMEOUT" default:"10s"`
	DispatchTimeout time.Duration `envconfig:"COMPLYPOINT_NOTIFY_DISPATCH_TIMEOUT" default:"30s"`
	MaxAttempts     int           `envconfig:"COMPLYPOINT_NOTIFY_MAX_ATTEMPTS" default:"3"`
}

// AuthRateLimitConfig throttles credential-guessing traffic on the auth
// endpoints. Zero limits disable the corresponding counter.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"COMPLYPOINT_AUTH_RL_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"COMPLYPOINT_AUTH_RL_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit    int           `envconfig:"COMPLYPOINT_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"10"`
	RegisterWindow     time.Duration `envconfig:"COMPLYPOINT_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"COMPLYPOINT_AUTH_RL_REGISTER_IP_LIMIT" default:"30"`
	RegisterEmailLimit int           `envconfig:"COMPLYPOINT_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"5"`
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
