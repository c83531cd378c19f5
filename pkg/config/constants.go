package config

// EnvPrefix is passed to envconfig; individual fields carry explicit
// COMPLYPOINT_ tags so the prefix is informational only.
const EnvPrefix = "COMPLYPOINT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Canonical environment variable names. Kept as constants so tests and
// tooling never drift from the envconfig tags.
const (
	EnvAppEnv                  = "COMPLYPOINT_APP_ENV"
	EnvPort                    = "COMPLYPOINT_APP_PORT"
	EnvLogLevel                = "COMPLYPOINT_LOG_LEVEL"
	EnvDBDSN                   = "COMPLYPOINT_DB_DSN"
	EnvDBHost                  = "COMPLYPOINT_DB_HOST"
	EnvDBPort                  = "COMPLYPOINT_DB_PORT"
	EnvDBUser                  = "COMPLYPOINT_DB_USER"
	EnvDBPassword              = "COMPLYPOINT_DB_PASSWORD"
	EnvDBName                  = "COMPLYPOINT_DB_NAME"
	EnvRedisURL                = "COMPLYPOINT_REDIS_URL"
	EnvJWTSecret               = "COMPLYPOINT_JWT_SECRET"
	EnvJWTIssuer               = "COMPLYPOINT_JWT_ISSUER"
	EnvJWTExpMins              = "COMPLYPOINT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "COMPLYPOINT_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID            = "COMPLYPOINT_GCP_PROJECT_ID"
	EnvPubSubNotificationTopic = "COMPLYPOINT_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "COMPLYPOINT_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

// legacyDBEnvVars are the discrete connection vars accepted when
// COMPLYPOINT_DB_DSN is not set.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
