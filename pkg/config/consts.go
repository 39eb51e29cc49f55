package config

// EnvPrefix scopes every environment variable the platform reads.
const EnvPrefix = "SWIFTEATS"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Env var names referenced outside struct tags (tests, error messages).
const (
	EnvAppEnv     = "SWIFTEATS_APP_ENV"
	EnvPort       = "SWIFTEATS_APP_PORT"
	EnvDBDSN      = "SWIFTEATS_DB_DSN"
	EnvDBHost     = "SWIFTEATS_DB_HOST"
	EnvDBUser     = "SWIFTEATS_DB_USER"
	EnvDBName     = "SWIFTEATS_DB_NAME"
	EnvRedisURL   = "SWIFTEATS_REDIS_URL"
	EnvJWTSecret  = "SWIFTEATS_JWT_SECRET"
	EnvJWTIssuer  = "SWIFTEATS_JWT_ISSUER"
	EnvJWTExpMins = "SWIFTEATS_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
