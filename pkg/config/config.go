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
	Paystack      PaystackConfig
	Firebase      FirebaseConfig
	Delivery      DeliveryConfig
	Notifications NotificationsConfig
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
	Env          string `envconfig:"SWIFTEATS_APP_ENV" required:"true"`
	Port         string `envconfig:"SWIFTEATS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWIFTEATS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWIFTEATS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SWIFTEATS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SWIFTEATS_DB_DSN"`
	Driver string `envconfig:"SWIFTEATS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SWIFTEATS_DB_HOST"`
	LegacyPort     int    `envconfig:"SWIFTEATS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SWIFTEATS_DB_USER"`
	LegacyPassword string `envconfig:"SWIFTEATS_DB_PASSWORD"`
	LegacyName     string `envconfig:"SWIFTEATS_DB_NAME"`
	LegacySSLMode  string `envconfig:"SWIFTEATS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SWIFTEATS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWIFTEATS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWIFTEATS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWIFTEATS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SWIFTEATS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SWIFTEATS_REDIS_ADDR"`
	Password     string        `envconfig:"SWIFTEATS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SWIFTEATS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SWIFTEATS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWIFTEATS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWIFTEATS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWIFTEATS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWIFTEATS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SWIFTEATS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SWIFTEATS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SWIFTEATS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SWIFTEATS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SWIFTEATS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SWIFTEATS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SWIFTEATS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SWIFTEATS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SWIFTEATS_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SWIFTEATS_AUTO_MIGRATE" default:"false"`
}

type PaystackConfig struct {
	SecretKey     string        `envconfig:"SWIFTEATS_PAYSTACK_SECRET_KEY"`
	WebhookSecret string        `envconfig:"SWIFTEATS_PAYSTACK_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"SWIFTEATS_PAYSTACK_BASE_URL"`
	Timeout       time.Duration `envconfig:"SWIFTEATS_PAYSTACK_TIMEOUT" default:"10s"`
}

type FirebaseConfig struct {
	CredentialsFile string `envconfig:"SWIFTEATS_FIREBASE_CREDENTIALS_FILE"`
	ProjectID       string `envconfig:"SWIFTEATS_FIREBASE_PROJECT_ID"`
}

type DeliveryConfig struct {
	BaseFee            string `envconfig:"SWIFTEATS_DELIVERY_BASE_FEE" default:"500.00"`
	OrderExpiryMinutes int    `envconfig:"SWIFTEATS_ORDER_EXPIRY_MINUTES" default:"60"`
}

type NotificationsConfig struct {
	RetentionDays int `envconfig:"SWIFTEATS_NOTIFICATION_RETENTION_DAYS" default:"30"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SWIFTEATS_LOGIN_RATE_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"SWIFTEATS_LOGIN_RATE_IP_LIMIT" default:"10"`
	LoginEmailLimit    int           `envconfig:"SWIFTEATS_LOGIN_RATE_EMAIL_LIMIT" default:"5"`
	RegisterWindow     time.Duration `envconfig:"SWIFTEATS_REGISTER_RATE_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"SWIFTEATS_REGISTER_RATE_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"SWIFTEATS_REGISTER_RATE_EMAIL_LIMIT" default:"3"`
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
