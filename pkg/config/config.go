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
	SMTP          SMTPConfig
	AbacatePay    AbacatePayConfig
	PagSeguro     PagSeguroConfig
	Fulfillment   FulfillmentConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"PIXKEYS_APP_ENV" required:"true"`
	Port         string `envconfig:"PIXKEYS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PIXKEYS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PIXKEYS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PIXKEYS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PIXKEYS_DB_DSN"`
	Driver string `envconfig:"PIXKEYS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PIXKEYS_DB_HOST"`
	LegacyPort     int    `envconfig:"PIXKEYS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PIXKEYS_DB_USER"`
	LegacyPassword string `envconfig:"PIXKEYS_DB_PASSWORD"`
	LegacyName     string `envconfig:"PIXKEYS_DB_NAME"`
	LegacySSLMode  string `envconfig:"PIXKEYS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PIXKEYS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PIXKEYS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PIXKEYS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PIXKEYS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PIXKEYS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PIXKEYS_REDIS_ADDR"`
	Password     string        `envconfig:"PIXKEYS_REDIS_PASSWORD"`
	DB           int           `envconfig:"PIXKEYS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PIXKEYS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PIXKEYS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PIXKEYS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PIXKEYS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PIXKEYS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PIXKEYS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PIXKEYS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PIXKEYS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"PIXKEYS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PIXKEYS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PIXKEYS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PIXKEYS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PIXKEYS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PIXKEYS_ARGON_KEY_LEN" default:"32"`
}

type SMTPConfig struct {
	Host        string        `envconfig:"PIXKEYS_SMTP_HOST"`
	Port        string        `envconfig:"PIXKEYS_SMTP_PORT" default:"587"`
	Username    string        `envconfig:"PIXKEYS_SMTP_USERNAME"`
	Password    string        `envconfig:"PIXKEYS_SMTP_PASSWORD"`
	FromAddress string        `envconfig:"PIXKEYS_SMTP_FROM"`
	SendTimeout time.Duration `envconfig:"PIXKEYS_SMTP_SEND_TIMEOUT" default:"15s"`
}

// Configured reports whether the provider credentials are present.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.Username != "" && s.Password != "" && s.FromAddress != ""
}

type AbacatePayConfig struct {
	BaseURL       string        `envconfig:"PIXKEYS_ABACATEPAY_BASE_URL" default:"https://api.abacatepay.com"`
	APIKey        string        `envconfig:"PIXKEYS_ABACATEPAY_API_KEY"`
	WebhookSecret string        `envconfig:"PIXKEYS_ABACATEPAY_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"PIXKEYS_ABACATEPAY_TIMEOUT" default:"10s"`
}

type PagSeguroConfig struct {
	BaseURL       string        `envconfig:"PIXKEYS_PAGSEGURO_BASE_URL" default:"https://api.pagseguro.com"`
	Token         string        `envconfig:"PIXKEYS_PAGSEGURO_TOKEN"`
	WebhookSecret string        `envconfig:"PIXKEYS_PAGSEGURO_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"PIXKEYS_PAGSEGURO_TIMEOUT" default:"10s"`
}

type FulfillmentConfig struct {
	PaymentPollInterval time.Duration `envconfig:"PIXKEYS_PAYMENT_POLL_INTERVAL" default:"60s"`
	ExpirySweepInterval time.Duration `envconfig:"PIXKEYS_EXPIRY_SWEEP_INTERVAL" default:"1h"`
	PendingOrderTTL     time.Duration `envconfig:"PIXKEYS_PENDING_ORDER_TTL" default:"24h"`
	WithdrawalFeeRate   string        `envconfig:"PIXKEYS_WITHDRAWAL_FEE_RATE" default:"0.05"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PIXKEYS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PIXKEYS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PIXKEYS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PIXKEYS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PIXKEYS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PIXKEYS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PIXKEYS_AUTO_MIGRATE" default:"false"`
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
