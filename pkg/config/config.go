package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "prepalettres"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "PREPALETTRES_APP_ENV"
	EnvDBDSN  = "PREPALETTRES_DB_DSN"
	EnvDBHost = "PREPALETTRES_DB_HOST"
	EnvDBUser = "PREPALETTRES_DB_USER"
	EnvDBName = "PREPALETTRES_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	AI           AIConfig
	RateLimit    RateLimitConfig
	Entitlements EntitlementsConfig
	FeatureFlags FeatureFlags
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
	Env          string `envconfig:"PREPALETTRES_APP_ENV" required:"true"`
	Port         string `envconfig:"PREPALETTRES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PREPALETTRES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PREPALETTRES_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"PREPALETTRES_DB_DSN"`

	LegacyHost     string `envconfig:"PREPALETTRES_DB_HOST"`
	LegacyPort     int    `envconfig:"PREPALETTRES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PREPALETTRES_DB_USER"`
	LegacyPassword string `envconfig:"PREPALETTRES_DB_PASSWORD"`
	LegacyName     string `envconfig:"PREPALETTRES_DB_NAME"`
	LegacySSLMode  string `envconfig:"PREPALETTRES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PREPALETTRES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PREPALETTRES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PREPALETTRES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PREPALETTRES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional: when no URL or address is configured the API falls
// back to in-process counters for rate limiting and webhook idempotency.
type RedisConfig struct {
	URL          string        `envconfig:"PREPALETTRES_REDIS_URL"`
	Address      string        `envconfig:"PREPALETTRES_REDIS_ADDR"`
	Password     string        `envconfig:"PREPALETTRES_REDIS_PASSWORD"`
	DB           int           `envconfig:"PREPALETTRES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PREPALETTRES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PREPALETTRES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PREPALETTRES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PREPALETTRES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PREPALETTRES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis backend was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// JWTConfig holds the secret shared with the auth provider. Tokens are issued
// by Supabase Auth; the API only verifies them.
type JWTConfig struct {
	Secret string `envconfig:"PREPALETTRES_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"PREPALETTRES_JWT_ISSUER" default:"supabase"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"PREPALETTRES_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"PREPALETTRES_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"PREPALETTRES_STRIPE_ENV" default:"test"`

	PricePremiumMonthly  string `envconfig:"PREPALETTRES_STRIPE_PRICE_PREMIUM_MONTHLY"`
	PricePremiumYearly   string `envconfig:"PREPALETTRES_STRIPE_PRICE_PREMIUM_YEARLY"`
	PriceTutoringMonthly string `envconfig:"PREPALETTRES_STRIPE_PRICE_TUTORING_MONTHLY"`
	PriceTutoringYearly  string `envconfig:"PREPALETTRES_STRIPE_PRICE_TUTORING_YEARLY"`
	PriceTeacherMonthly  string `envconfig:"PREPALETTRES_STRIPE_PRICE_TEACHER_MONTHLY"`
	PriceTeacherYearly   string `envconfig:"PREPALETTRES_STRIPE_PRICE_TEACHER_YEARLY"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// AIConfig selects and tunes the generation backend. An empty APIKey switches
// the façade to the deterministic offline generator.
type AIConfig struct {
	APIKey         string        `envconfig:"PREPALETTRES_AI_API_KEY"`
	BaseURL        string        `envconfig:"PREPALETTRES_AI_BASE_URL" default:"https://api.deepseek.com/v1"`
	Model          string        `envconfig:"PREPALETTRES_AI_MODEL" default:"deepseek-chat"`
	Timeout        time.Duration `envconfig:"PREPALETTRES_AI_TIMEOUT" default:"60s"`
	MaxRetries     int           `envconfig:"PREPALETTRES_AI_MAX_RETRIES" default:"2"`
	RetryBaseDelay time.Duration `envconfig:"PREPALETTRES_AI_RETRY_BASE_DELAY" default:"500ms"`
}

// LiveEnabled reports whether a generation credential was configured.
func (a AIConfig) LiveEnabled() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

type RateLimitConfig struct {
	AIWindow  time.Duration `envconfig:"PREPALETTRES_RATE_LIMIT_AI_WINDOW" default:"1m"`
	AIIPLimit int           `envconfig:"PREPALETTRES_RATE_LIMIT_AI_IP_LIMIT" default:"20"`
}

// EntitlementsConfig exposes the product-policy knobs that must not be
// hardcoded: what the resolver grants while the store is unreachable, and how
// long past_due keeps its features.
type EntitlementsConfig struct {
	FallbackWeeklyAllowance int           `envconfig:"PREPALETTRES_ENTITLEMENTS_FALLBACK_WEEKLY_ALLOWANCE" default:"3"`
	FallbackHasAI           bool          `envconfig:"PREPALETTRES_ENTITLEMENTS_FALLBACK_HAS_AI" default:"true"`
	PastDueGrace            time.Duration `envconfig:"PREPALETTRES_ENTITLEMENTS_PAST_DUE_GRACE" default:"72h"`
	WebhookIdempotencyTTL   time.Duration `envconfig:"PREPALETTRES_ENTITLEMENTS_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type FeatureFlags struct {
	AutoMigrate bool `envconfig:"PREPALETTRES_FEATURE_AUTO_MIGRATE" default:"false"`
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
