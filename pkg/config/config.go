package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Cart         CartConfig
	Reconcile    ReconcileConfig
	RateLimit    RateLimitConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Checkout.Fee(); err != nil {
		return nil, err
	}
	if _, err := cfg.Reconcile.verifyMode(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FARMFRESH_APP_ENV" required:"true"`
	Port         string `envconfig:"FARMFRESH_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FARMFRESH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FARMFRESH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FARMFRESH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FARMFRESH_DB_DSN"`
	Driver string `envconfig:"FARMFRESH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FARMFRESH_DB_HOST"`
	LegacyPort     int    `envconfig:"FARMFRESH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FARMFRESH_DB_USER"`
	LegacyPassword string `envconfig:"FARMFRESH_DB_PASSWORD"`
	LegacyName     string `envconfig:"FARMFRESH_DB_NAME"`
	LegacySSLMode  string `envconfig:"FARMFRESH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FARMFRESH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FARMFRESH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FARMFRESH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FARMFRESH_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements at warn when they run longer; zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"FARMFRESH_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

// IsSQLite reports whether the sqlite driver was requested.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"FARMFRESH_REDIS_URL"`
	Address      string        `envconfig:"FARMFRESH_REDIS_ADDR"`
	Password     string        `envconfig:"FARMFRESH_REDIS_PASSWORD"`
	DB           int           `envconfig:"FARMFRESH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FARMFRESH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FARMFRESH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FARMFRESH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FARMFRESH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FARMFRESH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FARMFRESH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FARMFRESH_JWT_ISSUER" required:"true"`
	Audience          string `envconfig:"FARMFRESH_JWT_AUDIENCE"`
	ExpirationMinutes int    `envconfig:"FARMFRESH_JWT_EXPIRATION_MINUTES" default:"60"`

	// ClockSkew is the leeway applied to exp, nbf and iat checks.
	ClockSkew time.Duration `envconfig:"FARMFRESH_JWT_CLOCK_SKEW" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FARMFRESH_AUTO_MIGRATE" default:"false"`
	// RequireFarmerRole restricts listing and seller views to tokens carrying role=farmer.
	RequireFarmerRole bool `envconfig:"FARMFRESH_REQUIRE_FARMER_ROLE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"FARMFRESH_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"FARMFRESH_PUBSUB_ORDERS_TOPIC" default:"ff-order-events"`
	CatalogTopic       string `envconfig:"FARMFRESH_PUBSUB_CATALOG_TOPIC" default:"ff-catalog-events"`
	OrdersSubscription string `envconfig:"FARMFRESH_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type StripeConfig struct {
	APIKey string `envconfig:"FARMFRESH_STRIPE_API_KEY"`
	Secret string `envconfig:"FARMFRESH_STRIPE_SECRET"`
	Env    string `envconfig:"FARMFRESH_STRIPE_ENV" default:"test"`

	// WebhookTolerance bounds the age of a signed webhook timestamp.
	WebhookTolerance time.Duration `envconfig:"FARMFRESH_STRIPE_WEBHOOK_TOLERANCE" default:"5m"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	Currency           string   `envconfig:"FARMFRESH_CHECKOUT_CURRENCY" default:"inr"`
	DeliveryFee        string   `envconfig:"FARMFRESH_CHECKOUT_DELIVERY_FEE" default:"50"`
	DefaultOrigin      string   `envconfig:"FARMFRESH_CHECKOUT_DEFAULT_ORIGIN" default:"http://localhost:8080"`
	PaymentMethodTypes []string `envconfig:"FARMFRESH_CHECKOUT_PAYMENT_METHOD_TYPES" default:"card"`
	AllowedOrigins     []string `envconfig:"FARMFRESH_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
}

// Fee parses the configured delivery surcharge.
func (c CheckoutConfig) Fee() (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.DeliveryFee)
	if raw == "" {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", EnvCheckoutDeliveryFee, c.DeliveryFee, err)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", EnvCheckoutDeliveryFee)
	}
	return fee, nil
}

type CartConfig struct {
	TTL time.Duration `envconfig:"FARMFRESH_CART_TTL" default:"720h"`
}

type ReconcileConfig struct {
	Transactional bool          `envconfig:"FARMFRESH_RECONCILE_TRANSACTIONAL" default:"true"`
	// VerifyPayment is auto, true or false. auto verifies whenever Stripe
	// is configured.
	VerifyPayment string        `envconfig:"FARMFRESH_RECONCILE_VERIFY_PAYMENT" default:"auto"`
	LedgerTTL     time.Duration `envconfig:"FARMFRESH_RECONCILE_LEDGER_TTL" default:"720h"`
	ClaimTTL      time.Duration `envconfig:"FARMFRESH_RECONCILE_CLAIM_TTL" default:"2m"`
}

const verifyAuto = "auto"

func (c ReconcileConfig) verifyMode() (string, error) {
	mode := strings.ToLower(strings.TrimSpace(c.VerifyPayment))
	if mode == "" || mode == verifyAuto {
		return verifyAuto, nil
	}
	if _, err := strconv.ParseBool(mode); err != nil {
		return "", fmt.Errorf("FARMFRESH_RECONCILE_VERIFY_PAYMENT must be auto, true or false, got %q", c.VerifyPayment)
	}
	return mode, nil
}

// VerifyPaymentRequested reports whether reconciliation should check the
// session with the provider, given whether a provider is configured.
func (c ReconcileConfig) VerifyPaymentRequested(providerConfigured bool) bool {
	mode, err := c.verifyMode()
	if err != nil {
		return true
	}
	if mode == verifyAuto {
		return providerConfigured
	}
	on, _ := strconv.ParseBool(mode)
	return on
}

type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"FARMFRESH_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"FARMFRESH_RATE_LIMIT_CHECKOUT_LIMIT" default:"20"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FARMFRESH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FARMFRESH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FARMFRESH_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"FARMFRESH_OUTBOX_RETENTION_DAYS" default:"30"`

	// MetricsAddr enables a Prometheus listener on the publisher when set.
	MetricsAddr string `envconfig:"FARMFRESH_OUTBOX_METRICS_ADDR"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"FARMFRESH_CRON_INTERVAL" default:"15m"`
	PartialOrderGrace time.Duration `envconfig:"FARMFRESH_CRON_PARTIAL_ORDER_GRACE" default:"10m"`
	JobTimeout        time.Duration `envconfig:"FARMFRESH_CRON_JOB_TIMEOUT" default:"10m"`
	LockTTL           time.Duration `envconfig:"FARMFRESH_CRON_LOCK_TTL" default:"30m"`

	// MetricsAddr enables a Prometheus listener on the worker when set.
	MetricsAddr string `envconfig:"FARMFRESH_CRON_METRICS_ADDR"`
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
