package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Stripe        StripeConfig
	Checkout      CheckoutConfig
	Cron          CronConfig
	Outbox        OutboxConfig
}

// Load reads the environment and reports every cross-field problem at once
// so a misconfigured deploy fails with the full list.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	err := multierr.Combine(
		cfg.DB.ensureDSN(),
		cfg.Redis.validate(),
		cfg.JWT.validate(),
		cfg.Stripe.validate(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAINTSIP_APP_ENV" required:"true"`
	Port         string `envconfig:"PAINTSIP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAINTSIP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAINTSIP_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PAINTSIP_LOG_FORMAT" default:"json"`
	PublicURL    string `envconfig:"PAINTSIP_PUBLIC_URL" default:"http://localhost:3000"`
	CORSOrigins  string `envconfig:"PAINTSIP_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	out := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"PAINTSIP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PAINTSIP_DB_DSN"`
	Driver string `envconfig:"PAINTSIP_DB_DRIVER" default:"postgres"`

	// Used only when DSN is empty.
	Host     string `envconfig:"PAINTSIP_DB_HOST"`
	Port     int    `envconfig:"PAINTSIP_DB_PORT" default:"5432"`
	User     string `envconfig:"PAINTSIP_DB_USER"`
	Password string `envconfig:"PAINTSIP_DB_PASSWORD"`
	Name     string `envconfig:"PAINTSIP_DB_NAME"`
	SSLMode  string `envconfig:"PAINTSIP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAINTSIP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAINTSIP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAINTSIP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAINTSIP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PAINTSIP_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAINTSIP_REDIS_URL"`
	Address      string        `envconfig:"PAINTSIP_REDIS_ADDR"`
	Password     string        `envconfig:"PAINTSIP_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAINTSIP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAINTSIP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAINTSIP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAINTSIP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAINTSIP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAINTSIP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) validate() error {
	if strings.TrimSpace(r.URL) == "" && strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("one of %s or %s is required", EnvRedisURL, EnvRedisAddr)
	}
	return nil
}

type JWTConfig struct {
	Secret                 string `envconfig:"PAINTSIP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PAINTSIP_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PAINTSIP_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"PAINTSIP_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL is zero when unset or negative.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

func (j JWTConfig) validate() error {
	if j.ExpirationMinutes <= 0 {
		return fmt.Errorf("%s must be positive", EnvJWTExpMins)
	}
	if j.RefreshTokenTTLMinutes <= j.ExpirationMinutes {
		return fmt.Errorf("%s must exceed %s", EnvRefreshTokenTTLMinutes, EnvJWTExpMins)
	}
	return nil
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PAINTSIP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PAINTSIP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PAINTSIP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PAINTSIP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PAINTSIP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PAINTSIP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"PAINTSIP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PAINTSIP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"PAINTSIP_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"PAINTSIP_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"PAINTSIP_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PAINTSIP_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PAINTSIP_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PAINTSIP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PAINTSIP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"PAINTSIP_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"PAINTSIP_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type MediaConfig struct {
	MaxUploadMB    int `envconfig:"PAINTSIP_MAX_UPLOAD_MB" default:"5"`
	ImageMaxWidth  int `envconfig:"PAINTSIP_MEDIA_IMAGE_MAX_WIDTH" default:"1920"`
	ImageMaxHeight int `envconfig:"PAINTSIP_MEDIA_IMAGE_MAX_HEIGHT" default:"1920"`
	ImageQuality   int `envconfig:"PAINTSIP_MEDIA_IMAGE_QUALITY" default:"85"`
}

// MaxUploadBytes converts the configured upload limit to bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 5 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	BookingsTopic string `envconfig:"PAINTSIP_PUBSUB_BOOKINGS_TOPIC" default:"ps-booking-events"`
	AccountsTopic string `envconfig:"PAINTSIP_PUBSUB_ACCOUNTS_TOPIC" default:"ps-account-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PAINTSIP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"PAINTSIP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"PAINTSIP_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"PAINTSIP_OUTBOX_RETENTION" default:"720h"`
	DLQRetention   time.Duration `envconfig:"PAINTSIP_OUTBOX_DLQ_RETENTION" default:"2160h"`
}

type StripeConfig struct {
	APIKey               string `envconfig:"PAINTSIP_STRIPE_API_KEY"`
	WebhookSecret        string `envconfig:"PAINTSIP_STRIPE_WEBHOOK_SECRET"`
	ConnectWebhookSecret string `envconfig:"PAINTSIP_STRIPE_WEBHOOK_SECRET_CONNECT"`
	Env                  string `envconfig:"PAINTSIP_STRIPE_ENV" default:"test"`
	Currency             string `envconfig:"PAINTSIP_STRIPE_CURRENCY" default:"usd"`
	BusinessURL          string `envconfig:"PAINTSIP_STRIPE_BUSINESS_URL" default:"https://www.paintsipdepot.com/"`
	ProductDescription   string `envconfig:"PAINTSIP_STRIPE_PRODUCT_DESCRIPTION" default:"Paint & Sip Depot is an events platform where hosts sell tickets to guided painting events."`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

func (s StripeConfig) validate() error {
	switch s.Environment() {
	case "test", "live":
	default:
		return fmt.Errorf("%s must be test or live", EnvStripeEnv)
	}
	return nil
}

type CheckoutConfig struct {
	PendingBookingTTL time.Duration `envconfig:"PAINTSIP_CHECKOUT_PENDING_TTL" default:"25h"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"PAINTSIP_CRON_INTERVAL" default:"5m"`
	AccountSyncMaxAge time.Duration `envconfig:"PAINTSIP_CRON_ACCOUNT_SYNC_MAX_AGE" default:"6h"`
	AccountSyncBatch  int           `envconfig:"PAINTSIP_CRON_ACCOUNT_SYNC_BATCH" default:"50"`
}

// ensureDSN assembles a postgres URL from the individual parts when no DSN
// is given.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	parts := []struct{ env, value string }{
		{EnvDBHost, db.Host},
		{EnvDBUser, db.User},
		{EnvDBName, db.Name},
	}
	missing := []string{}
	for _, p := range parts {
		if strings.TrimSpace(p.value) == "" {
			missing = append(missing, p.env)
		}
	}
	if len(missing) > 0 {
		return errors.New("either " + EnvDBDSN + " or " + strings.Join(missing, ", ") + " are required")
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   db.Host + ":" + strconv.Itoa(db.Port),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}
