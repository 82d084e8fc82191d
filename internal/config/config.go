package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Humanizer HumanizerConfig `mapstructure:"humanizer"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds the MySQL pool settings.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds session signing settings.
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	SignupBonus int64         `mapstructure:"signup_bonus"`
}

// HumanizerConfig describes the upstream humanization service and the polling policy.
type HumanizerConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Strength       string        `mapstructure:"strength"`
	Model          string        `mapstructure:"model"`
	MinLength      int           `mapstructure:"min_length"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MaxPolls       int           `mapstructure:"max_polls"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DetectorConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BillingConfig holds the payment processor settings.
type BillingConfig struct {
	StripeSecretKey     string            `mapstructure:"stripe_secret_key"`
	StripeWebhookSecret string            `mapstructure:"stripe_webhook_secret"`
	PriceIDs            map[string]string `mapstructure:"price_ids"`
	SuccessURL          string            `mapstructure:"success_url"`
	CancelURL           string            `mapstructure:"cancel_url"`
	ContactEmail        string            `mapstructure:"contact_email"`
}

// JobsConfig controls the background pruning of resolved humanize jobs.
type JobsConfig struct {
	PruneInterval time.Duration `mapstructure:"prune_interval"`
	Retention     time.Duration `mapstructure:"retention"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
