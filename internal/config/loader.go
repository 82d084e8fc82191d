package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<env>.yaml on top and lets
// environment variables override any key (database.dsn -> DATABASE_DSN).
func Load(paths ...string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./configs", "../../configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 1. Base config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2. Environment config (optional)
	v.SetConfigName("config." + env)
	_ = v.MergeInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = env
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// bindEnv registers the keys that may only ever come from the environment.
// AutomaticEnv alone does not see keys missing from every config file.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"database.dsn",
		"redis.address",
		"redis.password",
		"auth.jwt_secret",
		"humanizer.api_key",
		"billing.stripe_secret_key",
		"billing.stripe_webhook_secret",
		"logging.level",
	} {
		_ = v.BindEnv(key)
	}
}

func loadEnvFile() {
	candidates := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		candidates = append(candidates, filepath.Join(root, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ai-humanizer"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}

	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 25
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5 * time.Minute
	}

	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}

	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 72 * time.Hour
	}

	h := &cfg.Humanizer
	if h.BaseURL == "" {
		h.BaseURL = "https://humanize.undetectable.ai"
	}
	if h.Strength == "" {
		h.Strength = "More Human"
	}
	if h.Model == "" {
		h.Model = "v11"
	}
	if h.MinLength == 0 {
		h.MinLength = 50
	}
	if h.PollInterval == 0 {
		h.PollInterval = 5 * time.Second
	}
	if h.MaxPolls == 0 {
		h.MaxPolls = 120
	}
	if h.RequestTimeout == 0 {
		h.RequestTimeout = 30 * time.Second
	}

	if cfg.Detector.URL == "" {
		cfg.Detector.URL = "https://api.openai-detector.com/api/detect"
	}
	if cfg.Detector.Timeout == 0 {
		cfg.Detector.Timeout = 30 * time.Second
	}

	if cfg.Billing.ContactEmail == "" {
		cfg.Billing.ContactEmail = "humanizingaisupport@gmail.com"
	}

	if cfg.Jobs.PruneInterval == 0 {
		cfg.Jobs.PruneInterval = time.Minute
	}
	if cfg.Jobs.Retention == 0 {
		cfg.Jobs.Retention = 30 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn is required (DATABASE_DSN)")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (AUTH_JWT_SECRET)")
	}
	if len(cfg.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwt_secret must be at least 16 characters")
	}
	if cfg.Humanizer.PollInterval < 0 || cfg.Humanizer.MaxPolls < 0 {
		return errors.New("humanizer poll settings must be positive")
	}
	if cfg.Auth.SignupBonus < 0 {
		return errors.New("auth.signup_bonus must not be negative")
	}
	return nil
}
