package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Session       SessionConfig       `mapstructure:"session"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Stripe        StripeConfig        `mapstructure:"stripe"`
	Billing       BillingConfig       `mapstructure:"billing"`
	Email         EmailConfig         `mapstructure:"email"`
	PasswordReset PasswordResetConfig `mapstructure:"password_reset"`
	Workers       WorkersConfig       `mapstructure:"workers"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// PublicURL is the frontend origin used in links and QR codes.
	PublicURL string `mapstructure:"public_url"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type JWTConfig struct {
	Secret          string        `mapstructure:"secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	Secure     bool   `mapstructure:"secure"`
}

type RateLimitConfig struct {
	AuthPerMinute int `mapstructure:"auth_per_minute"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
	SuccessURL    string `mapstructure:"success_url"`
	CancelURL     string `mapstructure:"cancel_url"`
}

type BillingConfig struct {
	SubscriptionPeriod time.Duration `mapstructure:"subscription_period"`
	FreePlanName       string        `mapstructure:"free_plan_name"`
	PlanCacheTTL       time.Duration `mapstructure:"plan_cache_ttl"`
}

type EmailConfig struct {
	Provider string     `mapstructure:"provider"`
	SMTP     SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

type PasswordResetConfig struct {
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	ResetURL string        `mapstructure:"reset_url"`
}

type WorkersConfig struct {
	EventRetryInterval        time.Duration `mapstructure:"event_retry_interval"`
	SubscriptionSweepInterval time.Duration `mapstructure:"subscription_sweep_interval"`
	ResetTokenSweepInterval   time.Duration `mapstructure:"reset_token_sweep_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.public_url", "http://localhost:3000")

	v.SetDefault("database.url", "file:./data/checkops.db")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("jwt.access_token_ttl", 24*time.Hour)
	v.SetDefault("jwt.refresh_token_ttl", 30*24*time.Hour)

	v.SetDefault("session.cookie_name", "checkops_session")

	v.SetDefault("rate_limit.auth_per_minute", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)

	v.SetDefault("stripe.currency", "usd")

	v.SetDefault("billing.subscription_period", 30*24*time.Hour)
	v.SetDefault("billing.free_plan_name", "Free")
	v.SetDefault("billing.plan_cache_ttl", 5*time.Minute)

	v.SetDefault("email.provider", "log")

	v.SetDefault("password_reset.token_ttl", time.Hour)

	v.SetDefault("workers.event_retry_interval", 5*time.Minute)
	v.SetDefault("workers.subscription_sweep_interval", time.Hour)
	v.SetDefault("workers.reset_token_sweep_interval", 6*time.Hour)
}

// DefaultPath is CONFIG_PATH when set, otherwise configs/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

// Load reads the YAML file at path, then overlays environment variables
// (a .env file in the working directory is honoured when present).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	return nil
}
