package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "APP_"

type Config struct {
	Port        string `koanf:"port"`
	Environment string `koanf:"environment"`
	ServiceName string `koanf:"service_name"`
	LogLevelRaw string `koanf:"log_level"`

	LogLevel slog.Level `koanf:"-"`

	DatabaseURL string         `koanf:"database_url"`
	Database    DatabaseConfig `koanf:"database"`
	RedisURL    string         `koanf:"redis_url"`

	Server        ServerConfig        `koanf:"server"`
	JWT           JWTConfig           `koanf:"jwt"`
	BcryptCost    int                 `koanf:"bcrypt_cost"`
	PasswordReset PasswordResetConfig `koanf:"password_reset"`
	SMTP          SMTPConfig          `koanf:"smtp"`
	YouTube       YouTubeConfig       `koanf:"youtube"`
	Kafka         KafkaConfig         `koanf:"kafka"`
	CORS          CORSConfig          `koanf:"cors"`
}

type ServerConfig struct {
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type JWTConfig struct {
	AccessSecret  string        `koanf:"access_secret"`
	RefreshSecret string        `koanf:"refresh_secret"`
	AccessTTL     time.Duration `koanf:"access_ttl"`
	RefreshTTL    time.Duration `koanf:"refresh_ttl"`
	Issuer        string        `koanf:"issuer"`
}

type PasswordResetConfig struct {
	TokenTTL    time.Duration `koanf:"token_ttl"`
	RateWindow  time.Duration `koanf:"rate_window"`
	FrontendURL string        `koanf:"frontend_url"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	UseTLS   bool   `koanf:"tls"`
}

// Enabled reports whether outbound mail is configured
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

type YouTubeConfig struct {
	APIKey         string `koanf:"api_key"`
	Endpoint       string `koanf:"endpoint"`
	MaxConcurrency int    `koanf:"max_concurrency"`
}

type KafkaConfig struct {
	Brokers       []string `koanf:"brokers"`
	ConsumerGroup string   `koanf:"consumer_group"`
}

// Enabled reports whether events go to Kafka rather than the in-process bus
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type CORSConfig struct {
	AllowOrigins []string `koanf:"allow_origins"`
}

func defaultConfig() *Config {
	return &Config{
		Port:        "8080",
		Environment: "development",
		ServiceName: "course-marketplace",
		LogLevelRaw: "info",
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Server: ServerConfig{
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "course-marketplace",
		},
		BcryptCost: 10,
		PasswordReset: PasswordResetConfig{
			TokenTTL:    10 * time.Minute,
			RateWindow:  60 * time.Second,
			FrontendURL: "http://localhost:3000",
		},
		SMTP: SMTPConfig{
			Port:   587,
			UseTLS: true,
		},
		YouTube: YouTubeConfig{
			MaxConcurrency: 8,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "course-marketplace",
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
		},
	}
}

// LoadConfig layers defaults, an optional YAML file and APP_* environment
// variables. A double underscore in a variable name nests: APP_JWT__ACCESS_TTL.
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	k := koanf.New(".")

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) finalize() error {
	if err := c.LogLevel.UnmarshalText([]byte(c.LogLevelRaw)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevelRaw, err)
	}
	return c.Validate()
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required"))
	}
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("jwt access_secret and refresh_secret are required"))
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("jwt access and refresh secrets must differ"))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("jwt ttls must be positive"))
	}
	if c.PasswordReset.TokenTTL <= 0 || c.PasswordReset.RateWindow <= 0 {
		errs = append(errs, errors.New("password reset ttls must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("bcrypt_cost %d out of range", c.BcryptCost))
	}
	if c.YouTube.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("youtube max_concurrency must be positive"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
