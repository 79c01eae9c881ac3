// Package config loads application configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Redis    RedisConfig
	Backup   BackupConfig
}

type AppConfig struct {
	Name    string
	Env     string
	Version string
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

type HTTPConfig struct {
	CORSOrigins       []string
	MaxBodySize       int64
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type BackupConfig struct {
	Dir string
	S3  S3Config
}

// S3Config configures off-site backup upload to any S3-compatible store
type S3Config struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	Prefix       string
}

// IsDevelopment reports whether verbose errors may be exposed to clients
func (c *Config) IsDevelopment() bool {
	return c.App.Env == EnvDevelopment
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// Load reads configuration from configs/.env, the config file and environment variables.
// Environment variables use the BOOKKEEPING_ prefix (BOOKKEEPING_JWT_SECRET, ...);
// PORT, JWT_SECRET and APP_ENV are honoured as well.
func Load(path string) (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load configs/.env: %w", err)
	}

	v := viper.New()
	applyDefaults(v)

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("BOOKKEEPING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "BOOKKEEPING_SERVER_PORT", "PORT")
	_ = v.BindEnv("jwt.secret", "BOOKKEEPING_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("app.env", "BOOKKEEPING_APP_ENV", "APP_ENV", "NODE_ENV")

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bookkeeping")
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("server.port", 3001)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.path", "data/bookkeeping.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", 24*time.Hour)
	v.SetDefault("jwt.issuer", "bookkeeping")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("http.max_body_size", int64(10<<20))
	v.SetDefault("http.rate_limit_requests", 100)
	v.SetDefault("http.rate_limit_window", 15*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("backup.dir", "data/backups")
	v.SetDefault("backup.s3.enabled", false)
	v.SetDefault("backup.s3.region", "us-east-1")
	v.SetDefault("backup.s3.use_path_style", true)
	v.SetDefault("backup.s3.prefix", "backups/")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     strings.ToLower(v.GetString("app.env")),
			Version: v.GetString("app.version"),
		},
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			LogLevel:        v.GetString("database.log_level"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetDuration("jwt.expiration"),
			Issuer:     v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			CORSOrigins:       v.GetStringSlice("http.cors_origins"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Backup: BackupConfig{
			Dir: v.GetString("backup.dir"),
			S3: S3Config{
				Enabled:      v.GetBool("backup.s3.enabled"),
				Endpoint:     v.GetString("backup.s3.endpoint"),
				Region:       v.GetString("backup.s3.region"),
				Bucket:       v.GetString("backup.s3.bucket"),
				AccessKey:    v.GetString("backup.s3.access_key"),
				SecretKey:    v.GetString("backup.s3.secret_key"),
				UsePathStyle: v.GetBool("backup.s3.use_path_style"),
				Prefix:       v.GetString("backup.s3.prefix"),
			},
		},
	}
}

// devSecret is only used outside production when no secret is configured
const devSecret = "development-only-secret-change-me-please-0123456789"

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	switch c.App.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("invalid app.env %q: must be development, production or test", c.App.Env)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}

	if c.JWT.Secret == "" {
		if c.IsProduction() {
			return errors.New("jwt.secret is required in production")
		}
		c.JWT.Secret = devSecret
	}
	if c.IsProduction() && len(c.JWT.Secret) < 32 {
		return errors.New("jwt.secret must be at least 32 characters in production")
	}
	if c.JWT.Expiration <= 0 {
		return errors.New("jwt.expiration must be positive")
	}

	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.HTTP.MaxBodySize <= 0 {
		return errors.New("http.max_body_size must be positive")
	}

	if c.Backup.S3.Enabled && c.Backup.S3.Bucket == "" {
		return errors.New("backup.s3.bucket is required when backup.s3.enabled is true")
	}
	return nil
}
