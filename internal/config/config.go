package config

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"neodukaan-backend/internal/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server struct {
		Port                   int      `mapstructure:"port"`
		CorsAllowedOrigins     []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods     []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders     []string `mapstructure:"cors_allowed_headers"`
		ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds"`
	} `mapstructure:"server"`

	Database struct {
		Driver   string `mapstructure:"driver"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	R2 R2Config `mapstructure:"r2"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Reports struct {
		CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
	} `mapstructure:"reports"`
}

// ShutdownTimeout is how long in-flight requests get after SIGTERM.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// ReportCacheTTL is the lifetime of cached report views.
func (c *Config) ReportCacheTTL() time.Duration {
	return time.Duration(c.Reports.CacheTTLSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type", "Idempotency-Key"})
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "neodukaan")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("jwt.expiration_hours", 24*7)
	v.SetDefault("jwt.issuer", "neodukaan-backend")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("r2.region", "auto")
	v.SetDefault("r2.bucket", "neodukaan-reports")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("reports.cache_ttl_seconds", 60)
}

// Load reads configs/config.yaml (optional), then .env and the environment.
func Load() (*Config, error) {
	return LoadFile("configs/config.yaml")
}

func LoadFile(path string) (*Config, error) {
	log := logger.For("config")

	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Info("No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Database.Driver != DriverPostgres && cfg.Database.Driver != DriverMemory {
		return nil, errors.New("database.driver must be postgres or memory")
	}

	// Override JWT secret from environment if not set
	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWT.Secret == "" && cfg.R2.Configured() {
		// Try to fetch from R2 backup (disaster recovery)
		log.Warn("JWT_SECRET not set, fetching from R2 backup")
		cfg.JWT.Secret = fetchJWTSecretFromR2(cfg.R2)
		if cfg.JWT.Secret != "" {
			log.Info("JWT secret loaded from R2 backup")
		}
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET not found in environment or R2 backup")
	}

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if port := envInt("PORT"); port > 0 {
		cfg.Server.Port = port
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		cfg.Database.Driver = driver
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := envInt("DB_PORT"); port > 0 {
		cfg.Database.Port = port
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}
	if endpoint := os.Getenv("R2_ENDPOINT"); endpoint != "" {
		cfg.R2.Endpoint = endpoint
	}
	if key := os.Getenv("R2_ACCESS_KEY"); key != "" {
		cfg.R2.AccessKey = key
	}
	if secret := os.Getenv("R2_SECRET_KEY"); secret != "" {
		cfg.R2.SecretKey = secret
	}
	if bucket := os.Getenv("R2_BUCKET"); bucket != "" {
		cfg.R2.Bucket = bucket
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

func envInt(key string) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}

// fetchJWTSecretFromR2 fetches JWT secret from R2 backup for disaster recovery
func fetchJWTSecretFromR2(r2 R2Config) string {
	log := logger.For("config")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewR2Client(ctx, r2)
	if err != nil {
		log.WithError(err).Error("Failed to configure R2 client")
		return ""
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r2.Bucket),
		Key:    aws.String(JWTSecretObjectKey),
	})
	if err != nil {
		log.WithError(err).Error("Failed to fetch JWT secret from R2")
		return ""
	}
	defer result.Body.Close()

	secret, err := io.ReadAll(result.Body)
	if err != nil {
		log.WithError(err).Error("Failed to read JWT secret")
		return ""
	}

	return strings.TrimSpace(string(secret))
}
