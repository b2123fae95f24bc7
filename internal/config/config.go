// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultJWTSecret     = "your-secret-key-change-in-production"
	defaultAdminPassword = "ChangeMe123!"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DBDriver                 string `mapstructure:"DB_DRIVER"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBSQLitePath             string `mapstructure:"DB_SQLITE_PATH"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSlowQueryMS            int    `mapstructure:"DB_SLOW_QUERY_MS"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTTTLHours int    `mapstructure:"JWT_TTL_HOURS"`
	BcryptCost  int    `mapstructure:"BCRYPT_COST"`

	SeedAdminEmail    string `mapstructure:"SEED_ADMIN_EMAIL"`
	SeedAdminNickname string `mapstructure:"SEED_ADMIN_NICKNAME"`
	SeedAdminPassword string `mapstructure:"SEED_ADMIN_PASSWORD"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	// The base file is optional; env vars and defaults are enough to run.
	_ = v.ReadInConfig()

	env := strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))
	if env == "" {
		env = "development"
	}

	if env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err == nil {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		} else if IsProduction(env) {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
	}

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "agora")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "agora.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	v.SetDefault("DB_SLOW_QUERY_MS", 200)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL_HOURS", 24*7)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("SEED_ADMIN_EMAIL", "admin@agora.local")
	v.SetDefault("SEED_ADMIN_NICKNAME", "admin")
	v.SetDefault("SEED_ADMIN_PASSWORD", defaultAdminPassword)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.SeedAdminEmail = strings.ToLower(strings.TrimSpace(c.SeedAdminEmail))

	// Isolated test runs share one connection so statements serialize.
	if c.Env == "test" {
		c.DBMaxOpenConns = 1
		c.DBMaxIdleConns = 1
	}
}

// IsProduction reports whether env names a production-like environment.
func IsProduction(env string) bool {
	e := strings.ToLower(strings.TrimSpace(env))
	return e == "production" || e == "prod"
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DBMaxOpenConns < 1 {
		return errors.New("DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.DBConnMaxLifetimeMinutes < 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must not be negative")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("BCRYPT_COST must be between 4 and 31")
	}
	if c.SeedAdminEmail == "" || c.SeedAdminNickname == "" {
		return errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_NICKNAME are required")
	}

	if IsProduction(c.Env) {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBDriver == "postgres" {
			if c.DBPassword == "password" || c.DBPassword == "" {
				return errors.New("a strong DB_PASSWORD is required in production")
			}
			if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
				return errors.New("DB_SSLMODE must not be 'disable' in production")
			}
		}
		if c.SeedAdminPassword == defaultAdminPassword {
			return errors.New("SEED_ADMIN_PASSWORD must be changed from the default value in production")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// PostgresDSN builds the key/value connection string used by the postgres driver.
func (c *Config) PostgresDSN() string {
	sslMode := c.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, sslMode,
	)
}
