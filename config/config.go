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

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Store     StoreConfig
	Products  ProductsConfig
	Cache     CacheConfig
	Query     QueryConfig
	Seed      SeedConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig selects the logger encoder
type LogConfig struct {
	Mode string `mapstructure:"mode"` // "development" or "production"
}

// StoreConfig holds the unit catalog and property definition store
type StoreConfig struct {
	Type string `mapstructure:"type"` // "memory", "postgres" or "sqlite"
	DSN  string `mapstructure:"dsn"`
}

// ProductsConfig holds the product document store
type ProductsConfig struct {
	Backend         string `mapstructure:"backend"` // "memory", "sql" or "mongo"
	MongoURI        string `mapstructure:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type      string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL  string        `mapstructure:"redis_url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// QueryConfig tunes the property query builder
type QueryConfig struct {
	Tolerance         float64 `mapstructure:"tolerance"`
	LookupConcurrency int     `mapstructure:"lookup_concurrency"`
	PropertiesField   string  `mapstructure:"properties_field"`
	VariantsField     string  `mapstructure:"variants_field"`
	NormalizedField   string  `mapstructure:"normalized_field"`
}

// SeedConfig points at an optional YAML seed document
type SeedConfig struct {
	File string `mapstructure:"file"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per second, 0 disables
	Burst int `mapstructure:"burst"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/unitfilter/")

	v.SetEnvPrefix("UNITFILTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("log.mode", "development")

	v.SetDefault("store.type", "memory")
	v.SetDefault("store.dsn", "")

	v.SetDefault("products.backend", "memory")
	v.SetDefault("products.mongo_uri", "")
	v.SetDefault("products.mongo_database", "unitfilter")
	v.SetDefault("products.mongo_collection", "products")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", "unitfilter:")
	v.SetDefault("cache.ttl", "15m")

	v.SetDefault("query.tolerance", 0.01)
	v.SetDefault("query.lookup_concurrency", 8)
	v.SetDefault("query.properties_field", "properties")
	v.SetDefault("query.variants_field", "variants")
	v.SetDefault("query.normalized_field", "normalizedValue")

	v.SetDefault("seed.file", "")

	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 200)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Store.Type {
	case "memory":
	case "postgres", "sqlite":
		if config.Store.DSN == "" {
			return fmt.Errorf("store DSN is required when store type is '%s'", config.Store.Type)
		}
	default:
		return fmt.Errorf("store type must be 'memory', 'postgres' or 'sqlite', got: %s", config.Store.Type)
	}

	switch config.Products.Backend {
	case "memory":
	case "sql":
		if config.Store.Type == "memory" {
			return fmt.Errorf("products backend 'sql' requires a postgres or sqlite store")
		}
	case "mongo":
		if config.Products.MongoURI == "" {
			return fmt.Errorf("mongo URI is required when products backend is 'mongo'")
		}
	default:
		return fmt.Errorf("products backend must be 'memory', 'sql' or 'mongo', got: %s", config.Products.Backend)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}
	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Query.Tolerance <= 0 {
		return fmt.Errorf("query tolerance must be positive, got: %v", config.Query.Tolerance)
	}
	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("rate limit must not be negative, got: %d", config.RateLimit.PerIP)
	}

	return nil
}

// loadEnvFile loads ./.env into the environment.
// A missing file is not an error and existing variables are never overridden.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
