package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Security  SecurityConfig  `json:"security" yaml:"security"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Filter    FilterConfig    `json:"filter" yaml:"filter"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port      string `json:"port" yaml:"port"`
	Host      string `json:"host" yaml:"host"`
	EnableTLS bool   `json:"enable_tls" yaml:"enable_tls"`
	CertFile  string `json:"cert_file" yaml:"cert_file"`
	KeyFile   string `json:"key_file" yaml:"key_file"`
}

// DatabaseConfig holds the catalog database configuration.
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes (default: 10MB)
	MaxRequestBodySize int64 `json:"max_request_body_size" yaml:"max_request_body_size"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins" yaml:"allowed_origins"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Rate    int  `json:"rate" yaml:"rate"`
	Window  int  `json:"window" yaml:"window"` // in seconds
}

// CacheConfig selects the selection result cache. An empty RedisAddr
// means the in-memory cache.
type CacheConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`
	TTL           int    `json:"ttl" yaml:"ttl"` // in seconds
}

// TracingConfig holds Jaeger tracing configuration.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
	ServiceName string `json:"service_name" yaml:"service_name"`
	Environment string `json:"environment" yaml:"environment"`
}

// StorageConfig holds the S3 compatible object store used for s3:// locations.
type StorageConfig struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Region    string `json:"region" yaml:"region"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
}

// FilterConfig holds the document locations used by the filter command.
type FilterConfig struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
}

// CacheTTL returns the cache TTL as a duration.
func (c CacheConfig) CacheTTL() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// LoadConfig loads configuration from a .env file, environment variables
// and an optional JSON or YAML config file. Environment variables take
// precedence over config file values.
func LoadConfig(configFile string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			Host:      getEnv("SERVER_HOST", ""),
			EnableTLS: getEnvBool("SERVER_ENABLE_TLS", false),
			CertFile:  getEnv("SERVER_CERT_FILE", ""),
			KeyFile:   getEnv("SERVER_KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./nearby_offers.db"),
		},
		Security: SecurityConfig{
			MaxRequestBodySize: getEnvInt64("MAX_REQUEST_BODY_SIZE", 10<<20), // 10MB default
			AllowedOrigins:     getEnv("ALLOWED_ORIGINS", "*"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			Rate:    getEnvInt("RATE_LIMIT_RATE", 100),
			Window:  getEnvInt("RATE_LIMIT_WINDOW", 60),
		},
		Cache: CacheConfig{
			Enabled:       getEnvBool("CACHE_ENABLED", true),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			TTL:           getEnvInt("CACHE_TTL", 300),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("TRACING_ENABLED", false),
			Endpoint:    getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			ServiceName: getEnv("TRACING_SERVICE_NAME", "nearby-offers"),
			Environment: getEnv("TRACING_ENVIRONMENT", "development"),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Region:    getEnv("S3_REGION", "auto"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		},
		Filter: FilterConfig{
			Input:  getEnv("FILTER_INPUT", "input.json"),
			Output: getEnv("FILTER_OUTPUT", "output.json"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	// Load from config file if provided
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables (they take precedence)
	overrideFromEnv(cfg)

	return cfg, nil
}

// loadFromFile loads configuration from a JSON or YAML file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// overrideFromEnv overrides configuration with environment variables.
func overrideFromEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			*dst = strings.ToLower(v) == "true" || v == "1"
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				*dst = i
			}
		}
	}

	setString("SERVER_PORT", &cfg.Server.Port)
	setString("SERVER_HOST", &cfg.Server.Host)
	setBool("SERVER_ENABLE_TLS", &cfg.Server.EnableTLS)
	setString("SERVER_CERT_FILE", &cfg.Server.CertFile)
	setString("SERVER_KEY_FILE", &cfg.Server.KeyFile)
	setString("DATABASE_PATH", &cfg.Database.Path)
	if maxBodySize := os.Getenv("MAX_REQUEST_BODY_SIZE"); maxBodySize != "" {
		if size, err := strconv.ParseInt(maxBodySize, 10, 64); err == nil {
			cfg.Security.MaxRequestBodySize = size
		}
	}
	setString("ALLOWED_ORIGINS", &cfg.Security.AllowedOrigins)
	setBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	setInt("RATE_LIMIT_RATE", &cfg.RateLimit.Rate)
	setInt("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)
	setBool("CACHE_ENABLED", &cfg.Cache.Enabled)
	setString("REDIS_ADDR", &cfg.Cache.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	setInt("REDIS_DB", &cfg.Cache.RedisDB)
	setInt("CACHE_TTL", &cfg.Cache.TTL)
	setBool("TRACING_ENABLED", &cfg.Tracing.Enabled)
	setString("JAEGER_ENDPOINT", &cfg.Tracing.Endpoint)
	setString("TRACING_SERVICE_NAME", &cfg.Tracing.ServiceName)
	setString("TRACING_ENVIRONMENT", &cfg.Tracing.Environment)
	setString("S3_ENDPOINT", &cfg.Storage.Endpoint)
	setString("S3_REGION", &cfg.Storage.Region)
	setString("S3_ACCESS_KEY", &cfg.Storage.AccessKey)
	setString("S3_SECRET_KEY", &cfg.Storage.SecretKey)
	setString("FILTER_INPUT", &cfg.Filter.Input)
	setString("FILTER_OUTPUT", &cfg.Filter.Output)
	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)
}

// getEnv gets an environment variable or returns the default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvInt64 gets an int64 environment variable or returns the default value.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Server.EnableTLS && (c.Server.CertFile == "" || c.Server.KeyFile == "") {
		return fmt.Errorf("TLS requires both cert_file and key_file")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if c.Security.MaxRequestBodySize <= 0 {
		return fmt.Errorf("max request body size must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
