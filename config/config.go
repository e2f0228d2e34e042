package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	TrustProxy     bool          `mapstructure:"trust_proxy"`
	TLS            bool          `mapstructure:"tls"`
	CertFile       string        `mapstructure:"cert_file"`
	KeyFile        string        `mapstructure:"key_file"`
	RateLimit      struct {
		RequestsPerSecond int `mapstructure:"requests_per_second"`
		Burst             int `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
}

// AuthConfig configures optional basic auth in front of the API
type AuthConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	HashedPassword string `mapstructure:"-"`
	BcryptCost     int    `mapstructure:"bcrypt_cost"`
}

// MongoDBConfig configures the document store
type MongoDBConfig struct {
	URI         string        `mapstructure:"uri"`
	Database    string        `mapstructure:"database"`
	MaxPoolSize uint64        `mapstructure:"max_pool_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CircuitBreakerConfig configures the platform circuit breaker
type CircuitBreakerConfig struct {
	MaxFailures         int           `mapstructure:"max_failures"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxHalfOpenRequests int           `mapstructure:"max_half_open_requests"`
}

// PlatformConfig configures the integration platform client
type PlatformConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	WorkspaceKey    string        `mapstructure:"workspace_key"`
	WorkspaceSecret string        `mapstructure:"workspace_secret"`
	CustomerID      string        `mapstructure:"customer_id"`
	CustomerName    string        `mapstructure:"customer_name"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	// RateLimit is the outbound requests per second; 0 disables limiting
	RateLimit      float64              `mapstructure:"rate_limit"`
	RateBurst      int                  `mapstructure:"rate_burst"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CacheConfig configures catalog caching. Redis is used when RedisAddr is
// set, otherwise an in-process LRU.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	PoolSize      int           `mapstructure:"pool_size"`
	LRUSize       int           `mapstructure:"lru_size"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// SecretsConfig selects where the platform workspace secret is read from
type SecretsConfig struct {
	Provider string `mapstructure:"provider"` // env, vault or aws
	Vault    struct {
		Address string `mapstructure:"address"`
		Token   string `mapstructure:"token"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"vault"`
	AWS struct {
		Region    string `mapstructure:"region"`
		SecretID  string `mapstructure:"secret_id"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"aws"`
}

// Config holds all configuration for the Conduit service
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Platform PlatformConfig `mapstructure:"platform"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`

	Actions struct {
		// ValidateInput checks action input against the method schema on save
		ValidateInput bool `mapstructure:"validate_input"`
	} `mapstructure:"actions"`

	Workflows struct {
		NodeTimeout time.Duration `mapstructure:"node_timeout"`
	} `mapstructure:"workflows"`

	Generator struct {
		OutputDir string        `mapstructure:"output_dir"`
		Delay     time.Duration `mapstructure:"delay"`
	} `mapstructure:"generator"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // console or json
	} `mapstructure:"log"`
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 60*time.Second)
	viper.SetDefault("server.idle_timeout", 120*time.Second)
	viper.SetDefault("server.max_body_bytes", 1<<20)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.trust_proxy", false)
	viper.SetDefault("server.tls", false)
	viper.SetDefault("server.rate_limit.requests_per_second", 50)
	viper.SetDefault("server.rate_limit.burst", 100)

	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.bcrypt_cost", bcrypt.DefaultCost)

	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "conduit")
	viper.SetDefault("mongodb.max_pool_size", 10)
	viper.SetDefault("mongodb.timeout", 10*time.Second)

	viper.SetDefault("platform.base_url", "https://api.integration.app")
	viper.SetDefault("platform.customer_id", "console-user")
	viper.SetDefault("platform.customer_name", "Console User")
	viper.SetDefault("platform.token_ttl", time.Hour)
	viper.SetDefault("platform.request_timeout", 30*time.Second)
	viper.SetDefault("platform.rate_limit", 10.0)
	viper.SetDefault("platform.rate_burst", 20)
	viper.SetDefault("platform.circuit_breaker.max_failures", 5)
	viper.SetDefault("platform.circuit_breaker.timeout", 30*time.Second)
	viper.SetDefault("platform.circuit_breaker.max_half_open_requests", 1)

	viper.SetDefault("cache.redis_addr", "")
	viper.SetDefault("cache.redis_db", 0)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.lru_size", 1024)
	viper.SetDefault("cache.ttl", 5*time.Minute)

	viper.SetDefault("secrets.provider", "env")
	viper.SetDefault("secrets.vault.path", "secret/data/conduit")
	viper.SetDefault("secrets.aws.secret_id", "conduit/platform")

	viper.SetDefault("actions.validate_input", false)
	viper.SetDefault("workflows.node_timeout", 60*time.Second)

	viper.SetDefault("generator.output_dir", "./generated")
	viper.SetDefault("generator.delay", 500*time.Millisecond)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

func loadFromEnv() {
	viper.SetEnvPrefix("CONDUIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// keys without defaults are only picked up from the environment when bound
	_ = viper.BindEnv("platform.workspace_key")
	_ = viper.BindEnv("platform.workspace_secret")
	_ = viper.BindEnv("auth.username")
	_ = viper.BindEnv("auth.password")
	_ = viper.BindEnv("cache.redis_password")
	_ = viper.BindEnv("secrets.vault.address")
	_ = viper.BindEnv("secrets.vault.token")
	_ = viper.BindEnv("secrets.aws.region")
}

func validateAndHash(config *Config) error {
	if config.Auth.Enabled {
		if config.Auth.Username == "" || config.Auth.Password == "" {
			return fmt.Errorf("auth.username and auth.password are required when auth is enabled")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(config.Auth.Password), config.Auth.BcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		config.Auth.HashedPassword = string(hashed)
		config.Auth.Password = "" // clear plain password
	}

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// LoadConfig reads config.yaml from . or ./config, applies CONDUIT_*
// environment overrides and validates the result.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file, defaults and env vars only
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateAndHash(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", config.Server.Port)
	}
	if config.Server.TLS && (config.Server.CertFile == "" || config.Server.KeyFile == "") {
		return fmt.Errorf("server.cert_file and server.key_file are required when TLS is enabled")
	}
	if config.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if config.Server.RateLimit.RequestsPerSecond < 0 || config.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("server rate limit must not be negative")
	}

	if !strings.HasPrefix(config.MongoDB.URI, "mongodb://") && !strings.HasPrefix(config.MongoDB.URI, "mongodb+srv://") {
		return fmt.Errorf("invalid MongoDB URI: must start with mongodb:// or mongodb+srv://")
	}
	parsed, err := url.Parse(config.MongoDB.URI)
	if err != nil {
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid MongoDB URI: missing host")
	}
	if config.MongoDB.Database == "" {
		return fmt.Errorf("MongoDB database cannot be empty")
	}
	if config.MongoDB.Timeout <= 0 {
		return fmt.Errorf("mongodb.timeout must be positive")
	}

	base, err := url.Parse(config.Platform.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("invalid platform base URL: %q", config.Platform.BaseURL)
	}
	if config.Platform.TokenTTL <= 0 {
		return fmt.Errorf("platform.token_ttl must be positive")
	}
	if config.Platform.RequestTimeout <= 0 {
		return fmt.Errorf("platform.request_timeout must be positive")
	}
	if config.Platform.RateLimit < 0 {
		return fmt.Errorf("platform.rate_limit must not be negative")
	}
	if config.Platform.CircuitBreaker.MaxFailures <= 0 {
		return fmt.Errorf("circuit breaker max_failures must be positive, got %d", config.Platform.CircuitBreaker.MaxFailures)
	}
	if config.Platform.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("circuit breaker timeout must be positive, got %v", config.Platform.CircuitBreaker.Timeout)
	}
	if config.Platform.CircuitBreaker.MaxHalfOpenRequests <= 0 {
		return fmt.Errorf("circuit breaker max_half_open_requests must be positive, got %d", config.Platform.CircuitBreaker.MaxHalfOpenRequests)
	}

	if config.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if config.Cache.RedisAddr == "" && config.Cache.LRUSize <= 0 {
		return fmt.Errorf("cache.lru_size must be positive when no redis address is set")
	}

	switch config.Secrets.Provider {
	case "", "env", "vault", "aws":
	default:
		return fmt.Errorf("unsupported secret provider: %s", config.Secrets.Provider)
	}

	if config.Generator.Delay < 0 {
		return fmt.Errorf("generator.delay must not be negative")
	}

	switch config.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be console or json)", config.Log.Format)
	}
	return nil
}
