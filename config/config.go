package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Catalog    CatalogConfig
	Processing ProcessingConfig
	Storage    StorageConfig
	Cache      CacheConfig
	Logging    LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port             string        `mapstructure:"port"`
	Environment      string        `mapstructure:"environment"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// CatalogConfig holds upstream catalog configuration
type CatalogConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	CartRouteID        string        `mapstructure:"cart_route_id"`
	SearchRouteID      string        `mapstructure:"search_route_id"`
	UserAgent          string        `mapstructure:"user_agent"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	RegionTimeout      time.Duration `mapstructure:"region_timeout"`
	RequestsPerMinute  int           `mapstructure:"requests_per_minute"`
	MinRequestInterval time.Duration `mapstructure:"min_request_interval"`
	MaxResponseBytes   int64         `mapstructure:"max_response_bytes"`
	MaxDepth           int           `mapstructure:"max_depth"`
}

// ProcessingConfig holds chunking and concurrency configuration
type ProcessingConfig struct {
	Profile    string `mapstructure:"profile"`
	ChunkSize  int    `mapstructure:"chunk_size"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

// StorageConfig holds session store configuration
type StorageConfig struct {
	Driver           string        `mapstructure:"driver"` // "sqlite" or "postgres"
	Path             string        `mapstructure:"path"`
	PostgresDSN      string        `mapstructure:"postgres_dsn"`
	SessionRetention time.Duration `mapstructure:"session_retention"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	RegionTTL time.Duration `mapstructure:"region_ttl"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Profile is a set of processing defaults sized for a class of host.
type Profile struct {
	ChunkSize      int
	MaxWorkers     int
	RequestTimeout time.Duration
	Description    string
}

// Profiles lists the supported performance profiles by name.
var Profiles = map[string]Profile{
	"minimal": {
		ChunkSize: 100, MaxWorkers: 1, RequestTimeout: 20 * time.Second,
		Description: "Minimal profile for 512MB RAM servers",
	},
	"standard": {
		ChunkSize: 500, MaxWorkers: 3, RequestTimeout: 15 * time.Second,
		Description: "Standard profile for 1GB RAM servers",
	},
	"enhanced": {
		ChunkSize: 1000, MaxWorkers: 5, RequestTimeout: 15 * time.Second,
		Description: "Enhanced profile for 2GB+ RAM servers",
	},
	"high_performance": {
		ChunkSize: 2000, MaxWorkers: 8, RequestTimeout: 10 * time.Second,
		Description: "High performance profile for 4GB+ RAM servers",
	},
}

// DefaultProfile is applied when processing.profile is not set.
const DefaultProfile = "standard"

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricecheck/")

	// Environment variable settings
	v.SetEnvPrefix("PRICECHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	profileName := v.GetString("processing.profile")
	profile, ok := Profiles[profileName]
	if !ok {
		return nil, fmt.Errorf("invalid configuration: unknown processing profile %q", profileName)
	}
	applyProfile(v, profile)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.progress_interval", "1s")

	// Catalog defaults
	v.SetDefault("catalog.base_url", "https://voila.ca")
	v.SetDefault("catalog.cart_route_id", "d55f7f13-4217-4320-907e-eadd09051a7c")
	v.SetDefault("catalog.search_route_id", "5fa0016c-9764-4e09-9738-12c33fb47fc2")
	v.SetDefault("catalog.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("catalog.region_timeout", "15s")
	v.SetDefault("catalog.requests_per_minute", 200)
	v.SetDefault("catalog.min_request_interval", "100ms")
	v.SetDefault("catalog.max_response_bytes", 16<<20)
	v.SetDefault("catalog.max_depth", 256)

	// Processing defaults; chunk size, workers and timeout come from the profile
	v.SetDefault("processing.profile", DefaultProfile)

	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "temp_products.db")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.session_retention", "24h")
	v.SetDefault("storage.sweep_interval", "1h")

	// Cache defaults
	v.SetDefault("cache.region_ttl", "10m")

	v.SetDefault("logging.level", "info")
}

// applyProfile installs profile values as defaults so explicit settings still win.
func applyProfile(v *viper.Viper, p Profile) {
	v.SetDefault("processing.chunk_size", p.ChunkSize)
	v.SetDefault("processing.max_workers", p.MaxWorkers)
	v.SetDefault("catalog.request_timeout", p.RequestTimeout.String())
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Processing.ChunkSize < 10 || config.Processing.ChunkSize > 5000 {
		return fmt.Errorf("chunk size must be between 10 and 5000, got: %d", config.Processing.ChunkSize)
	}

	if config.Processing.MaxWorkers < 1 || config.Processing.MaxWorkers > 20 {
		return fmt.Errorf("max workers must be between 1 and 20, got: %d", config.Processing.MaxWorkers)
	}

	if config.Catalog.RequestTimeout < 5*time.Second || config.Catalog.RequestTimeout > 300*time.Second {
		return fmt.Errorf("request timeout must be between 5s and 300s, got: %s", config.Catalog.RequestTimeout)
	}

	if config.Storage.SessionRetention < time.Hour || config.Storage.SessionRetention > 168*time.Hour {
		return fmt.Errorf("session retention must be between 1h and 168h, got: %s", config.Storage.SessionRetention)
	}

	if config.Storage.Driver != "sqlite" && config.Storage.Driver != "postgres" {
		return fmt.Errorf("storage driver must be 'sqlite' or 'postgres', got: %s", config.Storage.Driver)
	}

	if config.Storage.Driver == "postgres" && config.Storage.PostgresDSN == "" {
		return fmt.Errorf("Postgres DSN is required when storage driver is 'postgres'")
	}

	if config.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base URL is required (set PRICECHECK_CATALOG_BASE_URL)")
	}

	return nil
}
