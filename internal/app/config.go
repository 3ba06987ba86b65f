package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (LAZZAT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (LAZZAT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (LAZZAT_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Store        StoreConfig
	Geocode      GeocodeConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// StoreConfig pins the restaurant location all delivery distances are
// measured from.
type StoreConfig struct {
	Lat float64 `default:"41.311081" usage:"Store latitude"`
	Lng float64 `default:"69.240562" usage:"Store longitude"`
}

// GeocodeConfig controls the advisory reverse-geocoding lookup.
type GeocodeConfig struct {
	BaseURL string        `default:"" usage:"Reverse geocoding base URL (empty disables lookups)" flag:"geocode-url"`
	Timeout time.Duration `default:"2s" usage:"Reverse geocoding request timeout" flag:"geocode-timeout"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "LAZZAT",
		Files:     []string{"config.yaml", "/etc/lazzat/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set LAZZAT_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the LAZZAT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
