package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (ORDERD_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (ORDERD_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	AMQPURL     string `usage:"RabbitMQ URL for lifecycle events; empty logs events instead" flag:"amqp-url"`
	// MaxOrderAmount is the sanity ceiling on a single order's total.
	MaxOrderAmount string `default:"10000" usage:"Maximum allowed order total" flag:"max-order-amount"`
	// CORSAllowOrigins lists origins the browser frontend may call from.
	// Empty allows all origins.
	CORSAllowOrigins []string `usage:"Allowed CORS origins" flag:"cors-allow-origins"`
	RateLimit        RateLimitConfig
	Graceful         GracefulConfig
}

// RateLimitConfig bounds request rates on the customer-facing endpoints.
type RateLimitConfig struct {
	Max    int           `default:"60" usage:"Requests allowed per client per window on /api/public" flag:"rate-limit-max"`
	Window time.Duration `default:"1m" usage:"Rate limit window" flag:"rate-limit-window"`
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
		EnvPrefix: "ORDERD",
		Files:     []string{"config.yaml", "/etc/orderd/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set ORDERD_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT to the ORDERD_-prefixed
// configuration.
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
