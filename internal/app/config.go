package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	SessionPepper string `usage:"HMAC pepper for session token hashing (SHOP_SESSION_PEPPER)" flag:"session-pepper"`
	ConfirmURL    string `default:"/order/confirm" usage:"Browser destination after a reconciled payment" flag:"confirm-url"`
	CheckoutURL   string `default:"/checkout" usage:"Browser destination after a failed or cancelled payment" flag:"checkout-url"`
	Gateway       GatewayConfig
	TempOrders    TempOrderConfig
	RateLimit     RateLimitConfig
	Graceful      GracefulConfig
}

// GatewayConfig holds hosted-payment provider credentials and endpoints.
type GatewayConfig struct {
	BaseURL         string        `usage:"Payment provider API root" flag:"gateway-base-url"`
	StoreID         string        `usage:"Payment provider store id" flag:"gateway-store-id"`
	StorePassword   string        `usage:"Payment provider store password" flag:"gateway-store-password"`
	CallbackBaseURL string        `usage:"Public base URL for payment callbacks" flag:"gateway-callback-base-url"`
	Timeout         time.Duration `default:"30s" usage:"Payment provider request timeout" flag:"gateway-timeout"`
}

// TempOrderConfig controls reclamation of abandoned payment sessions.
type TempOrderConfig struct {
	TTL           time.Duration `default:"24h" usage:"Age after which an unreconciled temp order is reclaimed" flag:"temp-order-ttl"`
	SweepInterval time.Duration `default:"1h"  usage:"How often the temp order sweeper runs" flag:"temp-order-sweep-interval"`
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Rate  float64 `default:"50" usage:"Sustained requests per second per client"`
	Burst int     `default:"100" usage:"Burst size per client"`
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
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/bookstore/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SHOP_-prefixed configuration.
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
