package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/choco-orders/internal/domain/order"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CHOCO_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (CHOCO_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper  string `usage:"HMAC pepper for operator API key hashing" flag:"api-key-pepper"`
	GuestCheckout bool   `default:"true" usage:"Allow orders without X-User-ID" flag:"guest-checkout"`
	HistoryLimit  int    `default:"50" usage:"Maximum points history entries per request" flag:"history-limit"`
	Pricing       PricingConfig
	Tx            TxConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// PricingConfig selects where line item prices come from.
type PricingConfig struct {
	Policy string `default:"snapshot" usage:"Line item pricing: snapshot or catalog" flag:"pricing-policy"`
}

// TxConfig bounds write transactions.
type TxConfig struct {
	Timeout     time.Duration `default:"5s" usage:"Maximum duration of a write transaction" flag:"tx-timeout"`
	LockTimeout time.Duration `default:"2s" usage:"Maximum wait for a row lock" flag:"tx-lock-timeout"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window, 0 disables"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s" usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML files,
// then applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHOCO",
		Files:     []string{"config.yaml", "/etc/choco/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that cannot start the server.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set CHOCO_DATABASE_URL or DATABASE_URL")
	}
	if _, err := order.ParsePricingPolicy(c.Pricing.Policy); err != nil {
		return errors.Wrap(err, "pricing")
	}
	if c.Tx.LockTimeout > c.Tx.Timeout && c.Tx.Timeout > 0 {
		return errors.Errorf("tx lock timeout %s exceeds tx timeout %s", c.Tx.LockTimeout, c.Tx.Timeout)
	}
	return nil
}

// applyPlatformDefaults maps the DATABASE_URL and PORT variables set by
// hosting platforms onto the CHOCO_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
