// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/reelprompt/reelprompt/internal/model"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Public origin of this API, used to build download links.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	// Origin of the web app, used for checkout return URLs.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Admin identity
	AdminUserID string `env:"ADMIN_USER_ID"`
	AdminEmail  string `env:"ADMIN_EMAIL"`

	// Signup bonuses, in credits
	SignupBonus float64 `env:"SIGNUP_BONUS" envDefault:"20"`
	AdminBonus  float64 `env:"ADMIN_BONUS" envDefault:"100"`

	// Session verification. AUTH_JWKS_URL wins over AUTH_HMAC_SECRET.
	AuthJWKSURL    string `env:"AUTH_JWKS_URL"`
	AuthIssuer     string `env:"AUTH_ISSUER"`
	AuthAudience   string `env:"AUTH_AUDIENCE"`
	AuthHMACSecret string `env:"AUTH_HMAC_SECRET"`
	SessionCookie  string `env:"SESSION_COOKIE" envDefault:"session"`

	// Download links
	SigningSecret  string        `env:"SIGNING_SECRET,required"`
	DownloadURLTTL time.Duration `env:"DOWNLOAD_URL_TTL" envDefault:"15m"`

	// Prompt generation. An empty key selects the offline template generator.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	// Billing. An empty secret key disables checkout and webhooks.
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	// Comma-separated name:priceID:credits entries.
	StripeCreditPacks string `env:"STRIPE_CREDIT_PACKS"`

	// Rate limiting
	RateLimitEnhanceRPM      int  `env:"RATE_LIMIT_ENHANCE_RPM" envDefault:"10"`
	RateLimitEnhanceBurst    int  `env:"RATE_LIMIT_ENHANCE_BURST" envDefault:"5"`
	RateLimitDownloadEnabled bool `env:"RATE_LIMIT_DOWNLOAD_ENABLED" envDefault:"true"`
	RateLimitDownloadRPS     int  `env:"RATE_LIMIT_DOWNLOAD_RPS" envDefault:"5"`
	RateLimitDownloadBurst   int  `env:"RATE_LIMIT_DOWNLOAD_BURST" envDefault:"20"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// BillingEnabled reports whether Stripe top-ups are configured.
func (c *Config) BillingEnabled() bool {
	return c.StripeSecretKey != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks combinations the struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.AuthJWKSURL == "" && c.AuthHMACSecret == "" {
		errs = append(errs, errors.New("one of AUTH_JWKS_URL or AUTH_HMAC_SECRET is required"))
	}
	if c.IsProduction() && c.AuthJWKSURL == "" {
		errs = append(errs, errors.New("AUTH_JWKS_URL is required in production"))
	}
	if c.BillingEnabled() {
		if c.StripeWebhookSecret == "" {
			errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set"))
		}
		if strings.TrimSpace(c.StripeCreditPacks) == "" {
			errs = append(errs, errors.New("STRIPE_CREDIT_PACKS is required when STRIPE_SECRET_KEY is set"))
		}
	}
	if c.SignupBonus < 0 || c.AdminBonus < 0 {
		errs = append(errs, errors.New("SIGNUP_BONUS and ADMIN_BONUS must not be negative"))
	}
	for name, v := range map[string]float64{"SIGNUP_BONUS": c.SignupBonus, "ADMIN_BONUS": c.AdminBonus} {
		if _, err := model.ParseCredits(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.RateLimitEnhanceRPM < 0 || c.RateLimitEnhanceBurst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_ENHANCE_RPM and RATE_LIMIT_ENHANCE_BURST must not be negative"))
	}
	return errors.Join(errs...)
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
