// Package main is the entrypoint for the reelprompt API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/reelprompt/reelprompt/internal/auth"
	"github.com/reelprompt/reelprompt/internal/billing"
	"github.com/reelprompt/reelprompt/internal/cache"
	"github.com/reelprompt/reelprompt/internal/config"
	"github.com/reelprompt/reelprompt/internal/enhancer"
	"github.com/reelprompt/reelprompt/internal/events"
	"github.com/reelprompt/reelprompt/internal/handler"
	"github.com/reelprompt/reelprompt/internal/metrics"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/repository"
	"github.com/reelprompt/reelprompt/internal/server"
	"github.com/reelprompt/reelprompt/internal/service"
	"github.com/reelprompt/reelprompt/internal/signing"
	"github.com/reelprompt/reelprompt/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return fmt.Errorf("database unavailable")
	}
	defer repo.Close()
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		applied, err := repo.Migrate(ctx, migrations.FS)
		if err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		logger.Info("migrations applied", "count", len(applied), "versions", applied)
	}

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return fmt.Errorf("redis unavailable")
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Balance events: local bus plus cross-instance fan-out
	bus := events.NewBus()
	bridge := events.NewRedisBridge(cacheClient.Client(), bus, logger)
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("failed to start events bridge: %w", err)
	}
	logger.Info("events bridge started", "channel", events.Channel, "instance", bridge.Instance())

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		JWKSURL:    cfg.AuthJWKSURL,
		HMACSecret: cfg.AuthHMACSecret,
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
	})
	if err != nil {
		return fmt.Errorf("failed to init session verifier: %w", err)
	}

	signer, err := signing.NewSigner(cfg.SigningSecret, cfg.BaseURL, cfg.DownloadURLTTL)
	if err != nil {
		return fmt.Errorf("failed to init download signer: %w", err)
	}

	generator, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Initialize services
	recorder := metrics.NewInMemory()
	bonus := service.NewBonusResolver(repo, cfg.AdminEmail,
		model.CreditsFromFloat(cfg.SignupBonus), model.CreditsFromFloat(cfg.AdminBonus), logger)
	accountSvc := service.NewAccountService(repo, bonus, cacheClient, bridge, cfg.AdminUserID, logger, recorder)
	catalogSvc := service.NewCatalogService(repo, cacheClient, logger, recorder)
	purchaseSvc := service.NewPurchaseService(repo, signer, bridge, logger, recorder)
	enhanceSvc := service.NewEnhanceService(repo, generator, cacheClient, service.EnhanceLimits{
		RatePerMinute: cfg.RateLimitEnhanceRPM,
		Burst:         cfg.RateLimitEnhanceBurst,
	}, bridge, logger, recorder)
	adminSvc := service.NewAdminService(repo, repo, bridge, logger, recorder)

	// A typed nil would defeat the handler's disabled check.
	var billingSvc handler.BillingService
	if cfg.BillingEnabled() {
		packs, err := billing.ParseCreditPacks(cfg.StripeCreditPacks)
		if err != nil {
			return fmt.Errorf("invalid STRIPE_CREDIT_PACKS: %w", err)
		}
		billingSvc = billing.New(billing.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			FrontendURL:   cfg.FrontendURL,
			Packs:         packs,
		}, repo, bridge, logger)
		logger.Info("billing enabled", "packs", len(packs))
	} else {
		logger.Info("billing disabled")
	}

	// Setup router
	r := setupRouter(routes{
		fallback: handler.New(),
		health:   handler.NewHealthHandler(repo, cacheClient, logger),
		metrics:  handler.NewMetricsHandler(recorder),
		account:  handler.NewAccountHandler(accountSvc, logger),
		stream:   handler.NewStreamHandler(bus, accountSvc, handler.DefaultKeepAlive, logger),
		catalog:  handler.NewCatalogHandler(catalogSvc, logger),
		purchase: handler.NewPurchaseHandler(purchaseSvc, logger),
		enhance:  handler.NewEnhanceHandler(enhanceSvc, logger),
		admin:    handler.NewAdminHandler(adminSvc, catalogSvc, logger),
		billing:  handler.NewBillingHandler(billingSvc, logger),
		verifier: verifier,
		admins:   accountSvc,
		limiter:  cacheClient,
	}, cfg, logger)

	// Create and run server
	srv := server.New(r, server.Options{
		Addr:            fmt.Sprintf(":%d", cfg.AppPort),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Postgres and Redis close via the defers above once Run returns.
	srv.OnShutdown("events_bridge", func(context.Context) error {
		bridge.Stop()
		return nil
	})
	// Ends open credit streams so HTTP shutdown does not wait on them.
	srv.OnDrain(bus.Close)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"generator", fmt.Sprintf("%T", generator),
	)

	return srv.Run(ctx)
}

// newGenerator picks the Gemini generator when an API key is configured and
// the offline template generator otherwise.
func newGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (enhancer.Generator, error) {
	if cfg.GeminiAPIKey == "" {
		if cfg.IsProduction() {
			logger.Warn("GEMINI_API_KEY not set, using template generator")
		}
		return enhancer.TemplateGenerator{}, nil
	}
	g, err := enhancer.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini generator: %w", err)
	}
	return g, nil
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
