package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/reelprompt/reelprompt/internal/config"
	"github.com/reelprompt/reelprompt/internal/handler"
	"github.com/reelprompt/reelprompt/internal/middleware"
)

// routes bundles everything setupRouter mounts.
type routes struct {
	fallback *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	account  *handler.AccountHandler
	stream   *handler.StreamHandler
	catalog  *handler.CatalogHandler
	purchase *handler.PurchaseHandler
	enhance  *handler.EnhanceHandler
	admin    *handler.AdminHandler
	billing  *handler.BillingHandler

	verifier middleware.TokenVerifier
	admins   middleware.AdminChecker
	limiter  middleware.IPLimiter
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(rt routes, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		AllowedOrigins:     corsCfg.AllowedOrigins,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// 404 and 405 handlers
	r.NotFound(rt.fallback.NotFound)
	r.MethodNotAllowed(rt.fallback.MethodNotAllowed)

	// Health and metrics (no auth required)
	r.Get("/healthz", rt.health.Healthz)
	r.Get("/readyz", rt.health.Readyz)
	r.Get("/metrics", rt.metrics.Metrics)

	requireSession := middleware.Auth(middleware.AuthConfig{
		Logger:     logger,
		Verifier:   rt.verifier,
		CookieName: cfg.SessionCookie,
	})

	ipLimit := middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: rt.limiter,
		Enabled: cfg.RateLimitDownloadEnabled,
		RPS:     cfg.RateLimitDownloadRPS,
		Burst:   cfg.RateLimitDownloadBurst,
	})

	r.Route("/api", func(r chi.Router) {
		// Public catalog
		r.Get("/prompts", rt.catalog.List)
		r.Get("/prompt", rt.catalog.Get)
		r.Get("/billing/packs", rt.billing.Packs)

		// Authorized by signature rather than session
		r.With(ipLimit).Get("/downloads/{promptID}", rt.purchase.Download)
		r.With(ipLimit).Post("/billing/webhook", rt.billing.Webhook)

		// Session required
		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Post("/user/initialize", rt.account.Initialize)
			r.Get("/user/profile", rt.account.Profile)
			r.Get("/user/ledger", rt.account.Ledger)
			r.Get("/user/credits/stream", rt.stream.Credits)

			r.Post("/enhance-prompt", rt.enhance.Enhance)

			r.Get("/purchases", rt.purchase.Library)
			r.Get("/purchases/check", rt.purchase.Check)
			r.Get("/prompts/download-link", rt.purchase.DownloadLink)
			r.Post("/prompts/purchase", rt.purchase.Purchase)

			r.Post("/billing/checkout", rt.billing.Checkout)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(rt.admins, logger))

				r.Get("/email-bonuses", rt.admin.ListEmailBonuses)
				r.Put("/email-bonuses", rt.admin.SetEmailBonus)
				r.Delete("/email-bonuses", rt.admin.DeleteEmailBonus)
				r.Post("/credits", rt.admin.GrantCredits)
				r.Put("/prompts", rt.admin.UpsertPrompt)
			})
		})
	})

	return r
}
