package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/reelprompt/reelprompt/internal/cache"
	"github.com/reelprompt/reelprompt/internal/config"
	"github.com/reelprompt/reelprompt/internal/handler"
	"github.com/reelprompt/reelprompt/internal/metrics"
	"github.com/reelprompt/reelprompt/internal/model"
)

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (*model.Identity, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &model.Identity{UID: "uid-1", Email: "maker@example.com"}, nil
}

type stubAdmins struct{}

func (stubAdmins) IsAdmin(context.Context, *model.Identity) (bool, error) { return false, nil }

type stubLimiter struct{}

func (stubLimiter) CheckIPRateLimit(context.Context, string, int, int) (*cache.RateLimitResult, error) {
	return &cache.RateLimitResult{Allowed: true, Remaining: 1}, nil
}

func newTestRouter() http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		AppEnv:                   "development",
		SessionCookie:            "session",
		MaxRequestBodySize:       1 << 20,
		RateLimitDownloadEnabled: true,
		RateLimitDownloadRPS:     5,
		RateLimitDownloadBurst:   5,
	}
	return setupRouter(routes{
		fallback: handler.New(),
		health:   handler.NewHealthHandler(nil, nil, logger),
		metrics:  handler.NewMetricsHandler(metrics.NewInMemory()),
		account:  handler.NewAccountHandler(nil, logger),
		stream:   handler.NewStreamHandler(nil, nil, 0, logger),
		catalog:  handler.NewCatalogHandler(nil, logger),
		purchase: handler.NewPurchaseHandler(nil, logger),
		enhance:  handler.NewEnhanceHandler(nil, logger),
		admin:    handler.NewAdminHandler(nil, nil, logger),
		billing:  handler.NewBillingHandler(nil, logger),
		verifier: stubVerifier{},
		admins:   stubAdmins{},
		limiter:  stubLimiter{},
	}, cfg, logger)
}

func TestRouter(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"liveness", http.MethodGet, "/healthz", "", http.StatusOK, ""},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK, ""},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound, "NOT_FOUND"},
		{"wrong method", http.MethodDelete, "/api/user/profile", "", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"profile needs session", http.MethodGet, "/api/user/profile", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"initialize needs session", http.MethodPost, "/api/user/initialize", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"enhance needs session", http.MethodPost, "/api/enhance-prompt", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"purchase needs session", http.MethodPost, "/api/prompts/purchase", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad token", http.MethodGet, "/api/purchases", "forged", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"admin needs admin", http.MethodGet, "/api/admin/email-bonuses", "good", http.StatusForbidden, "FORBIDDEN"},
		{"billing disabled", http.MethodGet, "/api/billing/packs", "", http.StatusServiceUnavailable, "BILLING_DISABLED"},
		{"webhook disabled", http.MethodPost, "/api/billing/webhook", "", http.StatusServiceUnavailable, "BILLING_DISABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("expected X-Request-ID header")
			}
			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("expected security headers")
			}
			if tt.wantCode == "" {
				return
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, body["code"])
			}
		})
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("postgres://reel:hunter2@db:5432/reelprompt?sslmode=disable")
	if got != "postgres://reel@db:5432/reelprompt?sslmode=disable" {
		t.Errorf("unexpected redaction: %s", got)
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://reel:hunter2@db:5432/reelprompt"
	err := errors.New("dial " + dsn + " failed: password=hunter2 rejected")

	got := sanitizeError(err, dsn)
	if got != "dial postgres://reel@db:5432/reelprompt failed: password=redacted rejected" {
		t.Errorf("unexpected sanitized error: %s", got)
	}
}
