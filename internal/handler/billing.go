package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/reelprompt/reelprompt/internal/auth"
	"github.com/reelprompt/reelprompt/internal/billing"
	"github.com/reelprompt/reelprompt/internal/handler/dto"
	"github.com/reelprompt/reelprompt/internal/model"
)

// maxWebhookBody bounds Stripe webhook payloads.
const maxWebhookBody = 64 << 10

// BillingService sells credit packs.
type BillingService interface {
	Packs() []billing.CreditPack
	Checkout(ctx context.Context, identity *model.Identity, pack string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

// BillingHandler exposes credit top-ups. A nil service means billing is
// not configured.
type BillingHandler struct {
	svc    BillingService
	logger *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(svc BillingService, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		svc:    svc,
		logger: logger,
	}
}

// Packs handles GET /api/billing/packs.
func (h *BillingHandler) Packs(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeBillingDisabled(w)
		return
	}

	packs := h.svc.Packs()
	resp := dto.PackListResponse{Packs: make([]dto.PackResponse, len(packs))}
	for i, p := range packs {
		resp.Packs[i] = dto.PackResponse{Name: p.Name, Credits: p.Credits}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Checkout handles POST /api/billing/checkout.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeBillingDisabled(w)
		return
	}

	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		writeUnauthenticated(w)
		return
	}

	var req dto.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	url, err := h.svc.Checkout(r.Context(), id, req.Pack)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CheckoutResponse{URL: url})
}

// Webhook handles POST /api/billing/webhook.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeBillingDisabled(w)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid payload")
		return
	}

	if err := h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func writeBillingDisabled(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, "BILLING_DISABLED", "billing not configured")
}
