package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/reelprompt/reelprompt/internal/auth"
	"github.com/reelprompt/reelprompt/internal/handler/dto"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/service"
)

// AccountService reconciles accounts and reads their history.
type AccountService interface {
	Initialize(ctx context.Context, id *model.Identity) (*service.Profile, error)
	Reconcile(ctx context.Context, id *model.Identity) (*service.Profile, error)
	History(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error)
}

// AccountHandler handles the /api/user endpoints.
type AccountHandler struct {
	svc    AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		svc:    svc,
		logger: logger,
	}
}

// Initialize handles POST /api/user/initialize.
func (h *AccountHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		writeUnauthenticated(w)
		return
	}

	profile, err := h.svc.Initialize(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// Profile handles GET /api/user/profile.
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		writeUnauthenticated(w)
		return
	}

	profile, err := h.svc.Reconcile(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

// Ledger handles GET /api/user/ledger?limit=.
func (h *AccountHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	entries, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLedgerResponse(entries))
}

func toProfileResponse(p *service.Profile) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		Credits:     p.Credits,
		IsAdmin:     p.IsAdmin,
		Email:       p.Email,
		DisplayName: p.DisplayName,
	}
}

// writeUnauthenticated covers routes reached without the auth middleware.
func writeUnauthenticated(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
}
