package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/reelprompt/reelprompt/internal/handler/dto"
	"github.com/reelprompt/reelprompt/internal/middleware"
	"github.com/reelprompt/reelprompt/internal/model"
)

// AdminService manages bonus overrides and manual grants.
type AdminService interface {
	SetEmailBonus(ctx context.Context, email string, credits *model.Credits, note string) (*model.EmailBonus, error)
	DeleteEmailBonus(ctx context.Context, email string) error
	ListEmailBonuses(ctx context.Context) ([]*model.EmailBonus, error)
	GrantCredits(ctx context.Context, userID string, amount model.Credits, reason string) (model.Credits, error)
}

// CatalogEditor writes catalog prompts.
type CatalogEditor interface {
	Upsert(ctx context.Context, p *model.Prompt) (*model.Prompt, error)
}

// AdminHandler provides admin-only endpoints. Access is enforced by
// middleware.RequireAdmin.
type AdminHandler struct {
	admin   AdminService
	catalog CatalogEditor
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin AdminService, catalog CatalogEditor, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:   admin,
		catalog: catalog,
		logger:  logger,
	}
}

// SetEmailBonus handles PUT /api/admin/email-bonuses.
func (h *AdminHandler) SetEmailBonus(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailBonusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if err := middleware.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "Email is invalid")
		return
	}
	if err := middleware.ValidateNote(req.Note); err != nil {
		writeError(w, http.StatusBadRequest, "NOTE_TOO_LONG", "Note is too long")
		return
	}

	bonus, err := h.admin.SetEmailBonus(r.Context(), req.Email, req.Credits, req.Note)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToEmailBonusResponse(bonus))
}

// DeleteEmailBonus handles DELETE /api/admin/email-bonuses?email=.
func (h *AdminHandler) DeleteEmailBonus(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteEmailBonus(r.Context(), r.URL.Query().Get("email")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEmailBonuses handles GET /api/admin/email-bonuses.
func (h *AdminHandler) ListEmailBonuses(w http.ResponseWriter, r *http.Request) {
	bonuses, err := h.admin.ListEmailBonuses(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToEmailBonusListResponse(bonuses))
}

// GrantCredits handles POST /api/admin/credits.
func (h *AdminHandler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	var req dto.GrantCreditsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USER_ID", "userId is required")
		return
	}
	if err := middleware.ValidateNote(req.Reason); err != nil {
		writeError(w, http.StatusBadRequest, "NOTE_TOO_LONG", "Reason is too long")
		return
	}

	balance, err := h.admin.GrantCredits(r.Context(), req.UserID, req.Amount, req.Reason)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.GrantCreditsResponse{UserID: req.UserID, Credits: balance})
}

// UpsertPrompt handles PUT /api/admin/prompts.
func (h *AdminHandler) UpsertPrompt(w http.ResponseWriter, r *http.Request) {
	var req dto.UpsertPromptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if err := middleware.ValidatePromptID(req.ID); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PROMPT_ID", "Prompt id is invalid")
		return
	}
	for _, u := range append([]string{req.AssetURL, req.ThumbnailURL}, req.ThumbnailURLs...) {
		if u == "" {
			continue
		}
		if err := middleware.ValidateAssetURL(u); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_URL", "Asset and thumbnail urls must be http(s)")
			return
		}
	}

	prompt, err := h.catalog.Upsert(r.Context(), req.ToModel())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPromptDetailResponse(prompt))
}
