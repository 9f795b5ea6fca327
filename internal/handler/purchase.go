package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/reelprompt/reelprompt/internal/auth"
	"github.com/reelprompt/reelprompt/internal/handler/dto"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/service"
)

// PurchaseService gates prompt assets behind entitlements.
type PurchaseService interface {
	CheckOwnership(ctx context.Context, userID, promptID string) (bool, error)
	Purchase(ctx context.Context, userID, promptID string) (*service.PurchaseResult, error)
	DownloadLink(ctx context.Context, userID, promptID string) (string, error)
	ResolveDownload(ctx context.Context, promptID string, q url.Values) (string, error)
	Library(ctx context.Context, userID string) ([]*model.Purchase, error)
}

// PurchaseHandler handles purchases, ownership checks and downloads.
type PurchaseHandler struct {
	svc    PurchaseService
	logger *slog.Logger
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(svc PurchaseService, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		svc:    svc,
		logger: logger,
	}
}

// Check handles GET /api/purchases/check?promptId=.
func (h *PurchaseHandler) Check(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	owned, err := h.svc.CheckOwnership(r.Context(), userID, r.URL.Query().Get("promptId"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OwnershipResponse{Owned: owned})
}

// Purchase handles POST /api/prompts/purchase.
func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	var req dto.PurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	res, err := h.svc.Purchase(r.Context(), userID, req.PromptID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PurchaseResponse{
		DownloadURL: res.DownloadURL,
		PromptTitle: res.PromptTitle,
		Credits:     res.Credits,
	})
}

// DownloadLink handles GET /api/prompts/download-link?promptId=.
func (h *PurchaseHandler) DownloadLink(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	link, err := h.svc.DownloadLink(r.Context(), userID, r.URL.Query().Get("promptId"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DownloadLinkResponse{URL: link})
}

// Library handles GET /api/purchases.
func (h *PurchaseHandler) Library(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	purchases, err := h.svc.Library(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLibraryResponse(purchases))
}

// Download handles GET /api/downloads/{promptID}. The signed query string
// authorizes the request, so no session is needed.
func (h *PurchaseHandler) Download(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "promptID")

	asset, err := h.svc.ResolveDownload(r.Context(), promptID, r.URL.Query())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	http.Redirect(w, r, asset, http.StatusFound)
}
