package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/reelprompt/reelprompt/internal/handler/dto"
	"github.com/reelprompt/reelprompt/internal/model"
)

// CatalogService reads the prompt catalog.
type CatalogService interface {
	List(ctx context.Context, category, query string) ([]*model.Prompt, error)
	Get(ctx context.Context, id string) (*model.Prompt, error)
}

// CatalogHandler serves the public catalog.
type CatalogHandler struct {
	svc    CatalogService
	logger *slog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(svc CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/prompts?category=&q=.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	prompts, err := h.svc.List(r.Context(), q.Get("category"), q.Get("q"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, dto.ToPromptListResponse(prompts))
}

// Get handles GET /api/prompt?id=.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.svc.Get(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPromptDetailResponse(prompt))
}
