package handler

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/reelprompt/reelprompt/internal/auth"
	"github.com/reelprompt/reelprompt/internal/handler/dto"
	"github.com/reelprompt/reelprompt/internal/middleware"
	"github.com/reelprompt/reelprompt/internal/service"
)

// EnhanceService turns a short idea into a structured prompt.
type EnhanceService interface {
	Enhance(ctx context.Context, userID string, input service.EnhanceInput) (*service.EnhanceResult, error)
}

// EnhanceHandler handles prompt enhancement.
type EnhanceHandler struct {
	svc    EnhanceService
	logger *slog.Logger
}

// NewEnhanceHandler creates a new EnhanceHandler.
func NewEnhanceHandler(svc EnhanceService, logger *slog.Logger) *EnhanceHandler {
	return &EnhanceHandler{
		svc:    svc,
		logger: logger,
	}
}

// Enhance handles POST /api/enhance-prompt.
func (h *EnhanceHandler) Enhance(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeUnauthenticated(w)
		return
	}

	var req dto.EnhanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	res, err := h.svc.Enhance(r.Context(), userID, service.EnhanceInput{
		Prompt:         req.Prompt,
		PreviousPrompt: req.PreviousPrompt,
		IsRefine:       req.IsRefine,
		RequestID:      middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		var limited *service.RateLimitedError
		if errors.As(err, &limited) && limited.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		}
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EnhanceResponse{
		EnhancedPrompt: res.EnhancedPrompt,
		JSONOutput:     res.JSONOutput,
		Credits:        res.Credits,
	})
}
