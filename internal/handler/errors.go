package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/reelprompt/reelprompt/internal/billing"
	"github.com/reelprompt/reelprompt/internal/middleware"
	"github.com/reelprompt/reelprompt/internal/service"
)

// Error codes returned to clients.
const (
	CodeInvalidJSON         = "INVALID_JSON"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeAlreadyOwned        = "ALREADY_OWNED"
	CodeInternal            = "INTERNAL_ERROR"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// serviceErrors maps service sentinels to responses. Order matters only for
// errors that wrap one another.
var serviceErrors = []errorMapping{
	{service.ErrInsufficientCredits, http.StatusPaymentRequired, CodeInsufficientCredits, "Insufficient credits"},
	{service.ErrAlreadyOwned, http.StatusConflict, CodeAlreadyOwned, "Prompt already owned"},
	{service.ErrNotOwned, http.StatusForbidden, "NOT_OWNED", "Prompt not purchased"},
	{service.ErrInvalidLink, http.StatusForbidden, "INVALID_LINK", "Invalid or expired download link"},
	{service.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{service.ErrPromptNotFound, http.StatusNotFound, "PROMPT_NOT_FOUND", "Prompt not found"},
	{service.ErrEmailBonusNotFound, http.StatusNotFound, "EMAIL_BONUS_NOT_FOUND", "Email bonus not found"},
	{service.ErrMissingPromptID, http.StatusBadRequest, "MISSING_PROMPT_ID", "promptId is required"},
	{service.ErrEmptyPrompt, http.StatusBadRequest, "EMPTY_PROMPT", "Prompt is required"},
	{service.ErrPromptTooLong, http.StatusBadRequest, "PROMPT_TOO_LONG", "Prompt is too long"},
	{service.ErrRefineRequiresPrevious, http.StatusBadRequest, "MISSING_PREVIOUS_PROMPT", "previousPrompt is required when refining"},
	{service.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "INVALID_EMAIL", "Email is required"},
	{service.ErrInvalidCatalogPrompt, http.StatusBadRequest, "INVALID_PROMPT", "Prompt title and asset url are required"},
	{service.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, slow down"},
	{service.ErrGenerationFailed, http.StatusBadGateway, "GENERATION_FAILED", "Prompt generation failed, please try again"},
	{billing.ErrUnknownPack, http.StatusBadRequest, "UNKNOWN_PACK", "Unknown credit pack"},
	{billing.ErrInvalidSignature, http.StatusBadRequest, "INVALID_SIGNATURE", "Invalid signature"},
	{billing.ErrInvalidPayload, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid payload"},
}

// handleServiceError maps service errors to HTTP responses. Anything
// unrecognized is logged and reported as a generic 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				logger.Error("upstream_error",
					"error", err,
					"path", r.URL.Path,
					"request_id", middleware.GetRequestID(r.Context()),
				)
			}
			writeError(w, m.status, m.code, m.message)
			return
		}
	}

	logger.Error("internal_error",
		"error", err,
		"path", r.URL.Path,
		"request_id", middleware.GetRequestID(r.Context()),
	)
	writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
}

// writeInvalidJSON reports an undecodable request body.
func writeInvalidJSON(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, CodeInvalidJSON, "Invalid request body")
}
