package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/reelprompt/reelprompt/internal/enhancer"
	"github.com/reelprompt/reelprompt/internal/events"
	"github.com/reelprompt/reelprompt/internal/metrics"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/repository"
)

// MaxPromptLength is the longest accepted enhancement input, in characters.
const MaxPromptLength = 4000

// EnhanceInput is one enhancement request.
type EnhanceInput struct {
	Prompt         string
	PreviousPrompt string
	IsRefine       bool
	// RequestID is stored as the ledger reference of the debit.
	RequestID string
}

// RateLimitedError is returned when the caller is over the enhancement rate.
// It matches ErrRateLimited.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%v: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// EnhanceResult carries both renderings of the generated prompt.
type EnhanceResult struct {
	EnhancedPrompt string        `json:"enhancedPrompt"`
	JSONOutput     string        `json:"jsonOutput"`
	Credits        model.Credits `json:"credits"`
}

// EnhanceLimits configures the per-user rate limit. A zero rate disables it.
type EnhanceLimits struct {
	RatePerMinute int
	Burst         int
}

// EnhanceService charges for prompt enhancements.
type EnhanceService struct {
	store     LedgerStore
	generator enhancer.Generator
	limiter   RateLimiter
	limits    EnhanceLimits
	publisher events.Publisher
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewEnhanceService creates a new EnhanceService. limiter and publisher may be nil.
func NewEnhanceService(store LedgerStore, generator enhancer.Generator, limiter RateLimiter, limits EnhanceLimits, publisher events.Publisher, logger *slog.Logger, recorder metrics.Recorder) *EnhanceService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &EnhanceService{
		store:     store,
		generator: generator,
		limiter:   limiter,
		limits:    limits,
		publisher: publisher,
		logger:    logger.With("component", "enhance_service"),
		metrics:   recorder,
	}
}

// Enhance generates a structured prompt and debits model.EnhancementCost.
// The balance is checked before generation so an empty account never spends
// a model call, and debited atomically afterwards; if a concurrent spend
// drained the balance in between, the result is withheld.
func (s *EnhanceService) Enhance(ctx context.Context, userID string, input EnhanceInput) (*EnhanceResult, error) {
	if err := validateEnhanceInput(&input); err != nil {
		return nil, err
	}

	if s.limiter != nil && s.limits.RatePerMinute > 0 {
		res, err := s.limiter.CheckEnhanceRateLimit(ctx, userID, s.limits.RatePerMinute, s.limits.Burst)
		switch {
		case err != nil:
			// Fail open on Redis errors.
			s.logger.Warn("rate_limit_check_failed", "user_id", userID, "error", err)
		case !res.Allowed:
			s.metrics.IncEnhancement(metrics.StatusRateLimited)
			return nil, &RateLimitedError{RetryAfter: res.RetryAfter}
		}
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if user.Credits < model.EnhancementCost {
		s.metrics.IncEnhancement(metrics.StatusInsufficient)
		return nil, ErrInsufficientCredits
	}

	start := time.Now()
	spec, err := s.generator.Generate(ctx, enhancer.Request{
		Prompt:         input.Prompt,
		PreviousPrompt: input.PreviousPrompt,
		IsRefine:       input.IsRefine,
	})
	s.metrics.ObserveEnhanceDuration(time.Since(start))
	if err != nil {
		s.metrics.IncEnhancement(metrics.StatusFailed)
		s.logger.Error("generation_failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	rendered, err := enhancer.Render(spec)
	if err != nil {
		s.metrics.IncEnhancement(metrics.StatusFailed)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	balance, err := s.store.DebitCredits(ctx, userID, model.EnhancementCost, model.LedgerEnhancement, input.RequestID)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			s.metrics.IncEnhancement(metrics.StatusInsufficient)
			return nil, ErrInsufficientCredits
		}
		return nil, fmt.Errorf("failed to debit enhancement: %w", err)
	}

	s.metrics.IncEnhancement(metrics.StatusSuccess)
	s.metrics.AddCreditsSpent(int64(model.EnhancementCost))
	s.logger.Info("enhancement_completed",
		"user_id", userID,
		"refine", input.IsRefine,
		"credits", balance.String(),
		"request_id", input.RequestID,
	)

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.BalanceEvent{UserID: userID, Credits: balance, Reason: events.ReasonEnhancement})
	}

	return &EnhanceResult{
		EnhancedPrompt: rendered.XML,
		JSONOutput:     rendered.JSON,
		Credits:        balance,
	}, nil
}

func validateEnhanceInput(input *EnhanceInput) error {
	input.Prompt = strings.TrimSpace(input.Prompt)
	if input.Prompt == "" {
		return ErrEmptyPrompt
	}
	if utf8.RuneCountInString(input.Prompt) > MaxPromptLength {
		return ErrPromptTooLong
	}
	if input.IsRefine && strings.TrimSpace(input.PreviousPrompt) == "" {
		return ErrRefineRequiresPrevious
	}
	return nil
}
