package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/reelprompt/reelprompt/internal/events"
	"github.com/reelprompt/reelprompt/internal/metrics"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/repository"
)

// URLSigner issues and checks download links.
type URLSigner interface {
	DownloadURL(userID, promptID string) string
	Verify(promptID string, q url.Values) (string, error)
}

// PurchaseResult is returned after a successful purchase.
type PurchaseResult struct {
	DownloadURL string        `json:"downloadUrl"`
	PromptTitle string        `json:"promptTitle,omitempty"`
	Credits     model.Credits `json:"credits"`
}

// PurchaseService gates prompt assets behind entitlements.
type PurchaseService struct {
	store     PurchaseStore
	signer    URLSigner
	publisher events.Publisher
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewPurchaseService creates a new PurchaseService.
func NewPurchaseService(store PurchaseStore, signer URLSigner, publisher events.Publisher, logger *slog.Logger, recorder metrics.Recorder) *PurchaseService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &PurchaseService{
		store:     store,
		signer:    signer,
		publisher: publisher,
		logger:    logger.With("component", "purchase_service"),
		metrics:   recorder,
	}
}

// CheckOwnership reports whether userID holds an entitlement for promptID.
func (s *PurchaseService) CheckOwnership(ctx context.Context, userID, promptID string) (bool, error) {
	if strings.TrimSpace(promptID) == "" {
		return false, ErrMissingPromptID
	}
	owned, err := s.store.HasPurchase(ctx, userID, promptID)
	if err != nil {
		return false, fmt.Errorf("failed to check ownership: %w", err)
	}
	return owned, nil
}

// Purchase debits the prompt price and grants the entitlement atomically.
// Owning the prompt already is an error; callers should use DownloadLink.
func (s *PurchaseService) Purchase(ctx context.Context, userID, promptID string) (*PurchaseResult, error) {
	if strings.TrimSpace(promptID) == "" {
		return nil, ErrMissingPromptID
	}

	prompt, err := s.store.GetPrompt(ctx, promptID)
	if err != nil {
		if errors.Is(err, repository.ErrPromptNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}

	_, balance, err := s.store.PurchasePrompt(ctx, userID, prompt)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyOwned):
			s.metrics.IncPurchase(metrics.StatusAlreadyOwned)
			return nil, ErrAlreadyOwned
		case errors.Is(err, repository.ErrInsufficientCredits):
			s.metrics.IncPurchase(metrics.StatusInsufficient)
			return nil, ErrInsufficientCredits
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		s.metrics.IncPurchase(metrics.StatusFailed)
		return nil, fmt.Errorf("failed to purchase prompt: %w", err)
	}

	s.metrics.IncPurchase(metrics.StatusSuccess)
	s.metrics.AddCreditsSpent(int64(prompt.Price))
	s.logger.Info("purchase_completed",
		"user_id", userID,
		"prompt_id", prompt.ID,
		"price", prompt.Price.String(),
		"credits", balance.String(),
	)

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.BalanceEvent{UserID: userID, Credits: balance, Reason: events.ReasonPurchase})
	}

	return &PurchaseResult{
		DownloadURL: s.signer.DownloadURL(userID, prompt.ID),
		PromptTitle: prompt.Title,
		Credits:     balance,
	}, nil
}

// DownloadLink issues a fresh link for an owned prompt without debiting.
func (s *PurchaseService) DownloadLink(ctx context.Context, userID, promptID string) (string, error) {
	owned, err := s.CheckOwnership(ctx, userID, promptID)
	if err != nil {
		return "", err
	}
	if !owned {
		return "", ErrNotOwned
	}
	return s.signer.DownloadURL(userID, promptID), nil
}

// ResolveDownload validates a signed link and returns the asset location.
// The entitlement is re-checked so revoked grants stop working immediately.
func (s *PurchaseService) ResolveDownload(ctx context.Context, promptID string, q url.Values) (string, error) {
	userID, err := s.signer.Verify(promptID, q)
	if err != nil {
		return "", ErrInvalidLink
	}

	owned, err := s.store.HasPurchase(ctx, userID, promptID)
	if err != nil {
		return "", fmt.Errorf("failed to check ownership: %w", err)
	}
	if !owned {
		return "", ErrNotOwned
	}

	prompt, err := s.store.GetPrompt(ctx, promptID)
	if err != nil {
		if errors.Is(err, repository.ErrPromptNotFound) {
			return "", ErrPromptNotFound
		}
		return "", fmt.Errorf("failed to get prompt: %w", err)
	}
	if prompt.AssetURL == "" {
		return "", ErrPromptNotFound
	}

	s.logger.Info("download_served", "user_id", userID, "prompt_id", promptID)
	return prompt.AssetURL, nil
}

// Library lists the caller's entitlements.
func (s *PurchaseService) Library(ctx context.Context, userID string) ([]*model.Purchase, error) {
	purchases, err := s.store.ListPurchases(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	if purchases == nil {
		purchases = []*model.Purchase{}
	}
	return purchases, nil
}
