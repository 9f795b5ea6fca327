package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/reelprompt/reelprompt/internal/events"
	"github.com/reelprompt/reelprompt/internal/metrics"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/repository"
)

// AdminService manages bonus overrides and manual credit grants.
type AdminService struct {
	bonuses   BonusAdminStore
	ledger    LedgerStore
	publisher events.Publisher
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewAdminService creates a new AdminService.
func NewAdminService(bonuses BonusAdminStore, ledger LedgerStore, publisher events.Publisher, logger *slog.Logger, recorder metrics.Recorder) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AdminService{
		bonuses:   bonuses,
		ledger:    ledger,
		publisher: publisher,
		logger:    logger.With("component", "admin_service"),
		metrics:   recorder,
	}
}

// SetEmailBonus stores a signup bonus override for email. A nil credits value
// is stored as non-numeric and ignored by the resolver.
func (s *AdminService) SetEmailBonus(ctx context.Context, email string, credits *model.Credits, note string) (*model.EmailBonus, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrInvalidEmail
	}
	if credits != nil && *credits < 0 {
		return nil, ErrInvalidAmount
	}

	bonus := &model.EmailBonus{
		EmailKey: model.NormalizeEmailKey(email),
		Credits:  credits,
		Note:     strings.TrimSpace(note),
	}
	if err := s.bonuses.UpsertEmailBonus(ctx, bonus); err != nil {
		return nil, fmt.Errorf("failed to save email bonus: %w", err)
	}

	s.logger.Info("email_bonus_set", "email_key", bonus.EmailKey)
	return bonus, nil
}

// DeleteEmailBonus removes the override for email.
func (s *AdminService) DeleteEmailBonus(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrInvalidEmail
	}
	key := model.NormalizeEmailKey(email)
	if err := s.bonuses.DeleteEmailBonus(ctx, key); err != nil {
		if errors.Is(err, repository.ErrEmailBonusNotFound) {
			return ErrEmailBonusNotFound
		}
		return fmt.Errorf("failed to delete email bonus: %w", err)
	}
	s.logger.Info("email_bonus_deleted", "email_key", key)
	return nil
}

// ListEmailBonuses returns every override.
func (s *AdminService) ListEmailBonuses(ctx context.Context) ([]*model.EmailBonus, error) {
	bonuses, err := s.bonuses.ListEmailBonuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list email bonuses: %w", err)
	}
	if bonuses == nil {
		bonuses = []*model.EmailBonus{}
	}
	return bonuses, nil
}

// GrantCredits adds amount to userID's balance.
func (s *AdminService) GrantCredits(ctx context.Context, userID string, amount model.Credits, reason string) (model.Credits, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	balance, err := s.ledger.GrantCredits(ctx, userID, amount, model.LedgerAdminGrant, strings.TrimSpace(reason))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to grant credits: %w", err)
	}

	s.metrics.AddCreditsGranted(int64(amount))
	s.logger.Info("credits_granted", "user_id", userID, "amount", amount.String(), "credits", balance.String())

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.BalanceEvent{UserID: userID, Credits: balance, Reason: events.ReasonAdminGrant})
	}
	return balance, nil
}
