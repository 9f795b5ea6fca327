package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/repository"
)

// Default signup bonuses.
var (
	DefaultSignupBonus = model.WholeCredits(20)
	DefaultAdminBonus  = model.WholeCredits(100)
)

// BonusResolver decides the signup bonus for an email address.
type BonusResolver struct {
	store        BonusStore
	adminEmail   string
	defaultBonus model.Credits
	adminBonus   model.Credits
	logger       *slog.Logger
}

// NewBonusResolver creates a resolver. Zero bonuses fall back to the defaults.
func NewBonusResolver(store BonusStore, adminEmail string, defaultBonus, adminBonus model.Credits, logger *slog.Logger) *BonusResolver {
	if defaultBonus <= 0 {
		defaultBonus = DefaultSignupBonus
	}
	if adminBonus <= 0 {
		adminBonus = DefaultAdminBonus
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BonusResolver{
		store:        store,
		adminEmail:   strings.ToLower(strings.TrimSpace(adminEmail)),
		defaultBonus: defaultBonus,
		adminBonus:   adminBonus,
		logger:       logger.With("component", "bonus_resolver"),
	}
}

// IsAdminEmail reports whether email is the configured admin address.
func (b *BonusResolver) IsAdminEmail(email string) bool {
	return b.adminEmail != "" && strings.ToLower(strings.TrimSpace(email)) == b.adminEmail
}

// AdminFloor is the minimum balance kept for the admin email.
func (b *BonusResolver) AdminFloor() model.Credits {
	return b.adminBonus
}

// Resolve returns the signup bonus for email. An override can only raise the
// result. Override lookup failures fall back to the default.
func (b *BonusResolver) Resolve(ctx context.Context, email string) model.Credits {
	bonus := b.defaultBonus
	if b.IsAdminEmail(email) {
		bonus = model.MaxCredits(bonus, b.adminBonus)
	}

	if strings.TrimSpace(email) == "" || b.store == nil {
		return bonus
	}

	key := model.NormalizeEmailKey(email)
	override, err := b.store.GetEmailBonus(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrEmailBonusNotFound) {
			return bonus
		}
		b.logger.Warn("email_bonus_lookup_failed", "email_key", key, "error", err)
		return bonus
	}
	if override == nil || override.Credits == nil {
		return bonus
	}

	return model.MaxCredits(bonus, *override.Credits)
}
