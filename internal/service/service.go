// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/reelprompt/reelprompt/internal/cache"
	"github.com/reelprompt/reelprompt/internal/model"
)

// Service errors.
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrPromptNotFound         = errors.New("prompt not found")
	ErrMissingPromptID        = errors.New("promptId is required")
	ErrAlreadyOwned           = errors.New("prompt already owned")
	ErrNotOwned               = errors.New("prompt not owned")
	ErrInvalidLink            = errors.New("invalid or expired download link")
	ErrInsufficientCredits    = errors.New("insufficient credits")
	ErrEmptyPrompt            = errors.New("prompt is required")
	ErrPromptTooLong          = errors.New("prompt too long")
	ErrRefineRequiresPrevious = errors.New("previousPrompt is required when refining")
	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrGenerationFailed       = errors.New("prompt generation failed")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidEmail           = errors.New("email is required")
	ErrEmailBonusNotFound     = errors.New("email bonus not found")
	ErrInvalidCatalogPrompt   = errors.New("prompt title and asset url are required")
)

// AccountStore persists credit accounts.
type AccountStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	ApplySignupBonus(ctx context.Context, id string, bonus model.Credits) (*model.User, bool, error)
	RaiseCreditsFloor(ctx context.Context, id string, floor model.Credits) (*model.User, bool, error)
	ListLedger(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error)
}

// BonusStore reads signup bonus overrides.
type BonusStore interface {
	GetEmailBonus(ctx context.Context, key string) (*model.EmailBonus, error)
}

// BonusAdminStore manages signup bonus overrides.
type BonusAdminStore interface {
	BonusStore
	UpsertEmailBonus(ctx context.Context, bonus *model.EmailBonus) error
	DeleteEmailBonus(ctx context.Context, key string) error
	ListEmailBonuses(ctx context.Context) ([]*model.EmailBonus, error)
}

// CatalogStore persists prompts.
type CatalogStore interface {
	ListPrompts(ctx context.Context) ([]*model.Prompt, error)
	GetPrompt(ctx context.Context, id string) (*model.Prompt, error)
	UpsertPrompt(ctx context.Context, p *model.Prompt) error
}

// CatalogCache caches the prompt listing.
type CatalogCache interface {
	GetCatalog(ctx context.Context) ([]*model.Prompt, error)
	SetCatalog(ctx context.Context, prompts []*model.Prompt) error
	InvalidateCatalog(ctx context.Context) error
}

// PurchaseStore persists entitlements.
type PurchaseStore interface {
	GetPrompt(ctx context.Context, id string) (*model.Prompt, error)
	HasPurchase(ctx context.Context, userID, promptID string) (bool, error)
	PurchasePrompt(ctx context.Context, userID string, prompt *model.Prompt) (*model.Purchase, model.Credits, error)
	ListPurchases(ctx context.Context, userID string) ([]*model.Purchase, error)
}

// LedgerStore mutates balances.
type LedgerStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	DebitCredits(ctx context.Context, userID string, amount model.Credits, kind model.LedgerKind, reference string) (model.Credits, error)
	GrantCredits(ctx context.Context, userID string, amount model.Credits, kind model.LedgerKind, reference string) (model.Credits, error)
}

// Locker provides short-lived exclusive locks. A nil release means the lock
// is held elsewhere.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

// RateLimiter limits enhancement calls per user.
type RateLimiter interface {
	CheckEnhanceRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
}
