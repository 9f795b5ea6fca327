package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/reelprompt/reelprompt/internal/events"
	"github.com/reelprompt/reelprompt/internal/metrics"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/repository"
)

// initLockTTL bounds how long one initialize call holds the per-user lock.
const initLockTTL = 5 * time.Second

// Profile is what the profile endpoint reports.
type Profile struct {
	Credits     model.Credits `json:"credits"`
	IsAdmin     bool          `json:"isAdmin"`
	Email       string        `json:"email"`
	DisplayName string        `json:"displayName"`
}

// AccountService reconciles accounts with their signup bonus and admin state.
type AccountService struct {
	store       AccountStore
	bonus       *BonusResolver
	locker      Locker
	publisher   events.Publisher
	adminUserID string
	logger      *slog.Logger
	metrics     metrics.Recorder
}

// NewAccountService creates a new AccountService. locker and publisher may be nil.
func NewAccountService(store AccountStore, bonus *BonusResolver, locker Locker, publisher events.Publisher, adminUserID string, logger *slog.Logger, recorder metrics.Recorder) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		store:       store,
		bonus:       bonus,
		locker:      locker,
		publisher:   publisher,
		adminUserID: adminUserID,
		logger:      logger.With("component", "account_service"),
		metrics:     recorder,
	}
}

// Reconcile brings the caller's account to the bonus-applied state and
// returns the resulting profile. Repeated calls do not change the balance
// except to restore the admin email floor.
func (s *AccountService) Reconcile(ctx context.Context, id *model.Identity) (*Profile, error) {
	user, err := s.store.GetUser(ctx, id.UID)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		user, err = s.create(ctx, id)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	email := id.Email
	if email == "" {
		email = user.Email
	}

	if !user.SignupBonusApplied {
		bonus := s.bonus.Resolve(ctx, email)
		updated, applied, err := s.store.ApplySignupBonus(ctx, user.ID, bonus)
		if err != nil {
			return nil, fmt.Errorf("failed to apply signup bonus: %w", err)
		}
		user = updated
		if applied {
			s.metrics.IncSignupBonusApplied()
			s.logger.Info("signup_bonus_applied", "user_id", user.ID, "bonus", bonus.String(), "credits", user.Credits.String())
		}
	}

	if s.bonus.IsAdminEmail(email) && user.Credits < s.bonus.AdminFloor() {
		updated, raised, err := s.store.RaiseCreditsFloor(ctx, user.ID, s.bonus.AdminFloor())
		if err != nil {
			return nil, fmt.Errorf("failed to restore admin floor: %w", err)
		}
		user = updated
		if raised {
			s.logger.Info("admin_floor_restored", "user_id", user.ID, "credits", user.Credits.String())
		}
	}

	return &Profile{
		Credits:     user.Credits,
		IsAdmin:     user.IsAdmin || s.isAdminIdentity(id.UID, email),
		Email:       email,
		DisplayName: firstNonEmpty(id.DisplayName, user.DisplayName),
	}, nil
}

// Initialize runs Reconcile once per burst of calls for the same account and
// announces the balance. Lock errors do not block reconciliation.
func (s *AccountService) Initialize(ctx context.Context, id *model.Identity) (*Profile, error) {
	if s.locker != nil {
		release, err := s.locker.TryLock(ctx, "init:"+id.UID, initLockTTL)
		switch {
		case err != nil:
			s.logger.Warn("init_lock_failed", "user_id", id.UID, "error", err)
		case release == nil:
			s.logger.Debug("init_lock_held", "user_id", id.UID)
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Warn("init_unlock_failed", "user_id", id.UID, "error", err)
				}
			}()
		}
	}

	profile, err := s.Reconcile(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.BalanceEvent{UserID: id.UID, Credits: profile.Credits, Reason: events.ReasonInitialize})
	}
	return profile, nil
}

// IsAdmin reports whether the caller may use admin endpoints. Either the
// stored flag or the configured uid/email grants access.
func (s *AccountService) IsAdmin(ctx context.Context, id *model.Identity) (bool, error) {
	if s.isAdminIdentity(id.UID, id.Email) {
		return true, nil
	}
	user, err := s.store.GetUser(ctx, id.UID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load account: %w", err)
	}
	return user.IsAdmin, nil
}

// History returns the caller's recent ledger entries.
func (s *AccountService) History(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	entries, err := s.store.ListLedger(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	if entries == nil {
		entries = []*model.LedgerEntry{}
	}
	return entries, nil
}

func (s *AccountService) create(ctx context.Context, id *model.Identity) (*model.User, error) {
	bonus := s.bonus.Resolve(ctx, id.Email)
	user := &model.User{
		ID:                 id.UID,
		Email:              strings.TrimSpace(id.Email),
		DisplayName:        id.DisplayName,
		Credits:            bonus,
		IsAdmin:            s.isAdminIdentity(id.UID, id.Email),
		SignupBonusApplied: true,
	}

	err := s.store.CreateUser(ctx, user)
	if errors.Is(err, repository.ErrUserExists) {
		// Lost the insert race; the winner's row is authoritative.
		existing, err := s.store.GetUser(ctx, id.UID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload account: %w", err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.metrics.IncAccountCreated()
	s.logger.Info("account_created", "user_id", user.ID, "bonus", bonus.String(), "is_admin", user.IsAdmin)
	return user, nil
}

func (s *AccountService) isAdminIdentity(uid, email string) bool {
	return (s.adminUserID != "" && uid == s.adminUserID) || s.bonus.IsAdminEmail(email)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
