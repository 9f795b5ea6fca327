package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/reelprompt/reelprompt/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

const userColumns = `id, email, display_name, credits, is_admin, signup_bonus_applied,
	COALESCE(stripe_customer_id, ''), created_at, updated_at`

// CreateUser inserts a new account. A positive starting balance is recorded in
// the ledger as the signup bonus.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO users (id, email, display_name, credits, is_admin, signup_bonus_applied, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			RETURNING created_at, updated_at
		`

		err := tx.QueryRow(ctx, query,
			user.ID,
			user.Email,
			user.DisplayName,
			int64(user.Credits),
			user.IsAdmin,
			user.SignupBonusApplied,
		).Scan(&user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrUserExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		if user.Credits > 0 {
			return insertLedgerEntry(ctx, tx, user.ID, model.LedgerSignupBonus, user.Credits, user.Credits, "")
		}
		return nil
	})
}

// GetUser retrieves an account by identity id.
func (r *Repository) GetUser(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByStripeCustomer retrieves the account linked to a Stripe customer.
func (r *Repository) GetUserByStripeCustomer(ctx context.Context, customerID string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by stripe customer: %w", err)
	}
	return user, nil
}

// ApplySignupBonus raises the balance to at least bonus and marks the bonus as
// applied, but only while signup_bonus_applied is still false. The boolean
// result reports whether this call performed the transition.
func (r *Repository) ApplySignupBonus(ctx context.Context, id string, bonus model.Credits) (*model.User, bool, error) {
	var (
		user    *model.User
		applied bool
	)

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		current, flag, err := lockUser(ctx, tx, id)
		if err != nil {
			return err
		}

		if flag {
			user, err = scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
			return err
		}

		next := model.MaxCredits(current, bonus)
		user, err = scanUser(tx.QueryRow(ctx, `
			UPDATE users
			SET credits = $2, signup_bonus_applied = TRUE, updated_at = now()
			WHERE id = $1
			RETURNING `+userColumns, id, int64(next)))
		if err != nil {
			return fmt.Errorf("failed to apply signup bonus: %w", err)
		}
		applied = true

		if delta := next - current; delta > 0 {
			return insertLedgerEntry(ctx, tx, id, model.LedgerSignupBonus, delta, next, "")
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return user, applied, nil
}

// RaiseCreditsFloor lifts the balance to floor when it is below it, marks the
// signup bonus applied and flags the account as admin. Balances already at or
// above floor are left untouched.
func (r *Repository) RaiseCreditsFloor(ctx context.Context, id string, floor model.Credits) (*model.User, bool, error) {
	var (
		user   *model.User
		raised bool
	)

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		current, _, err := lockUser(ctx, tx, id)
		if err != nil {
			return err
		}

		if current >= floor {
			user, err = scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
			return err
		}

		user, err = scanUser(tx.QueryRow(ctx, `
			UPDATE users
			SET credits = $2, signup_bonus_applied = TRUE, is_admin = TRUE, updated_at = now()
			WHERE id = $1
			RETURNING `+userColumns, id, int64(floor)))
		if err != nil {
			return fmt.Errorf("failed to raise credits floor: %w", err)
		}
		raised = true

		return insertLedgerEntry(ctx, tx, id, model.LedgerAdminFloor, floor-current, floor, "")
	})
	if err != nil {
		return nil, false, err
	}
	return user, raised, nil
}

// SetStripeCustomerID links an account to its Stripe customer.
func (r *Repository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET stripe_customer_id = $2, updated_at = now() WHERE id = $1
	`, id, customerID)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// lockUser takes a row lock on the account for the rest of tx.
func lockUser(ctx context.Context, tx pgx.Tx, id string) (model.Credits, bool, error) {
	var (
		credits int64
		applied bool
	)
	err := tx.QueryRow(ctx, `
		SELECT credits, signup_bonus_applied FROM users WHERE id = $1 FOR UPDATE
	`, id).Scan(&credits, &applied)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, ErrUserNotFound
		}
		return 0, false, fmt.Errorf("failed to lock user: %w", err)
	}
	return model.Credits(credits), applied, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		user    model.User
		credits int64
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&credits,
		&user.IsAdmin,
		&user.SignupBonusApplied,
		&user.StripeCustomerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Credits = model.Credits(credits)
	return &user, nil
}
