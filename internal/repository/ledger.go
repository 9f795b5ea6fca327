package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/reelprompt/reelprompt/internal/model"
)

// ErrInsufficientCredits is returned when a conditional debit finds the balance
// below the requested amount.
var ErrInsufficientCredits = errors.New("insufficient credits")

// DebitCredits atomically subtracts amount from the balance only if the balance
// covers it. No read-then-write: the check and the decrement are one statement.
func (r *Repository) DebitCredits(ctx context.Context, userID string, amount model.Credits, kind model.LedgerKind, reference string) (model.Credits, error) {
	var balance model.Credits
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		balance, err = debit(ctx, tx, userID, amount, kind, reference)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// GrantCredits adds amount to the balance and records it in the ledger.
func (r *Repository) GrantCredits(ctx context.Context, userID string, amount model.Credits, kind model.LedgerKind, reference string) (model.Credits, error) {
	var balance model.Credits
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		balance, err = grant(ctx, tx, userID, amount, kind, reference)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// ListLedger returns the most recent ledger entries for a user.
func (r *Repository) ListLedger(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, kind, amount, balance_after, reference, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var (
			e             model.LedgerEntry
			kind          string
			amount, after int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &amount, &after, &e.Reference, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Kind = model.LedgerKind(kind)
		e.Amount = model.Credits(amount)
		e.BalanceAfter = model.Credits(after)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger: %w", err)
	}
	return entries, nil
}

func debit(ctx context.Context, tx pgx.Tx, userID string, amount model.Credits, kind model.LedgerKind, reference string) (model.Credits, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE users
		SET credits = credits - $2, updated_at = now()
		WHERE id = $1 AND credits >= $2
		RETURNING credits
	`, userID, int64(amount)).Scan(&balance)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("failed to debit credits: %w", err)
		}
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return 0, ErrUserNotFound
		}
		return 0, ErrInsufficientCredits
	}

	if err := insertLedgerEntry(ctx, tx, userID, kind, -amount, model.Credits(balance), reference); err != nil {
		return 0, err
	}
	return model.Credits(balance), nil
}

func grant(ctx context.Context, tx pgx.Tx, userID string, amount model.Credits, kind model.LedgerKind, reference string) (model.Credits, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE users
		SET credits = credits + $2, updated_at = now()
		WHERE id = $1
		RETURNING credits
	`, userID, int64(amount)).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to grant credits: %w", err)
	}

	if err := insertLedgerEntry(ctx, tx, userID, kind, amount, model.Credits(balance), reference); err != nil {
		return 0, err
	}
	return model.Credits(balance), nil
}

func insertLedgerEntry(ctx context.Context, tx pgx.Tx, userID string, kind model.LedgerKind, amount, balanceAfter model.Credits, reference string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, user_id, kind, amount, balance_after, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, ulid.Make().String(), userID, string(kind), int64(amount), int64(balanceAfter), reference)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}
