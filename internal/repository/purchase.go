package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/reelprompt/reelprompt/internal/model"
)

// ErrAlreadyOwned is returned when the user already holds a grant for the prompt.
var ErrAlreadyOwned = errors.New("prompt already owned")

// HasPurchase reports whether a grant exists for (userID, promptID).
func (r *Repository) HasPurchase(ctx context.Context, userID, promptID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM purchases WHERE user_id = $1 AND prompt_id = $2)
	`, userID, promptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return exists, nil
}

// PurchasePrompt debits the prompt price and records the grant in a single
// transaction. Either both happen or neither does.
func (r *Repository) PurchasePrompt(ctx context.Context, userID string, prompt *model.Prompt) (*model.Purchase, model.Credits, error) {
	purchase := &model.Purchase{
		ID:          ulid.Make().String(),
		UserID:      userID,
		PromptID:    prompt.ID,
		PricePaid:   prompt.Price,
		PromptTitle: prompt.Title,
	}
	var balance model.Credits

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if _, _, err := lockUser(ctx, tx, userID); err != nil {
			return err
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO purchases (id, user_id, prompt_id, price_paid, granted_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (user_id, prompt_id) DO NOTHING
			RETURNING granted_at
		`, purchase.ID, userID, prompt.ID, int64(prompt.Price)).Scan(&purchase.GrantedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAlreadyOwned
			}
			return fmt.Errorf("failed to insert purchase: %w", err)
		}

		balance, err = debit(ctx, tx, userID, prompt.Price, model.LedgerPurchase, prompt.ID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return purchase, balance, nil
}

// ListPurchases returns the user's grants with prompt titles, newest first.
func (r *Repository) ListPurchases(ctx context.Context, userID string) ([]*model.Purchase, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pu.id, pu.user_id, pu.prompt_id, pu.price_paid, pu.granted_at, COALESCE(pr.title, '')
		FROM purchases pu
		LEFT JOIN prompts pr ON pr.id = pu.prompt_id
		WHERE pu.user_id = $1
		ORDER BY pu.granted_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*model.Purchase
	for rows.Next() {
		var (
			p     model.Purchase
			price int64
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.PromptID, &price, &p.GrantedAt, &p.PromptTitle); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		p.PricePaid = model.Credits(price)
		purchases = append(purchases, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchases: %w", err)
	}
	return purchases, nil
}
