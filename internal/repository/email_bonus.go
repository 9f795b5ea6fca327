package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/reelprompt/reelprompt/internal/model"
)

// ErrEmailBonusNotFound is returned when no override exists for an email key.
var ErrEmailBonusNotFound = errors.New("email bonus not found")

// GetEmailBonus returns the override stored under key. Credits is nil when the
// stored value is NULL.
func (r *Repository) GetEmailBonus(ctx context.Context, key string) (*model.EmailBonus, error) {
	bonus, err := scanEmailBonus(r.pool.QueryRow(ctx, `
		SELECT email_key, credits::float8, note, updated_at
		FROM email_bonuses
		WHERE email_key = $1
	`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmailBonusNotFound
		}
		return nil, fmt.Errorf("failed to get email bonus: %w", err)
	}
	return bonus, nil
}

// UpsertEmailBonus stores an override. A nil Credits stores NULL.
func (r *Repository) UpsertEmailBonus(ctx context.Context, bonus *model.EmailBonus) error {
	var credits *float64
	if bonus.Credits != nil {
		v := bonus.Credits.Float64()
		credits = &v
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO email_bonuses (email_key, credits, note, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (email_key) DO UPDATE SET
			credits = EXCLUDED.credits,
			note = EXCLUDED.note,
			updated_at = now()
		RETURNING updated_at
	`, bonus.EmailKey, credits, bonus.Note).Scan(&bonus.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert email bonus: %w", err)
	}
	return nil
}

// DeleteEmailBonus removes an override.
func (r *Repository) DeleteEmailBonus(ctx context.Context, key string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM email_bonuses WHERE email_key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete email bonus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEmailBonusNotFound
	}
	return nil
}

// ListEmailBonuses returns every override ordered by key.
func (r *Repository) ListEmailBonuses(ctx context.Context) ([]*model.EmailBonus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT email_key, credits::float8, note, updated_at
		FROM email_bonuses
		ORDER BY email_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list email bonuses: %w", err)
	}
	defer rows.Close()

	var bonuses []*model.EmailBonus
	for rows.Next() {
		b, err := scanEmailBonus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email bonus: %w", err)
		}
		bonuses = append(bonuses, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating email bonuses: %w", err)
	}
	return bonuses, nil
}

func scanEmailBonus(row pgx.Row) (*model.EmailBonus, error) {
	var (
		b       model.EmailBonus
		credits *float64
	)
	if err := row.Scan(&b.EmailKey, &credits, &b.Note, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if credits != nil {
		c := model.CreditsFromFloat(*credits)
		b.Credits = &c
	}
	return &b, nil
}
