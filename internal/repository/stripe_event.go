package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/reelprompt/reelprompt/internal/model"
)

// ErrEventProcessed is returned when a payment event was already applied.
var ErrEventProcessed = errors.New("event already processed")

// ApplyTopUp grants credits for a completed payment exactly once per event id.
func (r *Repository) ApplyTopUp(ctx context.Context, eventID, eventType, userID string, amount model.Credits) (model.Credits, error) {
	var balance model.Credits

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO stripe_events (event_id, event_type, user_id, processed_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (event_id) DO NOTHING
			RETURNING event_id
		`, eventID, eventType, userID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrEventProcessed
			}
			return fmt.Errorf("failed to record stripe event: %w", err)
		}

		balance, err = grant(ctx, tx, userID, amount, model.LedgerTopUp, eventID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}
