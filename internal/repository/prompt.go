package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/reelprompt/reelprompt/internal/model"
)

// ErrPromptNotFound is returned when a prompt id does not exist.
var ErrPromptNotFound = errors.New("prompt not found")

const promptColumns = `id, title, description, subcategory, thumbnail_url, thumbnail_urls, asset_url, price, created_at`

// GetPrompt retrieves a catalog prompt by id.
func (r *Repository) GetPrompt(ctx context.Context, id string) (*model.Prompt, error) {
	query := `SELECT ` + promptColumns + ` FROM prompts WHERE id = $1`

	prompt, err := scanPrompt(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromptNotFound
		}
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return prompt, nil
}

// ListPrompts returns the full catalog, newest first.
func (r *Repository) ListPrompts(ctx context.Context) ([]*model.Prompt, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+promptColumns+` FROM prompts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []*model.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prompts: %w", err)
	}
	return prompts, nil
}

// UpsertPrompt creates or replaces a catalog prompt.
func (r *Repository) UpsertPrompt(ctx context.Context, p *model.Prompt) error {
	if p.Price <= 0 {
		p.Price = model.PromptPrice
	}
	thumbs := p.ThumbnailURLs
	if thumbs == nil {
		thumbs = []string{}
	}

	query := `
		INSERT INTO prompts (id, title, description, subcategory, thumbnail_url, thumbnail_urls, asset_url, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			subcategory = EXCLUDED.subcategory,
			thumbnail_url = EXCLUDED.thumbnail_url,
			thumbnail_urls = EXCLUDED.thumbnail_urls,
			asset_url = EXCLUDED.asset_url,
			price = EXCLUDED.price
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.ID,
		strings.TrimSpace(p.Title),
		p.Description,
		p.Subcategory,
		p.ThumbnailURL,
		pq.Array(thumbs),
		p.AssetURL,
		int64(p.Price),
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert prompt: %w", err)
	}
	return nil
}

func scanPrompt(row pgx.Row) (*model.Prompt, error) {
	var (
		p      model.Prompt
		thumbs []string
		price  int64
	)
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Subcategory,
		&p.ThumbnailURL,
		pq.Array(&thumbs),
		&p.AssetURL,
		&price,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ThumbnailURLs = thumbs
	p.Price = model.Credits(price)
	return &p, nil
}
