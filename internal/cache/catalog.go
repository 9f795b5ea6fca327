package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reelprompt/reelprompt/internal/model"
)

const (
	catalogKey = "catalog:prompts"

	// DefaultCatalogTTL is the TTL for the cached catalog listing.
	DefaultCatalogTTL = 10 * time.Minute
)

// ErrCacheMiss is returned when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

// cachedPrompt mirrors model.Prompt including the fields hidden from API JSON.
type cachedPrompt struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Subcategory   string    `json:"subcategory"`
	ThumbnailURL  string    `json:"thumbnail_url"`
	ThumbnailURLs []string  `json:"thumbnail_urls,omitempty"`
	AssetURL      string    `json:"asset_url"`
	Price         int64     `json:"price"`
	CreatedAt     time.Time `json:"created_at"`
}

// GetCatalog returns the cached prompt listing.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetCatalog(ctx context.Context) ([]*model.Prompt, error) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cached []cachedPrompt
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, ErrCacheMiss
	}

	prompts := make([]*model.Prompt, 0, len(cached))
	for _, cp := range cached {
		prompts = append(prompts, &model.Prompt{
			ID:            cp.ID,
			Title:         cp.Title,
			Description:   cp.Description,
			Subcategory:   cp.Subcategory,
			ThumbnailURL:  cp.ThumbnailURL,
			ThumbnailURLs: cp.ThumbnailURLs,
			AssetURL:      cp.AssetURL,
			Price:         model.Credits(cp.Price),
			CreatedAt:     cp.CreatedAt,
		})
	}
	return prompts, nil
}

// SetCatalog stores the prompt listing.
func (c *Cache) SetCatalog(ctx context.Context, prompts []*model.Prompt) error {
	data, err := json.Marshal(toCachedPrompts(prompts))
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	if err := c.client.Set(ctx, catalogKey, data, DefaultCatalogTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache catalog: %w", err)
	}
	return nil
}

// InvalidateCatalog drops the cached listing.
func (c *Cache) InvalidateCatalog(ctx context.Context) error {
	if err := c.client.Del(ctx, catalogKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog: %w", err)
	}
	return nil
}

func toCachedPrompts(prompts []*model.Prompt) []cachedPrompt {
	out := make([]cachedPrompt, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, cachedPrompt{
			ID:            p.ID,
			Title:         p.Title,
			Description:   p.Description,
			Subcategory:   p.Subcategory,
			ThumbnailURL:  p.ThumbnailURL,
			ThumbnailURLs: p.ThumbnailURLs,
			AssetURL:      p.AssetURL,
			Price:         int64(p.Price),
			CreatedAt:     p.CreatedAt,
		})
	}
	return out
}
