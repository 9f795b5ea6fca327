package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/reelprompt/reelprompt/internal/metrics"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/repository"
)

// CatalogService serves the prompt catalog.
type CatalogService struct {
	store   CatalogStore
	cache   CatalogCache
	group   singleflight.Group
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewCatalogService creates a new CatalogService. cache may be nil.
func NewCatalogService(store CatalogStore, cache CatalogCache, logger *slog.Logger, recorder metrics.Recorder) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &CatalogService{
		store:   store,
		cache:   cache,
		logger:  logger.With("component", "catalog_service"),
		metrics: recorder,
	}
}

// List returns prompts in category whose title or description contains query.
// An empty category or "All" matches every prompt.
func (s *CatalogService) List(ctx context.Context, category, query string) ([]*model.Prompt, error) {
	prompts, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return filterPrompts(prompts, category, query), nil
}

// Get returns one prompt.
func (s *CatalogService) Get(ctx context.Context, id string) (*model.Prompt, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingPromptID
	}
	p, err := s.store.GetPrompt(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPromptNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return p, nil
}

// Upsert creates or replaces a prompt and drops the cached listing.
func (s *CatalogService) Upsert(ctx context.Context, p *model.Prompt) (*model.Prompt, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.AssetURL = strings.TrimSpace(p.AssetURL)
	if p.Title == "" || p.AssetURL == "" {
		return nil, ErrInvalidCatalogPrompt
	}
	if p.ID == "" {
		p.ID = ulid.Make().String()
	}

	if err := s.store.UpsertPrompt(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save prompt: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateCatalog(ctx); err != nil {
			s.logger.Warn("catalog_invalidate_failed", "error", err)
		}
	}
	s.logger.Info("prompt_saved", "prompt_id", p.ID)
	return p, nil
}

// all loads the full listing from cache, collapsing concurrent misses into
// one database read.
func (s *CatalogService) all(ctx context.Context) ([]*model.Prompt, error) {
	if s.cache != nil {
		prompts, err := s.cache.GetCatalog(ctx)
		if err == nil {
			s.metrics.IncCatalogCacheHit()
			return prompts, nil
		}
		s.metrics.IncCatalogCacheMiss()
	}

	v, err, _ := s.group.Do("catalog", func() (any, error) {
		prompts, err := s.store.ListPrompts(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.SetCatalog(ctx, prompts); err != nil {
				s.logger.Warn("catalog_cache_fill_failed", "error", err)
			}
		}
		return prompts, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	return v.([]*model.Prompt), nil
}

func filterPrompts(prompts []*model.Prompt, category, query string) []*model.Prompt {
	category = strings.TrimSpace(category)
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]*model.Prompt, 0, len(prompts))
	for _, p := range prompts {
		if category != "" && category != model.CategoryAll && p.Subcategory != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Title), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}
