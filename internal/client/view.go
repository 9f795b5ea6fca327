package client

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/reelprompt/reelprompt/internal/handler/dto"
)

// PromptView is what a prompt detail page needs.
type PromptView struct {
	Prompt *dto.PromptResponse
	Owned  bool
}

// LoadPromptView fetches a prompt and the caller's ownership concurrently.
// Signed-out callers see Owned false rather than an error.
func (c *Client) LoadPromptView(ctx context.Context, id string) (*PromptView, error) {
	var view PromptView

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.GetPrompt(gctx, id)
		if err != nil {
			return err
		}
		view.Prompt = p
		return nil
	})
	g.Go(func() error {
		owned, err := c.CheckOwnership(gctx, id)
		if err != nil {
			if IsUnauthenticated(err) {
				return nil
			}
			return err
		}
		view.Owned = owned
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &view, nil
}
