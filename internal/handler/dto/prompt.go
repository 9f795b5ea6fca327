package dto

import (
	"time"

	"github.com/reelprompt/reelprompt/internal/model"
)

// PromptResponse is a catalog item as shown to clients. The asset location
// is never included.
type PromptResponse struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Subcategory   string        `json:"subcategory"`
	ThumbnailURL  string        `json:"thumbnailUrl"`
	ThumbnailURLs []string      `json:"thumbnailUrls,omitempty"`
	Price         model.Credits `json:"price"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// PromptListResponse is the catalog listing.
type PromptListResponse struct {
	Prompts    []PromptResponse `json:"prompts"`
	Categories []string         `json:"categories"`
}

// UpsertPromptRequest creates or replaces a catalog prompt.
type UpsertPromptRequest struct {
	ID            string   `json:"id,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Subcategory   string   `json:"subcategory"`
	ThumbnailURL  string   `json:"thumbnailUrl"`
	ThumbnailURLs []string `json:"thumbnailUrls,omitempty"`
	AssetURL      string   `json:"assetUrl"`
}

// ToModel converts the request into a Prompt.
func (r *UpsertPromptRequest) ToModel() *model.Prompt {
	return &model.Prompt{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Subcategory:   r.Subcategory,
		ThumbnailURL:  r.ThumbnailURL,
		ThumbnailURLs: r.ThumbnailURLs,
		AssetURL:      r.AssetURL,
		Price:         model.PromptPrice,
	}
}

// ToPromptResponse converts a Prompt for the listing.
func ToPromptResponse(p *model.Prompt) PromptResponse {
	return PromptResponse{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Subcategory:  p.Subcategory,
		ThumbnailURL: p.ThumbnailURL,
		Price:        p.Price,
		CreatedAt:    p.CreatedAt,
	}
}

// ToPromptDetailResponse converts a Prompt for the detail view, including
// the gallery.
func ToPromptDetailResponse(p *model.Prompt) PromptResponse {
	resp := ToPromptResponse(p)
	resp.ThumbnailURLs = p.Thumbnails()
	return resp
}

// ToPromptListResponse converts a listing.
func ToPromptListResponse(prompts []*model.Prompt) *PromptListResponse {
	out := make([]PromptResponse, len(prompts))
	for i, p := range prompts {
		out[i] = ToPromptResponse(p)
	}
	return &PromptListResponse{Prompts: out, Categories: model.Categories}
}
