package model

import "time"

// Catalog subcategories shown as filters.
const (
	CategoryAll               = "All"
	CategoryCinematicPortrait = "Cinematic Portrait"
	CategoryFashionShoot      = "Fashion Shoot"
	CategoryStudio            = "Studio"
	CategoryWithCelebrity     = "With Celebrity"
	CategoryArt               = "Art"
)

// Categories lists the catalog filters in display order.
var Categories = []string{
	CategoryAll,
	CategoryCinematicPortrait,
	CategoryFashionShoot,
	CategoryStudio,
	CategoryWithCelebrity,
	CategoryArt,
}

// Prompt is a purchasable catalog item.
type Prompt struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Description   string    `json:"description" yaml:"description"`
	Subcategory   string    `json:"subcategory" yaml:"subcategory"`
	ThumbnailURL  string    `json:"thumbnailUrl" yaml:"thumbnail_url"`
	ThumbnailURLs []string  `json:"thumbnailUrls,omitempty" yaml:"thumbnail_urls"`
	AssetURL      string    `json:"-" yaml:"asset_url"`
	Price         Credits   `json:"price" yaml:"-"`
	CreatedAt     time.Time `json:"createdAt" yaml:"-"`
}

// Thumbnails returns the gallery images, falling back to the primary thumbnail.
func (p *Prompt) Thumbnails() []string {
	if len(p.ThumbnailURLs) > 0 {
		return p.ThumbnailURLs
	}
	if p.ThumbnailURL != "" {
		return []string{p.ThumbnailURL}
	}
	return nil
}
