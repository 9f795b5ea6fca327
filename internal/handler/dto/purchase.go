package dto

import (
	"time"

	"github.com/reelprompt/reelprompt/internal/model"
)

// PurchaseRequest is the body of POST /api/prompts/purchase.
type PurchaseRequest struct {
	PromptID string `json:"promptId"`
}

// PurchaseResponse is returned after a successful purchase.
type PurchaseResponse struct {
	DownloadURL string        `json:"downloadUrl"`
	PromptTitle string        `json:"promptTitle,omitempty"`
	Credits     model.Credits `json:"credits"`
}

// OwnershipResponse answers /api/purchases/check.
type OwnershipResponse struct {
	Owned bool `json:"owned"`
}

// DownloadLinkResponse carries a fresh signed link for an owned prompt.
type DownloadLinkResponse struct {
	URL string `json:"url"`
}

// LibraryItem is one owned prompt.
type LibraryItem struct {
	PromptID    string        `json:"promptId"`
	PromptTitle string        `json:"promptTitle"`
	PricePaid   model.Credits `json:"pricePaid"`
	GrantedAt   time.Time     `json:"grantedAt"`
}

// LibraryResponse lists the caller's entitlements.
type LibraryResponse struct {
	Purchases []LibraryItem `json:"purchases"`
}

// ToLibraryResponse converts purchases to their API form.
func ToLibraryResponse(purchases []*model.Purchase) *LibraryResponse {
	out := make([]LibraryItem, len(purchases))
	for i, p := range purchases {
		out[i] = LibraryItem{
			PromptID:    p.PromptID,
			PromptTitle: p.PromptTitle,
			PricePaid:   p.PricePaid,
			GrantedAt:   p.GrantedAt,
		}
	}
	return &LibraryResponse{Purchases: out}
}
