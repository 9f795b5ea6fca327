package dto

import "github.com/reelprompt/reelprompt/internal/model"

// CheckoutRequest selects a credit pack.
type CheckoutRequest struct {
	Pack string `json:"pack"`
}

// CheckoutResponse carries the hosted checkout URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// PackResponse is one purchasable credit pack.
type PackResponse struct {
	Name    string        `json:"name"`
	Credits model.Credits `json:"credits"`
}

// PackListResponse lists credit packs.
type PackListResponse struct {
	Packs []PackResponse `json:"packs"`
}
