package dto

import (
	"time"

	"github.com/reelprompt/reelprompt/internal/model"
)

// EmailBonusRequest sets a signup bonus override. A null credits value is
// stored as non-numeric and ignored.
type EmailBonusRequest struct {
	Email   string         `json:"email"`
	Credits *model.Credits `json:"credits"`
	Note    string         `json:"note,omitempty"`
}

// EmailBonusResponse is one stored override.
type EmailBonusResponse struct {
	EmailKey  string         `json:"emailKey"`
	Credits   *model.Credits `json:"credits"`
	Note      string         `json:"note,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// EmailBonusListResponse lists overrides.
type EmailBonusListResponse struct {
	Bonuses []EmailBonusResponse `json:"bonuses"`
}

// GrantCreditsRequest is the body of POST /api/admin/credits.
type GrantCreditsRequest struct {
	UserID string        `json:"userId"`
	Amount model.Credits `json:"amount"`
	Reason string        `json:"reason,omitempty"`
}

// GrantCreditsResponse reports the new balance.
type GrantCreditsResponse struct {
	UserID  string        `json:"userId"`
	Credits model.Credits `json:"credits"`
}

// ToEmailBonusResponse converts one override.
func ToEmailBonusResponse(b *model.EmailBonus) EmailBonusResponse {
	return EmailBonusResponse{
		EmailKey:  b.EmailKey,
		Credits:   b.Credits,
		Note:      b.Note,
		UpdatedAt: b.UpdatedAt,
	}
}

// ToEmailBonusListResponse converts a list of overrides.
func ToEmailBonusListResponse(bonuses []*model.EmailBonus) *EmailBonusListResponse {
	out := make([]EmailBonusResponse, len(bonuses))
	for i, b := range bonuses {
		out[i] = ToEmailBonusResponse(b)
	}
	return &EmailBonusListResponse{Bonuses: out}
}
