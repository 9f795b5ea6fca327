package dto

import (
	"time"

	"github.com/reelprompt/reelprompt/internal/model"
)

// ProfileResponse is returned by initialize and profile.
type ProfileResponse struct {
	Credits     model.Credits `json:"credits"`
	IsAdmin     bool          `json:"isAdmin"`
	Email       string        `json:"email"`
	DisplayName string        `json:"displayName"`
}

// LedgerEntryResponse is one balance change.
type LedgerEntryResponse struct {
	ID           string        `json:"id"`
	Kind         string        `json:"kind"`
	Amount       model.Credits `json:"amount"`
	BalanceAfter model.Credits `json:"balanceAfter"`
	Reference    string        `json:"reference,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// LedgerResponse lists recent balance changes, newest first.
type LedgerResponse struct {
	Entries []LedgerEntryResponse `json:"entries"`
}

// ToLedgerResponse converts ledger entries to their API form.
func ToLedgerResponse(entries []*model.LedgerEntry) *LedgerResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = LedgerEntryResponse{
			ID:           e.ID,
			Kind:         string(e.Kind),
			Amount:       e.Amount,
			BalanceAfter: e.BalanceAfter,
			Reference:    e.Reference,
			CreatedAt:    e.CreatedAt,
		}
	}
	return &LedgerResponse{Entries: out}
}
