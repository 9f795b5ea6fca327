package model

import "time"

// Purchase is a durable entitlement: its presence lets the user download the
// prompt again without another debit.
type Purchase struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PromptID  string    `json:"promptId"`
	PricePaid Credits   `json:"pricePaid"`
	GrantedAt time.Time `json:"grantedAt"`

	// PromptTitle is populated by library listings.
	PromptTitle string `json:"promptTitle,omitempty"`
}
