package model

import "time"

// LedgerKind is the business reason for a balance change.
type LedgerKind string

const (
	LedgerSignupBonus LedgerKind = "signup_bonus"
	LedgerAdminFloor  LedgerKind = "admin_floor"
	LedgerPurchase    LedgerKind = "purchase"
	LedgerEnhancement LedgerKind = "enhancement"
	LedgerTopUp       LedgerKind = "top_up"
	LedgerAdminGrant  LedgerKind = "admin_grant"
)

// IsValid reports whether k is a known ledger kind.
func (k LedgerKind) IsValid() bool {
	switch k {
	case LedgerSignupBonus, LedgerAdminFloor, LedgerPurchase, LedgerEnhancement, LedgerTopUp, LedgerAdminGrant:
		return true
	}
	return false
}

// LedgerEntry records one balance mutation. Amount is negative for debits.
type LedgerEntry struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Kind         LedgerKind `json:"kind"`
	Amount       Credits    `json:"amount"`
	BalanceAfter Credits    `json:"balanceAfter"`
	Reference    string     `json:"reference,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
