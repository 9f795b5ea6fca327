package model

import (
	"strings"
	"time"
)

// User is the persisted credits account of one authenticated identity.
type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	DisplayName        string    `json:"displayName"`
	Credits            Credits   `json:"credits"`
	IsAdmin            bool      `json:"isAdmin"`
	SignupBonusApplied bool      `json:"signupBonusApplied"`
	StripeCustomerID   string    `json:"-"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Identity is the authenticated caller as asserted by the session token.
// It is injected into the request context by the auth middleware.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// EmailBonus raises the signup bonus for one email address.
// A nil Credits means the stored value was not numeric and must be ignored.
type EmailBonus struct {
	EmailKey  string    `json:"emailKey"`
	Credits   *Credits  `json:"credits"`
	Note      string    `json:"note,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeEmailKey lowercases and trims an email, then percent-encodes it the
// way encodeURIComponent does. Override rows are keyed by this value.
func NormalizeEmailKey(email string) string {
	s := strings.ToLower(strings.TrimSpace(email))

	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIComponentSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isURIComponentSafe(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
