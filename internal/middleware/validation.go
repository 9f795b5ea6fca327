package middleware

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

// Validation limits.
const (
	// MaxPromptIDLength is the maximum length for a catalog prompt id.
	MaxPromptIDLength = 64

	// MaxAssetURLLength is the maximum length for asset and thumbnail URLs.
	MaxAssetURLLength = 2048

	// MaxEmailLength is the maximum length for an override email.
	MaxEmailLength = 254

	// MaxNoteLength is the maximum length for admin notes and grant reasons.
	MaxNoteLength = 500
)

// Validation errors.
var (
	ErrPromptIDInvalid = errors.New("prompt id contains invalid characters")
	ErrPromptIDTooLong = errors.New("prompt id exceeds maximum length")
	ErrURLTooLong      = errors.New("url exceeds maximum length")
	ErrURLInvalid      = errors.New("url must be absolute http or https")
	ErrURLUnsafe       = errors.New("url uses unsafe scheme")
	ErrEmailInvalid    = errors.New("email is invalid")
	ErrNoteTooLong     = errors.New("note exceeds maximum length")
)

// validPromptIDPattern matches catalog ids: ULIDs and hand-picked slugs.
var validPromptIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidatePromptID validates a catalog prompt id. Empty is valid and means
// the server assigns one.
func ValidatePromptID(id string) error {
	if id == "" {
		return nil
	}
	if len(id) > MaxPromptIDLength {
		return ErrPromptIDTooLong
	}
	if !validPromptIDPattern.MatchString(id) {
		return ErrPromptIDInvalid
	}
	return nil
}

// ValidateAssetURL validates an asset or thumbnail URL.
func ValidateAssetURL(url string) error {
	if len(url) > MaxAssetURLLength {
		return ErrURLTooLong
	}

	lowerURL := strings.ToLower(url)
	if !strings.HasPrefix(lowerURL, "http://") && !strings.HasPrefix(lowerURL, "https://") {
		return ErrURLInvalid
	}

	// Block dangerous schemes smuggled after the prefix.
	for _, scheme := range []string{"javascript:", "data:", "vbscript:", "file:"} {
		if strings.Contains(lowerURL, scheme) {
			return ErrURLUnsafe
		}
	}
	return nil
}

// ValidateEmail checks that email is a single bare address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > MaxEmailLength {
		return ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrEmailInvalid
	}
	return nil
}

// ValidateNote bounds free-text admin input.
func ValidateNote(note string) error {
	if len([]rune(note)) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}
