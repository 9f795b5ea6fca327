package middleware

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePromptID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{"empty is valid (server assigns)", "", nil},
		{"ulid", "01HV4Z3Q8J5N7X2K9M6B1C0D3E", nil},
		{"slug", "neon-noir_01", nil},
		{"too long", strings.Repeat("a", MaxPromptIDLength+1), ErrPromptIDTooLong},
		{"space", "neon noir", ErrPromptIDInvalid},
		{"path traversal", "../etc", ErrPromptIDInvalid},
		{"unicode", "néon", ErrPromptIDInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePromptID(tt.id); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePromptID(%q) = %v, want %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAssetURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"https", "https://assets.example.com/p/1.txt", nil},
		{"http", "http://localhost:9000/p/1.txt", nil},
		{"mixed case scheme", "HTTPS://assets.example.com/x", nil},
		{"relative", "/p/1.txt", ErrURLInvalid},
		{"ftp", "ftp://example.com/x", ErrURLInvalid},
		{"javascript", "javascript:alert(1)", ErrURLInvalid},
		{"smuggled scheme", "https://x.com/?u=javascript:alert(1)", ErrURLUnsafe},
		{"too long", "https://x.com/" + strings.Repeat("a", MaxAssetURLLength), ErrURLTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateAssetURL(tt.url); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAssetURL(%q) = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"user@example.com", true},
		{"  user+tag@example.com ", true},
		{"", false},
		{"not-an-email", false},
		{"Name <user@example.com>", false},
		{"a@b.c, d@e.f", false},
	}

	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateEmail(%q) = %v, want valid=%v", tt.email, err, tt.valid)
		}
	}
}

func TestValidateNote(t *testing.T) {
	if err := ValidateNote(strings.Repeat("é", MaxNoteLength)); err != nil {
		t.Errorf("note at limit rejected: %v", err)
	}
	if err := ValidateNote(strings.Repeat("a", MaxNoteLength+1)); !errors.Is(err, ErrNoteTooLong) {
		t.Errorf("long note error = %v, want ErrNoteTooLong", err)
	}
}
