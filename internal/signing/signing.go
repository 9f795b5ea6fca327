// Package signing issues and verifies time-limited download URLs.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

var (
	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrExpired is returned when the link is past its expiry.
	ErrExpired = errors.New("link expired")
	// ErrMalformed is returned when required query parameters are missing.
	ErrMalformed = errors.New("malformed signed link")
)

const (
	// DefaultTTL is how long a download link stays valid.
	DefaultTTL = 15 * time.Minute

	downloadInfo = "reelprompt download url v1"
)

// Signer produces signed /api/downloads links.
type Signer struct {
	key     []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewSigner derives the URL signing key from secret with HKDF-SHA256.
func NewSigner(secret, baseURL string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(downloadInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}

	return &Signer{
		key:     key,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// DownloadURL returns an absolute link granting userID access to promptID
// until the configured TTL elapses.
func (s *Signer) DownloadURL(userID, promptID string) string {
	exp := s.now().Add(s.ttl).Unix()

	q := url.Values{}
	q.Set("uid", userID)
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", s.sign(userID, promptID, exp))

	return s.baseURL + "/api/downloads/" + url.PathEscape(promptID) + "?" + q.Encode()
}

// Verify checks the uid, exp and sig parameters for promptID and returns the
// user id the link was issued to.
func (s *Signer) Verify(promptID string, q url.Values) (string, error) {
	userID := q.Get("uid")
	expRaw := q.Get("exp")
	sig := q.Get("sig")
	if userID == "" || expRaw == "" || sig == "" {
		return "", ErrMalformed
	}

	exp, err := strconv.ParseInt(expRaw, 10, 64)
	if err != nil {
		return "", ErrMalformed
	}

	expected := s.sign(userID, promptID, exp)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return "", ErrInvalidSignature
	}
	if s.now().Unix() > exp {
		return "", ErrExpired
	}
	return userID, nil
}

// sign computes HMAC-SHA256 over "{userID}\n{promptID}\n{exp}".
func (s *Signer) sign(userID, promptID string, exp int64) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(userID))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(promptID))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
