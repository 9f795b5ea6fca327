package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/reelprompt/reelprompt/internal/model"
)

const defaultLeeway = 30 * time.Second

// Common verification errors.
var (
	ErrNoKeySource  = errors.New("either a JWKS URL or an HMAC secret is required")
	ErrMissingToken = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid session token")
)

// VerifierConfig selects how session tokens are checked. JWKSURL takes
// precedence over HMACSecret.
type VerifierConfig struct {
	JWKSURL    string
	HMACSecret string
	Issuer     string
	Audience   string
}

// Verifier validates session JWTs and extracts the caller identity.
type Verifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewVerifier builds a verifier backed by a remote JWKS or a shared secret.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	var (
		kf      jwt.Keyfunc
		methods []string
	)

	switch {
	case cfg.JWKSURL != "":
		provider, err := keyfunc.NewDefault([]string{cfg.JWKSURL})
		if err != nil {
			return nil, fmt.Errorf("failed to init JWKS keyfunc: %w", err)
		}
		kf = provider.Keyfunc
		methods = []string{
			jwt.SigningMethodRS256.Name,
			jwt.SigningMethodRS384.Name,
			jwt.SigningMethodRS512.Name,
			jwt.SigningMethodES256.Name,
		}
	case cfg.HMACSecret != "":
		secret := []byte(cfg.HMACSecret)
		kf = func(*jwt.Token) (any, error) { return secret, nil }
		methods = []string{jwt.SigningMethodHS256.Name}
	default:
		return nil, ErrNoKeySource
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(defaultLeeway),
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{keyfunc: kf, parser: jwt.NewParser(opts...)}, nil
}

// Verify parses and validates a token, returning the identity it asserts.
func (v *Verifier) Verify(tokenString string) (*model.Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := v.parser.Parse(tokenString, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	id := &model.Identity{
		UID:         readString(claims, "sub"),
		Email:       readString(claims, "email"),
		DisplayName: readString(claims, "name"),
	}
	if id.UID == "" {
		return nil, fmt.Errorf("%w: token missing sub", ErrInvalidToken)
	}
	return id, nil
}

func readString(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}
