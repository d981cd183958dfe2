package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/auth-gateway/internal/config"
	"github.com/spec-kit/auth-gateway/internal/domain"
)

// TokenManager handles issuing and validating JWT tokens.
//
// A TokenManager is immutable after construction and safe for concurrent use.
// Verification pins the configured algorithm and applies no clock leeway.
type TokenManager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// Identity is the claims payload embedded into a token.
type Identity struct {
	SubjectID   string
	Email       string
	Role        domain.Role
	DisplayName string
}

// Claims describes JWT payload.
type Claims struct {
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	DisplayName string      `json:"full_name"`
	jwt.RegisteredClaims
}

// Identity returns the payload the token was issued for.
func (c *Claims) Identity() Identity {
	return Identity{
		SubjectID:   c.Subject,
		Email:       c.Email,
		Role:        c.Role,
		DisplayName: c.DisplayName,
	}
}

// ExpiresAtTime returns exp as a time.Time, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// NewTokenManager builds a new manager from auth configuration.
func NewTokenManager(cfg config.AuthConfig, opts ...TokenOption) (*TokenManager, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if !config.IsSupportedAlgorithm(cfg.JWTAlgorithm) {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.JWTAlgorithm)
	}
	method := jwt.GetSigningMethod(cfg.JWTAlgorithm)
	if method == nil {
		return nil, fmt.Errorf("signing algorithm %q is not registered", cfg.JWTAlgorithm)
	}
	ttl := cfg.AccessTokenTTL()
	if ttl <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}

	tm := &TokenManager{
		secret: []byte(cfg.JWTSecret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// TTL returns the default token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Algorithm returns the pinned signing algorithm name.
func (tm *TokenManager) Algorithm() string {
	return tm.method.Alg()
}

// Issue builds and signs a JWT for identity. A ttl of zero or less uses the default TTL.
func (tm *TokenManager) Issue(identity Identity, ttl time.Duration) (string, time.Time, error) {
	if identity.SubjectID == "" {
		return "", time.Time{}, errors.New("subject id is required")
	}
	if ttl <= 0 {
		ttl = tm.ttl
	}

	// exp is serialized with second precision; anchoring iat to a whole second keeps exp <= now+ttl.
	issuedAt := tm.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	claims := &Claims{
		Email:       identity.Email,
		Role:        identity.Role,
		DisplayName: identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.SubjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(tm.method, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// Verify validates the signature and expiry of tokenStr and returns its claims.
//
// Errors wrap ErrTokenMalformed, ErrTokenInvalid or ErrTokenExpired. The signature is
// checked before expiry, so a tampered expired token reports ErrTokenInvalid.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{tm.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(tm.now),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != tm.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(tokenStr, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func classifyParseError(tokenStr string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	case errors.Is(err, jwt.ErrTokenMalformed) && signatureSegmentCorrupt(tokenStr):
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

// signatureSegmentCorrupt reports whether header and payload decode cleanly but the
// signature segment does not, which means the signature was altered rather than the framing.
func signatureSegmentCorrupt(tokenStr string) bool {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return false
	}
	enc := base64.RawURLEncoding.Strict()
	for _, segment := range parts[:2] {
		raw, err := enc.DecodeString(segment)
		if err != nil || !json.Valid(raw) {
			return false
		}
	}
	_, err := enc.DecodeString(parts[2])
	return err != nil
}
