package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/shared"
	"github.com/shopmanager/shopmanager/internal/users"
)

const resetAudience = "password-reset"

// Claims is the signed body of an access token.
type Claims struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type resetClaims struct {
	Fingerprint string `json:"fp"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 access and password-reset tokens. Reset
// tokens use a derived key so neither kind verifies as the other.
type Tokens struct {
	secret      []byte
	resetSecret []byte
	ttl         time.Duration
	resetTTL    time.Duration
	now         func() time.Time
}

// NewTokens constructs Tokens.
func NewTokens(secret string, ttl, resetTTL time.Duration) (*Tokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: jwt secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if resetTTL <= 0 {
		resetTTL = 15 * time.Minute
	}
	return &Tokens{
		secret:      []byte(secret),
		resetSecret: []byte(secret + ":" + resetAudience),
		ttl:         ttl,
		resetTTL:    resetTTL,
		now:         time.Now,
	}, nil
}

// Issue signs an access token for u.
func (t *Tokens) Issue(u users.User) (string, error) {
	now := t.now()
	claims := Claims{
		ID:       u.ID.String(),
		Role:     u.Role,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses an access token. Any failure wraps shared.ErrUnauthorized.
func (t *Tokens) Verify(raw string) (Claims, error) {
	var claims Claims
	if err := t.parse(raw, &claims, t.secret); err != nil {
		return Claims{}, err
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return Claims{}, fmt.Errorf("token subject: %w", shared.ErrUnauthorized)
	}
	return claims, nil
}

// IssueReset signs a reset token bound to u's current password hash, so it
// stops working once the password changes.
func (t *Tokens) IssueReset(u users.User) (string, error) {
	now := t.now()
	claims := resetClaims{
		Fingerprint: fingerprint(u.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Audience:  jwt.ClaimStrings{resetAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.resetTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.resetSecret)
}

// VerifyReset returns the user id and password fingerprint of a reset token.
func (t *Tokens) VerifyReset(raw string) (uuid.UUID, string, error) {
	var claims resetClaims
	if err := t.parse(raw, &claims, t.resetSecret); err != nil {
		return uuid.Nil, "", err
	}
	if !claims.VerifyAudience(resetAudience, true) {
		return uuid.Nil, "", fmt.Errorf("reset token audience: %w", shared.ErrUnauthorized)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("reset token subject: %w", shared.ErrUnauthorized)
	}
	return id, claims.Fingerprint, nil
}

func (t *Tokens) parse(raw string, claims jwt.Claims, key []byte) error {
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err == nil {
		return nil
	}
	var verr *jwt.ValidationError
	if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
		return fmt.Errorf("token expired: %w", shared.ErrUnauthorized)
	}
	return fmt.Errorf("invalid token: %w", shared.ErrUnauthorized)
}

func fingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}
