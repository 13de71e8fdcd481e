// Package auth issues and verifies bearer tokens and carries the
// authenticated user id through request contexts.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/juju/clock"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey string

const userIDCtxKey = ctxKey("userID")

var (
	ErrTokenMissing = errors.New("Access token is required")
	ErrTokenInvalid = errors.New("Invalid token")
	ErrTokenExpired = errors.New("Token expired")
)

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts the authenticated user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDCtxKey).(string)
	return id, ok && id != ""
}

// Tokens signs and verifies HS256 JWTs whose subject is the user id.
type Tokens struct {
	key    []byte
	ttl    time.Duration
	clock  clock.Clock
	issuer string
}

// NewTokens returns a token service. ttl bounds the lifetime of every token.
func NewTokens(secret string, ttl time.Duration, clk clock.Clock) *Tokens {
	return &Tokens{key: []byte(secret), ttl: ttl, clock: clk, issuer: "contractpro"}
}

// Issue returns a signed token for userID.
func (t *Tokens) Issue(userID string) (string, error) {
	now := t.clock.Now()
	tok, err := jwt.NewBuilder().
		Issuer(t.issuer).
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(t.ttl)).
		Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, t.key))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// Verify checks signature, issuer and expiry and returns the user id.
func (t *Tokens) Verify(raw string) (string, error) {
	if raw == "" {
		return "", ErrTokenMissing
	}
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, t.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(t.issuer),
		jwt.WithClock(jwt.ClockFunc(t.clock.Now)),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if tok.Subject() == "" {
		return "", ErrTokenInvalid
	}
	return tok.Subject(), nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
