package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/contractpro/contractpro/httpx"
)

// UserVerifier confirms that a token's user still exists and may sign in.
// The returned error message is shown to the client.
type UserVerifier func(ctx context.Context, userID string) error

// Authenticator guards routes with bearer tokens.
type Authenticator struct {
	tokens *Tokens
	verify UserVerifier
}

func NewAuthenticator(tokens *Tokens, verify UserVerifier) *Authenticator {
	return &Authenticator{tokens: tokens, verify: verify}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware attaches the user id to the context when a valid token is
// present. It never rejects; RequireAuth does.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid, err := a.tokens.Verify(BearerToken(r)); err == nil {
			r = r.WithContext(WithUserID(r.Context(), uid))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth answers 401 unless the request carries a valid token for an
// active user.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			var err error
			if uid, err = a.tokens.Verify(BearerToken(r)); err != nil {
				httpx.JSONError(w, http.StatusUnauthorized, err.Error(), nil)
				return
			}
			r = r.WithContext(WithUserID(r.Context(), uid))
		}
		if a.verify != nil {
			if err := a.verify(r.Context(), uid); err != nil {
				httpx.JSONError(w, http.StatusUnauthorized, err.Error(), nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
