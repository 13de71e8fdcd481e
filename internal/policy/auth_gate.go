package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/juju/clock"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/auth"
	"github.com/contractpro/contractpro/gate"
	"github.com/contractpro/contractpro/httpx"
)

const (
	msgUnauthorized = "Access token is required"
	msgForbidden    = "Access denied - insufficient permissions"
)

// AuthGate is the application's single authorization point.
type AuthGate struct {
	Gate     *gate.Gate[string]
	Resolver *gate.CachedResolver[string]
}

// NewAuthGate builds a gate over the users table. Role lookups are cached
// for cacheTTL on clk. Clients, contracts and invoices get the ownership
// policy with an admin bypass.
func NewAuthGate(db *gorm.DB, clk clock.Clock, cacheTTL time.Duration) *AuthGate {
	return NewAuthGateWithResolver(NewRoleResolver(db), clk, cacheTTL)
}

// NewAuthGateWithResolver is NewAuthGate over an arbitrary resolver.
func NewAuthGateWithResolver(resolver gate.ProfileResolver[string], clk clock.Clock, cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver(resolver, clk, cacheTTL)
	ag := &AuthGate{Gate: gate.New[string](cached), Resolver: cached}

	owned := NewAdminBypassPolicy(NewOwnershipPolicy(), ag.IsAdmin)
	for _, resource := range []string{ResourceClient, ResourceContract, ResourceInvoice} {
		ag.Gate.Register(resource, owned)
	}
	return ag
}

// Authorize checks the context user against resourceType and, when given,
// the loaded record.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, userID, action, resourceType, resource)
}

// CanProfile checks only the role permission of the context user.
func (ag *AuthGate) CanProfile(ctx context.Context, action gate.Action, resourceType string) bool {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return false
	}
	return ag.Gate.CanProfile(ctx, userID, action, resourceType)
}

// IsAdmin reports whether userID holds the superadmin permission.
func (ag *AuthGate) IsAdmin(ctx context.Context, userID string) bool {
	profile, err := ag.Resolver.Resolve(ctx, userID)
	return err == nil && profile != nil && profile.HasPermission(gate.PermissionSuperAdmin)
}

// InvalidateUser drops the cached role of userID.
func (ag *AuthGate) InvalidateUser(userID string) {
	ag.Resolver.Invalidate(userID)
}

// RequirePermission rejects requests whose user lacks resourceType:action.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := ag.Authorize(r.Context(), action, resourceType, nil); err != nil {
				writeDenied(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin only lets users holding "*:*" through.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, msgUnauthorized, nil)
				return
			}
			if !ag.IsAdmin(r.Context(), userID) {
				httpx.JSONError(w, http.StatusForbidden, msgForbidden, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeDenied(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gate.ErrUnauthorized):
		httpx.JSONError(w, http.StatusUnauthorized, msgUnauthorized, nil)
	case errors.Is(err, gate.ErrForbidden):
		httpx.JSONError(w, http.StatusForbidden, msgForbidden, nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "Authorization failed", nil)
	}
}
