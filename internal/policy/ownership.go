package policy

import (
	"context"

	"github.com/contractpro/contractpro/gate"
	"github.com/contractpro/contractpro/internal/models"
)

// OwnershipPolicy allows access to records owned by the requesting user.
// Records that do not implement models.Ownable are denied.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

func (p *OwnershipPolicy) Can(_ context.Context, userID string, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	owned, ok := resource.(models.Ownable)
	if !ok {
		return false
	}
	return owned.GetUserID() == userID
}

// AdminBypassPolicy lets admins through before consulting inner.
type AdminBypassPolicy struct {
	inner   gate.Policy[string]
	isAdmin func(ctx context.Context, userID string) bool
}

func NewAdminBypassPolicy(inner gate.Policy[string], isAdmin func(ctx context.Context, userID string) bool) *AdminBypassPolicy {
	return &AdminBypassPolicy{inner: inner, isAdmin: isAdmin}
}

func (p *AdminBypassPolicy) Can(ctx context.Context, userID string, action gate.Action, resource any) bool {
	if p.isAdmin(ctx, userID) {
		return true
	}
	return p.inner.Can(ctx, userID, action, resource)
}
