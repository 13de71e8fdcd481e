// Package policy wires the gate authorization layer to ContractPro users:
// roles become permission profiles and records are checked for ownership.
package policy

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/contractpro/contractpro/gate"
	"github.com/contractpro/contractpro/internal/models"
)

// Resource types guarded by the gate.
const (
	ResourceClient    = "client"
	ResourceContract  = "contract"
	ResourceInvoice   = "invoice"
	ResourceDashboard = "dashboard"
)

var roleProfiles = map[models.Role]gate.Profile{
	models.RoleFreelancer: gate.NewStaticProfile(string(models.RoleFreelancer),
		gate.NewPermission(ResourceClient, gate.Wildcard),
		gate.NewPermission(ResourceContract, gate.Wildcard),
		gate.NewPermission(ResourceInvoice, gate.Wildcard),
		gate.NewPermission(ResourceDashboard, gate.Wildcard),
	),
	models.RoleClient: gate.NewStaticProfile(string(models.RoleClient),
		gate.NewPermission(ResourceDashboard, gate.ActionView),
	),
	models.RoleAdmin: gate.NewStaticProfile(string(models.RoleAdmin), gate.PermissionSuperAdmin),
}

// ProfileForRole returns the permission profile of role, or nil for an
// unknown role.
func ProfileForRole(role models.Role) gate.Profile {
	return roleProfiles[role]
}

// RoleResolver maps a user id to the profile of the user's role. Missing and
// deactivated users resolve to no profile.
type RoleResolver struct {
	DB *gorm.DB
}

func NewRoleResolver(db *gorm.DB) *RoleResolver {
	return &RoleResolver{DB: db}
}

func (r *RoleResolver) Resolve(ctx context.Context, userID string) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Select("id", "role", "is_active").
		Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}
	return ProfileForRole(user.Role), nil
}
