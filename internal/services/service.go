// Package services holds the ContractPro use cases. Every method takes the
// request context, which carries the authenticated user id.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/auth"
	"github.com/contractpro/contractpro/gate"
	"github.com/contractpro/contractpro/internal/metrics"
)

// Errors whose text is shown to API clients as-is.
const (
	// ErrConflict is returned when a record changed between load and save.
	ErrConflict = errors.ConstError("Record was modified by another request, reload and try again")

	ErrAuthRequired       = errors.ConstError("Access token is required")
	ErrInvalidCredentials = errors.ConstError("Invalid email or password")
	ErrDeactivated        = errors.ConstError("Account is deactivated")
	ErrUserGone           = errors.ConstError("Invalid token - user not found")
	ErrAccessDenied       = errors.ConstError("Access denied - insufficient permissions")
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Authorizer decides whether the context user may perform action on
// resourceType and, when non-nil, on the loaded resource.
type Authorizer interface {
	Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error
}

// Deps are the collaborators shared by every service.
type Deps struct {
	DB      *gorm.DB
	Clock   clock.Clock
	Gate    Authorizer
	Log     zerolog.Logger
	Metrics *metrics.Metrics
}

// ListParams selects one page of an owner's records.
type ListParams struct {
	Page   int
	Limit  int
	Search string
	Status string
}

func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	p.Search = strings.TrimSpace(p.Search)
	p.Status = strings.TrimSpace(p.Status)
	return p
}

func (p ListParams) offset() int { return (p.Page - 1) * p.Limit }

// likePattern builds a case-insensitive LIKE operand for search.
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(search)) + "%"
}

func currentUser(ctx context.Context) (string, error) {
	id, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", ErrAuthRequired
	}
	return id, nil
}

// authorize checks access to a loaded record. A record the user may not
// touch is reported as missing so its existence does not leak.
func authorize(ctx context.Context, g Authorizer, action gate.Action, resourceType string, resource any, notFound func() error) error {
	if g == nil {
		return nil
	}
	err := g.Authorize(ctx, action, resourceType, resource)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gate.ErrUnauthorized):
		return ErrAuthRequired
	case errors.Is(err, gate.ErrForbidden):
		if resource != nil {
			return notFound()
		}
		return ErrAccessDenied
	default:
		return errors.Annotate(err, "authorize")
	}
}

// casUpdate writes fields to the row only if it still has version, bumping
// the version. Zero affected rows means another writer got there first.
func casUpdate(tx *gorm.DB, model any, id string, version int, fields map[string]any) error {
	fields["version"] = version + 1
	res := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(fields)
	if res.Error != nil {
		return errors.Annotate(res.Error, "update")
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// now is the injected clock in UTC, so stored times compare consistently on
// every driver.
func (d Deps) now() time.Time { return d.Clock.Now().UTC() }
