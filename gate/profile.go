package gate

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var (
	// ErrUnauthorized means the subject is unknown or has no profile.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the subject is known but lacks the permission.
	ErrForbidden = errors.New("forbidden")
)

// Policy decides on a concrete record once the profile permission passed.
type Policy[U any] interface {
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc[U any] func(ctx context.Context, user U, action Action, resource any) bool

func (f PolicyFunc[U]) Can(ctx context.Context, user U, action Action, resource any) bool {
	return f(ctx, user, action, resource)
}

// Profile is a named set of permissions, i.e. a role.
type Profile interface {
	Name() string
	HasPermission(requested Permission) bool
	Permissions() []Permission
}

// ProfileResolver finds the profile held by a subject. A nil profile with a
// nil error means the subject has none.
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, user U) (Profile, error)
}

// ResolverFunc adapts a function to ProfileResolver.
type ResolverFunc[U any] func(ctx context.Context, user U) (Profile, error)

func (f ResolverFunc[U]) Resolve(ctx context.Context, user U) (Profile, error) {
	return f(ctx, user)
}

// StaticProfile is an immutable in-memory profile.
type StaticProfile struct {
	name        string
	permissions []Permission
}

// NewStaticProfile builds a profile; duplicate permissions are dropped.
func NewStaticProfile(name string, permissions ...Permission) *StaticProfile {
	perms := slices.Clone(permissions)
	slices.Sort(perms)
	return &StaticProfile{name: name, permissions: slices.Compact(perms)}
}

func (p *StaticProfile) Name() string { return p.name }

// Permissions returns a sorted copy of the granted permissions.
func (p *StaticProfile) Permissions() []Permission { return slices.Clone(p.permissions) }

func (p *StaticProfile) HasPermission(requested Permission) bool {
	return slices.ContainsFunc(p.permissions, func(held Permission) bool {
		return held.Matches(requested)
	})
}

// StaticResolver maps subjects to profiles in memory.
type StaticResolver[U comparable] struct {
	mu       sync.RWMutex
	profiles map[U]Profile
}

func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{profiles: make(map[U]Profile)}
}

// Set assigns profile to user.
func (r *StaticResolver[U]) Set(user U, profile Profile) {
	r.mu.Lock()
	r.profiles[user] = profile
	r.mu.Unlock()
}

func (r *StaticResolver[U]) Resolve(_ context.Context, user U) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[user], nil
}
