// Package gate is a small role-and-policy authorization layer.
//
// A Gate first asks a ProfileResolver which Profile (role) the subject holds
// and checks the "resource:action" permission against it. When a concrete
// record is supplied and a Policy is registered for its resource type, the
// policy then decides on that record (typically an ownership check).
//
// The package knows nothing about the domain models; U is the subject type,
// e.g. a string user id.
package gate

import (
	"context"
	"sync"
)

// Gate combines profile permissions with per-resource policies.
type Gate[U comparable] struct {
	resolver ProfileResolver[U]

	mu       sync.RWMutex
	policies map[string]Policy[U]
}

// New creates a gate resolving profiles through resolver.
func New[U comparable](resolver ProfileResolver[U]) *Gate[U] {
	return &Gate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register installs the record-level policy for resourceType, replacing any
// previous one.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.mu.Lock()
	g.policies[resourceType] = p
	g.mu.Unlock()
}

// Profile resolves the subject's profile, failing with ErrUnauthorized for a
// zero subject or a subject without a profile.
func (g *Gate[U]) Profile(ctx context.Context, user U) (Profile, error) {
	var zero U
	if user == zero {
		return nil, ErrUnauthorized
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrUnauthorized
	}
	return profile, nil
}

// Authorize returns nil when user may perform action on resourceType and,
// if resource is non-nil, on that specific record.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	profile, err := g.Profile(ctx, user)
	if err != nil {
		return err
	}
	if !profile.HasPermission(NewPermission(resourceType, action)) {
		return ErrForbidden
	}
	if resource == nil {
		return nil
	}
	g.mu.RLock()
	policy, ok := g.policies[resourceType]
	g.mu.RUnlock()
	if ok && !policy.Can(ctx, user, action, resource) {
		return ErrForbidden
	}
	return nil
}

// Can is Authorize as a bool.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// CanProfile checks only the profile permission. Used by route middleware
// before any record is loaded.
func (g *Gate[U]) CanProfile(ctx context.Context, user U, action Action, resourceType string) bool {
	return g.Authorize(ctx, user, action, resourceType, nil) == nil
}
