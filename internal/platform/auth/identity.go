package auth

import (
	"context"
	"strings"
)

// Roles recognised by the API.
const (
	RoleCustomer = "customer"
	RolePartner  = "partner"
	RoleAdmin    = "admin"
)

// Identity is the authenticated principal extracted from a verified ID token.
type Identity struct {
	UID   string
	Email string
	Phone string
	Roles []string
}

// HasRole reports whether the identity carries role, ignoring case.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	role = normaliseRole(role)
	for _, r := range i.Roles {
		if normaliseRole(r) == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity carries at least one of roles.
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// PrimaryRole returns the most privileged role on the identity.
func (i *Identity) PrimaryRole() string {
	switch {
	case i.HasRole(RoleAdmin):
		return RoleAdmin
	case i.HasRole(RolePartner):
		return RolePartner
	default:
		return RoleCustomer
	}
}

type identityKey struct{}

// WithIdentity stores the identity on ctx.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext retrieves the identity stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		return nil, false
	}
	return identity, true
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
