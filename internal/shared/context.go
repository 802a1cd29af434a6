package shared

import (
	"context"

	"github.com/google/uuid"
)

// CompanyRole identifies which side of a negotiation a company sits on.
type CompanyRole string

const (
	RoleSeller CompanyRole = "SELLER"
	RoleBuyer  CompanyRole = "BUYER"
)

// IsValid checks if the role is a known value.
func (r CompanyRole) IsValid() bool {
	return r == RoleSeller || r == RoleBuyer
}

// Counterpart returns the opposite role.
func (r CompanyRole) Counterpart() CompanyRole {
	if r == RoleSeller {
		return RoleBuyer
	}
	return RoleSeller
}

// Profile is the resolved identity of the request caller. Authentication
// itself is handled upstream; the service only resolves and carries the
// profile explicitly so domain logic never reaches for ambient state.
type Profile struct {
	UserID      uuid.UUID
	CompanyID   uuid.UUID
	CompanyRole CompanyRole
	FullName    string
}

type profileContextKey struct{}

// ContextWithProfile stores the caller profile in context.
func ContextWithProfile(ctx context.Context, p *Profile) context.Context {
	return context.WithValue(ctx, profileContextKey{}, p)
}

// ProfileFromContext extracts the caller profile from context.
func ProfileFromContext(ctx context.Context) *Profile {
	p, _ := ctx.Value(profileContextKey{}).(*Profile)
	return p
}
