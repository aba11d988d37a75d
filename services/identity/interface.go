package identity

import (
	"context"
	"strings"
)

// Roles carried by verified identities.
const (
	RoleCustomer = "customer"
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
)

// Identity is the verified caller.
type Identity struct {
	UID    string
	Role   string
	Claims map[string]any
}

// IsAdmin reports whether the caller has the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Verifier validates a bearer credential. Failures are utils.AppError of
// kind auth.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

func normalizeRole(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case RoleOwner, RoleAdmin:
		return r
	default:
		return RoleCustomer
	}
}
