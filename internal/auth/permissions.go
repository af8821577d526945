package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

// PermissionKind enumerates the route permission shapes.
type PermissionKind int

const (
	KindPublic PermissionKind = iota
	KindAuthenticatedAny
	KindRoleIn
	KindOwnerOrRole
)

func (k PermissionKind) String() string {
	switch k {
	case KindPublic:
		return "Public"
	case KindAuthenticatedAny:
		return "AuthenticatedAny"
	case KindRoleIn:
		return "RoleIn"
	case KindOwnerOrRole:
		return "OwnerOrRole"
	default:
		return "Unknown"
	}
}

// Permission is one entry of the route permission table.
type Permission struct {
	Kind       PermissionKind
	Roles      []domain.Role
	OwnerParam string
}

// Public allows anyone, including anonymous callers.
func Public() Permission {
	return Permission{Kind: KindPublic}
}

// AuthenticatedAny allows any valid principal.
func AuthenticatedAny() Permission {
	return Permission{Kind: KindAuthenticatedAny}
}

// RoleIn allows principals holding one of roles.
func RoleIn(roles ...domain.Role) Permission {
	return Permission{Kind: KindRoleIn, Roles: roles}
}

// OwnerOrRole allows principals holding one of roles, or any principal whose
// identity id equals the route parameter named param.
func OwnerOrRole(param string, roles ...domain.Role) Permission {
	return Permission{Kind: KindOwnerOrRole, OwnerParam: param, Roles: roles}
}

// Check evaluates the permission. ownerID is only consulted for OwnerOrRole.
// A missing principal on a protected route yields ErrAuthenticationRequired;
// a present principal lacking rights yields ErrAuthorizationDenied.
func (p Permission) Check(principal *domain.Principal, ownerID string) error {
	if p.Kind == KindPublic {
		return nil
	}
	if principal == nil {
		return domain.ErrAuthenticationRequired
	}

	switch p.Kind {
	case KindAuthenticatedAny:
		return nil
	case KindRoleIn:
		if principal.HasRole(p.Roles...) {
			return nil
		}
	case KindOwnerOrRole:
		if principal.HasRole(p.Roles...) {
			return nil
		}
		if ownerID != "" && strings.EqualFold(ownerID, principal.IdentityID) {
			return nil
		}
	}
	return domain.ErrAuthorizationDenied
}

// String renders the permission for route listings and logs.
func (p Permission) String() string {
	if len(p.Roles) == 0 {
		return p.Kind.String()
	}
	names := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		names = append(names, string(r))
	}
	if p.Kind == KindOwnerOrRole {
		return p.Kind.String() + "(" + p.OwnerParam + ", {" + strings.Join(names, ",") + "})"
	}
	return p.Kind.String() + "{" + strings.Join(names, ",") + "}"
}

// Guard enforces p for a fiber route.
func Guard(p Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		var ownerID string
		if p.Kind == KindOwnerOrRole {
			ownerID = c.Params(p.OwnerParam)
		}
		if err := p.Check(principal, ownerID); err != nil {
			return err
		}
		return c.Next()
	}
}
