package domain

import "time"

// Principal is the request-scoped, authenticated caller derived from a valid token.
type Principal struct {
	IdentityID string
	Subject    string
	Role       Role
}

// HasRole reports whether the principal holds one of roles.
func (p *Principal) HasRole(roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// IssuedToken is a freshly minted bearer credential.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}
