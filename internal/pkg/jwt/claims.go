// internal/pkg/jwt/claims.go
package jwt

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token claims issued by the identity service.
type Claims struct {
	IdentityID     int64    `json:"identity_id"`
	Email          string   `json:"email"`
	Roles          []string `json:"roles,omitempty"`
	SessionPurpose string   `json:"session_purpose"`
	jwt.RegisteredClaims
}

func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}
	return slices.Contains(c.Audience, audience)
}
