package guard

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the read-only view of a verified token payload.
type Claims interface {
	// Subject is the identity ID the token was issued for.
	Subject() string
	// Email is the identity email captured at signing time.
	Email() string
	IssuedAt() time.Time
	Expires() time.Time
	// Extensions holds optional non canonical claims.
	Extensions() map[string]any
}

// AccessClaims is the canonical token payload: registered claims plus the
// identity email, with room for application extensions under metadata.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserEmail string         `json:"email,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

var _ Claims = (*AccessClaims)(nil)

func (c *AccessClaims) Subject() string { return c.RegisteredClaims.Subject }

func (c *AccessClaims) Email() string { return c.UserEmail }

func (c *AccessClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

func (c *AccessClaims) Extensions() map[string]any { return c.Metadata }
