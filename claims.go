package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is what the gate attaches to an authenticated request
type Identity interface {
	Username() string
	Role() UserRole
}

// SessionClaims is the JWT payload issued at login
type SessionClaims struct {
	jwt.RegisteredClaims
	Name     string `json:"username"`
	UserRole string `json:"role"`
}

var _ Identity = (*SessionClaims)(nil)

// Username returns the username the token was issued to
func (c *SessionClaims) Username() string {
	if c.Name != "" {
		return c.Name
	}
	return c.RegisteredClaims.Subject
}

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Role returns the role bound into the token
func (c *SessionClaims) Role() UserRole {
	return ParseRole(c.UserRole)
}

// Expires returns the expiry claim, zero if absent
func (c *SessionClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAtTime returns the issued at claim, zero if absent
func (c *SessionClaims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ensureTokenID gives every token a unique jti so two logins within the
// same second still produce distinct registry keys.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
