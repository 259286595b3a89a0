package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the API puts in its access tokens.
type Claims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// ParseClaims decodes token without verifying its signature. The client has
// no key; the result is for display and must not gate anything.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}
	return claims, nil
}

// Expiry returns the exp claim, or nil when the token has none.
func (c *Claims) Expiry() *time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return nil
	}
	t := c.RegisteredClaims.ExpiresAt.Time
	return &t
}
