package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the subset of ID token claims we read.
type TokenClaims struct {
	Email  string `json:"email,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func (c *TokenClaims) UID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// ParseClaims decodes token claims without checking the signature. Only use
// it on tokens we just received from the provider.
func ParseClaims(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}
	return claims, nil
}
