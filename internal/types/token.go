package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims of the signed chat session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}
