package types

import "github.com/golang-jwt/jwt/v5"

// Claims carries the authenticated user id
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}
