package models

import "github.com/golang-jwt/jwt/v5"

// Roles accepted on admin endpoints.
const (
	RoleAdmin = "ADMIN"
)

// JWTClaims carries the identity attached to admin requests.
type JWTClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
