package models

import "github.com/golang-jwt/jwt/v5"

// Role is the access level carried in a bearer token.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleRegistrar Role = "REGISTRAR"
	RoleViewer    Role = "VIEWER"
)

// JWTClaims represents the payload of an access token.
type JWTClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}
