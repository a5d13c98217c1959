package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access-token payload minted by the campus identity
// service. UserID matches the student or instructor row the token acts for.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
