package model

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are carried by short-lived access tokens. Subject holds the
// user ID.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims are carried by refresh tokens. Subject holds the user ID and
// ID holds a unique token identifier so that consecutive tokens never
// collide.
type RefreshClaims struct {
	jwt.RegisteredClaims
}
