package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the access token payload minted by the auth provider.
// The role is read from app_metadata so users cannot self-assign it.
type JWTClaims struct {
	Email       string          `json:"email"`
	AppMetadata JWTAppMetadata  `json:"app_metadata"`
	UserMeta    JWTUserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// JWTAppMetadata carries provider-managed attributes.
type JWTAppMetadata struct {
	Role string `json:"role"`
}

// JWTUserMetadata carries user-editable attributes.
type JWTUserMetadata struct {
	FullName string `json:"full_name"`
}

// Actor converts validated claims into the request-scoped actor.
func (c *JWTClaims) Actor() (*Actor, error) {
	role, err := ParseUserRole(c.AppMetadata.Role)
	if err != nil {
		return nil, err
	}
	return &Actor{UserID: c.Subject, Role: role}, nil
}
