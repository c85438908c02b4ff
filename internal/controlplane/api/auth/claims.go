// Package auth provides JWT authentication for the control-plane API.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenType indicates whether a token is an access token or refresh token.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the JWT claims for control-plane authentication. Operators
// authenticate as either "admin" (full control over targets/TPGs/ACLs) or
// "operator" (read-only queries: list_sessions, session_stats,
// connection_stats, digest_errors, login_stats).
type Claims struct {
	jwt.RegisteredClaims

	UserID             string    `json:"uid"`
	Username           string    `json:"username"`
	Role               string    `json:"role"`
	TokenType          TokenType `json:"token_type"`
	MustChangePassword bool      `json:"must_change_password,omitempty"`
}

// IsAccessToken returns true if this is an access token.
func (c *Claims) IsAccessToken() bool { return c.TokenType == TokenTypeAccess }

// IsRefreshToken returns true if this is a refresh token.
func (c *Claims) IsRefreshToken() bool { return c.TokenType == TokenTypeRefresh }

// IsAdmin returns true if the operator has admin role.
func (c *Claims) IsAdmin() bool { return c.Role == "admin" }
