package handlers

import (
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/iscsitgt/internal/controlplane/api/auth"
	"github.com/marmos91/iscsitgt/internal/controlplane/api/middleware"
)

// AuthHandler authenticates the control plane's bootstrap operator account
// and issues bearer tokens. There is no multi-operator store in scope --
// one admin account is configured via ControlPlaneConfig, generated with
// `iscsitgtctl passwd`.
type AuthHandler struct {
	username     string
	passwordHash string
	jwtService   *auth.JWTService
}

// NewAuthHandler creates an auth handler for the configured bootstrap operator.
func NewAuthHandler(username, passwordHash string, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{username: username, passwordHash: passwordHash, jwtService: jwtService}
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is the response body for login/refresh.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		BadRequest(w, "username and password are required")
		return
	}

	if req.Username != h.username || bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password)) != nil {
		Unauthorized(w, "invalid username or password")
		return
	}

	tokens, err := h.jwtService.GenerateTokenPair(&auth.Operator{ID: h.username, Username: h.username, Role: "admin"})
	if err != nil {
		InternalServerError(w, "failed to generate token")
		return
	}

	WriteJSONOK(w, TokenResponse{
		AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken,
		TokenType: tokens.TokenType, ExpiresIn: tokens.ExpiresIn, ExpiresAt: tokens.ExpiresAt,
		Username: h.username, Role: "admin",
	})
}

// RefreshRequest is the request body for POST /api/v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		BadRequest(w, "refresh_token is required")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		Unauthorized(w, "invalid or expired refresh token")
		return
	}

	tokens, err := h.jwtService.GenerateTokenPair(&auth.Operator{ID: claims.UserID, Username: claims.Username, Role: claims.Role})
	if err != nil {
		InternalServerError(w, "failed to generate token")
		return
	}

	WriteJSONOK(w, TokenResponse{
		AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken,
		TokenType: tokens.TokenType, ExpiresIn: tokens.ExpiresIn, ExpiresAt: tokens.ExpiresAt,
		Username: claims.Username, Role: claims.Role,
	})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "authentication required")
		return
	}
	WriteJSONOK(w, map[string]string{"username": claims.Username, "role": claims.Role})
}
