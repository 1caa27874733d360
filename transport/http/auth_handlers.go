package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/internal/eth"
	"github.com/geogift/geogift/service"
)

// AuthHandlers serves the challenge-response login flow.
type AuthHandlers struct {
	auth  *service.AuthService
	users *service.UserService
	log   zerolog.Logger
}

// NewAuthHandlers creates the auth handlers.
func NewAuthHandlers(auth *service.AuthService, users *service.UserService, log zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{auth: auth, users: users, log: log}
}

// Challenge issues a single-use nonce and the exact message to sign.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	challenge, err := h.auth.Challenge(c.Request.Context(), req.WalletAddress)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet_address": challenge.Address,
		"nonce":          challenge.Nonce,
		"message":        challenge.Message,
		"expires_at":     challenge.ExpiresAt,
	})
}

// Verify checks the signed challenge and mints an access token.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		Nonce         string `json:"nonce" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, session, err := h.auth.Verify(c.Request.Context(), req.WalletAddress, req.Signature, req.Nonce)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":   token,
		"token_type":     "Bearer",
		"wallet_address": session.Address,
		"expires_at":     session.ExpiresAt,
	})
}

// Me returns the authenticated wallet and its profile when one exists.
func (h *AuthHandlers) Me(c *gin.Context) {
	address := sessionAddress(c)

	user, err := h.users.Get(c.Request.Context(), address)
	if errors.Is(err, core.ErrUserNotFound) {
		c.JSON(http.StatusOK, gin.H{"wallet_address": address})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet_address": address, "profile": user})
}

// WalletInfo reports whether a wallet is known, without authentication.
func (h *AuthHandlers) WalletInfo(c *gin.Context) {
	normalized, err := eth.NormalizeAddress(c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}

	_, err = h.users.Get(c.Request.Context(), normalized)
	registered := err == nil
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet_address": normalized,
		"registered":     registered,
	})
}

// Logout acknowledges a logout. Access tokens are stateless and expire on
// their own; this exists so clients have a definite end-of-session call.
func (h *AuthHandlers) Logout(c *gin.Context) {
	h.log.Info().Str("wallet", sessionAddress(c)).Msg("logout")
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
