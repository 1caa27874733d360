package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geogift/geogift/service"
)

// UserHandlers serves wallet profiles.
type UserHandlers struct {
	users *service.UserService
}

// NewUserHandlers creates the user handlers.
func NewUserHandlers(users *service.UserService) *UserHandlers {
	return &UserHandlers{users: users}
}

// GetProfile returns the authenticated wallet's profile.
func (h *UserHandlers) GetProfile(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), sessionAddress(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile applies a partial update to the authenticated profile.
func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	var req service.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.users.Update(c.Request.Context(), sessionAddress(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetPublicProfile returns another wallet's profile when it is public.
func (h *UserHandlers) GetPublicProfile(c *gin.Context) {
	user, err := h.users.GetPublic(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
