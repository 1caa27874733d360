package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/geogift/geogift/service"
)

// GiftHandlers serves the single-step gift lifecycle.
type GiftHandlers struct {
	gifts *service.GiftService
}

// NewGiftHandlers creates the gift handlers.
func NewGiftHandlers(gifts *service.GiftService) *GiftHandlers {
	return &GiftHandlers{gifts: gifts}
}

// Create persists a new PENDING gift for the authenticated sender.
func (h *GiftHandlers) Create(c *gin.Context) {
	var req service.CreateGiftInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	gift, err := h.gifts.Create(c.Request.Context(), sessionAddress(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gift)
}

// Get returns one gift by id.
func (h *GiftHandlers) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gift id"})
		return
	}

	gift, err := h.gifts.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gift)
}

// GetByEscrow returns one gift by its on-chain escrow reference.
func (h *GiftHandlers) GetByEscrow(c *gin.Context) {
	gift, err := h.gifts.GetByEscrowID(c.Request.Context(), c.Param("escrowID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gift)
}

// ListSent returns gifts created by the authenticated wallet.
func (h *GiftHandlers) ListSent(c *gin.Context) {
	limit, offset := pagination(c)
	gifts, err := h.gifts.ListSent(c.Request.Context(), sessionAddress(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gifts": gifts})
}

// ListReceived returns gifts destined for the authenticated wallet.
func (h *GiftHandlers) ListReceived(c *gin.Context) {
	limit, offset := pagination(c)
	gifts, err := h.gifts.ListReceived(c.Request.Context(), sessionAddress(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gifts": gifts})
}

// Claim verifies the unlock attempt and transitions the gift to CLAIMED.
func (h *GiftHandlers) Claim(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gift id"})
		return
	}

	var req service.ClaimGiftInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	gift, err := h.gifts.Claim(c.Request.Context(), id, sessionAddress(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gift)
}

// Expire lets the sender reclaim a gift whose deadline has passed.
func (h *GiftHandlers) Expire(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gift id"})
		return
	}

	gift, err := h.gifts.Expire(c.Request.Context(), id, sessionAddress(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gift)
}
