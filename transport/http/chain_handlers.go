package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/geogift/geogift/service"
)

// ChainHandlers serves the gift-chain lifecycle and its claim audit log.
type ChainHandlers struct {
	chains *service.ChainService
}

// NewChainHandlers creates the chain handlers.
func NewChainHandlers(chains *service.ChainService) *ChainHandlers {
	return &ChainHandlers{chains: chains}
}

// Create validates and persists a chain with its steps.
func (h *ChainHandlers) Create(c *gin.Context) {
	var req service.CreateChainInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	chain, err := h.chains.Create(c.Request.Context(), sessionAddress(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chain)
}

// Get returns one chain, steps included, with its derived status.
func (h *ChainHandlers) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chain id"})
		return
	}

	chain, err := h.chains.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chainResponse(chain))
}

// GetByExternalID returns one chain by its on-chain identifier.
func (h *ChainHandlers) GetByExternalID(c *gin.Context) {
	chain, err := h.chains.GetByExternalID(c.Request.Context(), c.Param("externalID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chainResponse(chain))
}

// ListGiven returns chains created by the authenticated wallet.
func (h *ChainHandlers) ListGiven(c *gin.Context) {
	limit, offset := pagination(c)
	chains, err := h.chains.ListByGiver(c.Request.Context(), sessionAddress(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chains": chains})
}

// ListReceived returns chains destined for the authenticated wallet.
func (h *ChainHandlers) ListReceived(c *gin.Context) {
	limit, offset := pagination(c)
	chains, err := h.chains.ListByRecipient(c.Request.Context(), sessionAddress(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chains": chains})
}

// UpdateBlockchainRef records the on-chain id and creation transaction.
func (h *ChainHandlers) UpdateBlockchainRef(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chain id"})
		return
	}

	var req struct {
		ExternalChainID string `json:"external_chain_id" binding:"required"`
		CreationTx      string `json:"creation_tx"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	chain, err := h.chains.UpdateBlockchainRef(c.Request.Context(), id, sessionAddress(c), req.ExternalChainID, req.CreationTx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chainResponse(chain))
}

// Cancel marks an active chain cancelled.
func (h *ChainHandlers) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chain id"})
		return
	}

	chain, err := h.chains.Cancel(c.Request.Context(), id, sessionAddress(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chainResponse(chain))
}

// RecordClaim persists a claim attempt and, when successful, advances the
// chain. A rejected advancement still returns the persisted claim.
func (h *ChainHandlers) RecordClaim(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chain id"})
		return
	}

	var req service.RecordClaimInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	claim, advanced, err := h.chains.RecordClaim(c.Request.Context(), id, req)
	if err != nil && claim == nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"claim": claim, "step_advanced": advanced}
	if err != nil {
		// Claim persisted but the state machine rejected the advancement.
		resp["rejection"] = rejectionReason(err)
		c.JSON(http.StatusConflict, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListClaims returns the audit log for one chain.
func (h *ChainHandlers) ListClaims(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chain id"})
		return
	}

	limit, offset := pagination(c)
	claims, err := h.chains.ListClaims(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

// ListMyClaims returns every claim attempt by the authenticated wallet.
func (h *ChainHandlers) ListMyClaims(c *gin.Context) {
	limit, offset := pagination(c)
	claims, err := h.chains.ListClaimsByClaimer(c.Request.Context(), sessionAddress(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

// Stats returns the dashboard aggregate.
func (h *ChainHandlers) Stats(c *gin.Context) {
	stats, err := h.chains.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
