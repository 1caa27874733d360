package http

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geogift/geogift/core"
)

// chainResponse attaches the lazily derived status to the chain payload.
func chainResponse(chain *core.GiftChain) gin.H {
	return gin.H{
		"chain":  chain,
		"status": chain.Status(time.Now()),
	}
}

// rejectionReason names why a recorded claim did not advance the chain.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, core.ErrStepOutOfOrder):
		return "step_out_of_order"
	case errors.Is(err, core.ErrChainNotActive):
		return "chain_not_active"
	default:
		return "unavailable"
	}
}
