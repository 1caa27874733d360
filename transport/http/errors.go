package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/geogift/geogift/core"
)

// respondError maps domain errors to HTTP statuses. Unknown errors become a
// generic 500 so internal details never leak to clients.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, core.ErrInvalidAddress):
		status, msg = http.StatusBadRequest, "invalid wallet address"
	case errors.Is(err, core.ErrInvalidStepSequence):
		status, msg = http.StatusBadRequest, "invalid step configuration"
	case errors.Is(err, core.ErrRateLimitExceeded):
		status, msg = http.StatusTooManyRequests, "too many challenge requests"
	case errors.Is(err, core.ErrInvalidNonce):
		status, msg = http.StatusUnauthorized, "invalid or expired nonce"
	case errors.Is(err, core.ErrInvalidSignature):
		status, msg = http.StatusUnauthorized, "invalid signature"
	case errors.Is(err, core.ErrAddressMismatch):
		status, msg = http.StatusUnauthorized, "signature does not match address"
	case errors.Is(err, core.ErrTokenExpired):
		status, msg = http.StatusUnauthorized, "token expired"
	case errors.Is(err, core.ErrTokenInvalid):
		status, msg = http.StatusUnauthorized, "invalid token"
	case errors.Is(err, core.ErrUserNotFound):
		status, msg = http.StatusNotFound, "user not found"
	case errors.Is(err, core.ErrGiftNotFound):
		status, msg = http.StatusNotFound, "gift not found"
	case errors.Is(err, core.ErrChainNotFound):
		status, msg = http.StatusNotFound, "chain not found"
	case errors.Is(err, core.ErrUnlockFailed):
		status, msg = http.StatusForbidden, "unlock verification failed"
	case errors.Is(err, core.ErrGiftNotClaimable):
		status, msg = http.StatusConflict, "gift is not claimable"
	case errors.Is(err, core.ErrStepOutOfOrder):
		status, msg = http.StatusConflict, "step is not the current step"
	case errors.Is(err, core.ErrChainNotActive):
		status, msg = http.StatusConflict, "chain is not active"
	case errors.Is(err, core.ErrUnavailable):
		status, msg = http.StatusServiceUnavailable, "service temporarily unavailable"
	}

	c.JSON(status, gin.H{"error": msg})
}
