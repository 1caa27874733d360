package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/geogift/geogift/service"
)

// contextAddressKey is where the auth middleware stores the session wallet.
const contextAddressKey = "walletAddress"

// AuthMiddleware validates the Bearer token and stores the wallet address in
// the request context.
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		session, err := auth.Authenticate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set(contextAddressKey, session.Address)
		c.Next()
	}
}

// sessionAddress returns the authenticated wallet set by AuthMiddleware.
func sessionAddress(c *gin.Context) string {
	return c.GetString(contextAddressKey)
}

// RequestLogger emits one structured line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
