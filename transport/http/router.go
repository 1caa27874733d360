// Package http is the gin transport for the GeoGift API.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/geogift/geogift/service"
)

// Services bundles everything the router serves.
type Services struct {
	Auth   *service.AuthService
	Users  *service.UserService
	Gifts  *service.GiftService
	Chains *service.ChainService
}

// SetupRouter wires all routes. Auth endpoints and wallet lookups are public;
// everything under /api/v1 requires a valid access token.
func SetupRouter(svc Services, checks map[string]HealthCheck, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	authHandlers := NewAuthHandlers(svc.Auth, svc.Users, log)
	userHandlers := NewUserHandlers(svc.Users)
	giftHandlers := NewGiftHandlers(svc.Gifts)
	chainHandlers := NewChainHandlers(svc.Chains)
	healthHandlers := NewHealthHandlers(checks)

	router.GET("/healthz", healthHandlers.Live)
	router.GET("/readyz", healthHandlers.Ready)

	auth := router.Group("/auth")
	{
		auth.POST("/challenge", authHandlers.Challenge)
		auth.POST("/verify", authHandlers.Verify)
		auth.GET("/wallet/:address/info", authHandlers.WalletInfo)
	}

	api := router.Group("/api/v1")
	api.Use(AuthMiddleware(svc.Auth))
	{
		api.GET("/me", authHandlers.Me)
		api.POST("/logout", authHandlers.Logout)

		api.GET("/profile", userHandlers.GetProfile)
		api.PUT("/profile", userHandlers.UpdateProfile)
		api.GET("/users/:address", userHandlers.GetPublicProfile)

		gifts := api.Group("/gifts")
		{
			gifts.POST("", giftHandlers.Create)
			gifts.GET("/sent", giftHandlers.ListSent)
			gifts.GET("/received", giftHandlers.ListReceived)
			gifts.GET("/escrow/:escrowID", giftHandlers.GetByEscrow)
			gifts.GET("/:id", giftHandlers.Get)
			gifts.POST("/:id/claim", giftHandlers.Claim)
			gifts.POST("/:id/expire", giftHandlers.Expire)
		}

		chains := api.Group("/chains")
		{
			chains.POST("", chainHandlers.Create)
			chains.GET("/given", chainHandlers.ListGiven)
			chains.GET("/received", chainHandlers.ListReceived)
			chains.GET("/external/:externalID", chainHandlers.GetByExternalID)
			chains.GET("/:id", chainHandlers.Get)
			chains.PUT("/:id/blockchain", chainHandlers.UpdateBlockchainRef)
			chains.POST("/:id/cancel", chainHandlers.Cancel)
			chains.POST("/:id/claims", chainHandlers.RecordClaim)
			chains.GET("/:id/claims", chainHandlers.ListClaims)
		}

		api.GET("/claims", chainHandlers.ListMyClaims)
		api.GET("/stats", chainHandlers.Stats)
	}

	return router
}
