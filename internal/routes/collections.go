package routes

import (
	"niftacore/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupCollectionRoutes sets up collection, mint and receipt routes.
func SetupCollectionRoutes(r *gin.Engine, h *handlers.Handler) {
	collections := r.Group("/collections")
	{
		collections.GET("", h.ListCollections)
		collections.POST("", h.CreateCollection)
		collections.GET("/:id", h.GetCollection)
		collections.POST("/:id/mint", h.Mint)
		collections.GET("/:id/receipts", h.ListReceipts)
		collections.GET("/:id/transitions", h.ListTransitions)
	}
}

// SetupReferralRoutes sets up first-touch referral routes.
func SetupReferralRoutes(r *gin.Engine, h *handlers.Handler) {
	referrals := r.Group("/referrals")
	{
		referrals.POST("", h.AttachReferral)
		referrals.GET("/:minter", h.GetReferral)
		referrals.DELETE("/:minter", h.ClearReferral)
	}
}

func SetupBalanceRoutes(r *gin.Engine, h *handlers.Handler) {
	r.GET("/balances/:address", h.GetBalance)
}

func SetupStreamRoutes(r *gin.Engine, h *handlers.Handler) {
	r.GET("/ws/mints", h.StreamMints)
}
