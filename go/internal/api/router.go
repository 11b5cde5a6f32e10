package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with recovery, request logging and the
// full route table mounted.
func NewRouter(h *Handler, parser TokenParser) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())

	router.GET("/healthz", h.Healthz)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/auctions", h.ListAuctions)
		apiGroup.GET("/auctions/:id", h.GetAuction)
		apiGroup.GET("/timers", h.GetTimers)

		authed := apiGroup.Group("")
		authed.Use(RequireAuth(parser))
		{
			authed.POST("/auctions/:id/bid", h.PlaceBid)
			authed.POST("/auctions/:id/prebid", h.PlacePrebid)
			authed.GET("/me", h.GetMe)
			authed.GET("/me/prebids", h.ListMyPrebids)
		}
	}

	return router
}
