package server

import (
	"github.com/gin-gonic/gin"
	"github.com/kawilabs/go-kawi/collection"
	"github.com/kawilabs/go-kawi/launchpad"
	"github.com/kawilabs/go-kawi/market"
	"github.com/kawilabs/go-kawi/media"
	"github.com/kawilabs/go-kawi/middleware"
	"github.com/kawilabs/go-kawi/util"
)

// HandlersInit registers the middleware chain and every route group
func HandlersInit(router *gin.Engine, clients *Clients) *gin.Engine {
	router.Use(middleware.HandleCORS(), middleware.ErrLogger(), middleware.Sentry(), middleware.Tracing())

	router.GET("/alive", util.HealthCheckHandler())

	market.HandlersInit(router, clients.OfferRepo, clients.Mirror, clients.Codec, clients.Ledger)
	launchpad.HandlersInit(router, clients.LaunchpadRepo, clients.Mirror, clients.Ledger)
	collection.HandlersInit(router, clients.Ledger)
	media.HandlersInit(router, clients.Pinata, clients.IPFS)

	return router
}
