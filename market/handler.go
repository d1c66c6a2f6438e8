package market

import (
	"github.com/gin-gonic/gin"
	"github.com/kawilabs/go-kawi/service/crypt"
	"github.com/kawilabs/go-kawi/service/mirror"
	"github.com/kawilabs/go-kawi/service/persist"
)

// HandlersInit mounts the marketplace routes on the router
func HandlersInit(router *gin.Engine, offerRepo persist.OfferRepository, mirrorClient *mirror.Client, codec *crypt.Codec, ldg Ledger) *gin.Engine {
	verifier := NewVerifier(mirrorClient, codec, ldg.Custody())

	marketGroup := router.Group("/market")
	marketGroup.POST("/list/code", generateListingCode(codec))
	marketGroup.POST("/offer", createOffer(offerRepo))
	marketGroup.POST("/list", listNFT(offerRepo, verifier))
	marketGroup.POST("/deslist", delistNFT(offerRepo, verifier, ldg))
	marketGroup.POST("/buy", buyNFT(offerRepo, mirrorClient, codec, ldg))

	return router
}
