package market

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kawilabs/go-kawi/service/ledger"
	"github.com/kawilabs/go-kawi/service/persist"
	"github.com/kawilabs/go-kawi/util"
)

type memoInput struct {
	Code string `json:"code" binding:"required"`
}

type createOfferInput struct {
	NFT    persist.NFTIdentifiers `json:"nft" binding:"required"`
	Seller string                 `json:"seller" binding:"required,account_id"`
	Price  string                 `json:"price" binding:"required"`
	Memo   memoInput              `json:"memo" binding:"required"`
}

type createOfferOutput struct {
	Success bool         `json:"success"`
	ID      persist.DBID `json:"id"`
}

// createOffer records a step-1 offer before the client performs the custody
// transfer. The row stays pending until the listing verifier promotes it.
func createOffer(offerRepo persist.OfferRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input createOfferInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		if _, err := ledger.TinybarsFromHbar(input.Price); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		now := time.Now()
		id, err := offerRepo.Create(c, persist.Offer{
			NFT:          input.NFT,
			Seller:       persist.AccountID(input.Seller),
			Price:        persist.NullString(input.Price),
			Status:       persist.OfferStatusPending,
			Step:         persist.OfferStepCreated,
			MemoID:       persist.NullString(input.Memo.Code),
			CreationTime: persist.CreationTimeFromTime(now),
			LastUpdated:  persist.LastUpdatedTimeFromTime(now),
		})
		if err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		c.JSON(http.StatusOK, createOfferOutput{Success: true, ID: id})
	}
}
