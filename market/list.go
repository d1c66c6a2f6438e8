package market

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kawilabs/go-kawi/service/persist"
	"github.com/kawilabs/go-kawi/util"
)

var errDuplicateListingMemo = errors.New("an offer with the same memo is already listed")

type listNFTInput struct {
	TokenID      persist.TokenID `json:"tokenId" binding:"required"`
	SerialNumber int64           `json:"serial_number" binding:"required"`
	Owner        string          `json:"owner" binding:"required,account_id"`
	Price        string          `json:"price"`
	// nft mirrors tokenId/serial_number on the wire; the top-level pair is
	// canonical so verification and promotion always target the same unit
	NFT  *persist.NFTIdentifiers `json:"nft"`
	Memo memoInput               `json:"memo" binding:"required"`
}

// listNFT confirms the seller's off-band custody transfer against mirror node
// history and promotes the matching step-1 offer to an active listing.
func listNFT(offerRepo persist.OfferRepository, verifier *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input listNFTInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		memoID := persist.NullString(input.Memo.Code)

		exists, err := offerRepo.ExistsListedWithMemo(c, memoID)
		if err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}
		if exists {
			util.ErrResponse(c, http.StatusBadRequest, errDuplicateListingMemo)
			return
		}

		nft := persist.NFTIdentifiers{TokenID: input.TokenID, SerialNumber: input.SerialNumber}
		if _, err := verifier.VerifyCustodyTransfer(c, nft, persist.AccountID(input.Owner), input.Memo.Code); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		if err := offerRepo.PromoteToListed(c, nft, persist.AccountID(input.Owner), memoID); err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		c.JSON(http.StatusOK, util.SuccessResponse{Success: true})
	}
}
