package market

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kawilabs/go-kawi/service/persist"
	"github.com/kawilabs/go-kawi/util"
)

type delistNFTInput struct {
	TokenID      persist.TokenID `json:"tokenId" binding:"required"`
	SerialNumber int64           `json:"serial_number" binding:"required"`
	Owner        string          `json:"owner" binding:"required,account_id"`
}

type delistNFTOutput struct {
	Success bool   `json:"success"`
	TxID    string `json:"txId"`
}

// delistNFT returns a listed NFT from custody to its seller. The caller must
// be the seller of record, and the original custody transfer is re-verified
// against the ledger before anything is moved, so a delist request cannot be
// used to drain custody of someone else's unit.
func delistNFT(offerRepo persist.OfferRepository, verifier *Verifier, ldg Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input delistNFTInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		nft := persist.NFTIdentifiers{TokenID: input.TokenID, SerialNumber: input.SerialNumber}
		owner := persist.AccountID(input.Owner)

		offer, err := offerRepo.GetActiveForSeller(c, nft, owner)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.As(err, &persist.ErrOfferNotFound{}) {
				status = http.StatusNotFound
			}
			util.ErrResponse(c, status, err)
			return
		}

		if _, err := verifier.VerifyCustodyTransfer(c, nft, owner, offer.MemoID.String()); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		txID, err := ldg.TransferNFT(c, nft, ldg.Custody(), owner)
		if err != nil {
			util.ErrStepResponse(c, http.StatusInternalServerError, err, "nft-transfer")
			return
		}

		if err := offerRepo.MarkInactive(c, offer.ID); err != nil {
			util.ErrStepResponse(c, http.StatusInternalServerError, err, "record-update")
			return
		}

		c.JSON(http.StatusOK, delistNFTOutput{Success: true, TxID: txID})
	}
}
