package market

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kawilabs/go-kawi/service/crypt"
	"github.com/kawilabs/go-kawi/service/ledger"
	"github.com/kawilabs/go-kawi/service/logger"
	"github.com/kawilabs/go-kawi/service/mirror"
	"github.com/kawilabs/go-kawi/service/persist"
	"github.com/kawilabs/go-kawi/util"
	"github.com/sirupsen/logrus"
)

type buyNFTInput struct {
	TokenID      persist.TokenID `json:"tokenId" binding:"required"`
	SerialNumber int64           `json:"serial_number" binding:"required"`
	BuyerID      string          `json:"buyerId" binding:"required,account_id"`
}

type buyNFTOutput struct {
	Success    bool   `json:"success"`
	NFTTxID    string `json:"nftTxId"`
	SellerTxID string `json:"sellerTxId"`
}

// buyNFT settles a purchase: it validates the buyer's payment against mirror
// node history, then transfers the NFT out of custody and splits the sale
// amount between seller and marketplace fee. A failure after the NFT transfer
// leaves the two ledgers inconsistent and is reported as a terminal error; no
// compensation is attempted.
func buyNFT(offerRepo persist.OfferRepository, mirrorClient *mirror.Client, codec *crypt.Codec, ldg Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input buyNFTInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		nft := persist.NFTIdentifiers{TokenID: input.TokenID, SerialNumber: input.SerialNumber}
		buyer := persist.AccountID(input.BuyerID)
		ctx := logger.NewContextWithFields(c, logrus.Fields{
			"tokenId":      nft.TokenID,
			"serialNumber": nft.SerialNumber,
			"buyer":        buyer,
		})

		offer, err := offerRepo.GetActive(c, nft)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.As(err, &persist.ErrOfferNotFound{}) {
				status = http.StatusNotFound
			}
			util.ErrResponse(c, status, err)
			return
		}

		expected, err := ledger.TinybarsFromHbar(offer.Price.String())
		if err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		if _, err := findPayment(ctx, mirrorClient, codec, offer.ID, buyer, ldg.Custody(), expected); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		// settlement intent goes down before the first ledger leg, so a
		// concurrent buy of the same offer loses here instead of racing the
		// ledger, and a crash mid-settlement leaves a visible marker
		if err := offerRepo.BeginSettlement(c, offer.ID, buyer); err != nil {
			status := http.StatusInternalServerError
			if errors.As(err, &persist.ErrSettlementConflict{}) {
				status = http.StatusConflict
			}
			util.ErrStepResponse(c, status, err, "settlement-intent")
			return
		}

		nftTxID, err := ldg.TransferNFT(c, nft, ldg.Custody(), buyer)
		if err != nil {
			// nothing moved on the ledger, the intent can be rolled back
			if releaseErr := offerRepo.ReleaseSettlement(c, offer.ID); releaseErr != nil {
				logger.For(ctx).Errorf("could not release settlement of offer %s: %s", offer.ID, releaseErr)
			}
			util.ErrStepResponse(c, http.StatusInternalServerError, err, "nft-transfer")
			return
		}

		sellerAmount, fee := SplitSale(expected)
		sellerTxID, err := ldg.SplitPayment(c, offer.Seller, expected, sellerAmount, fee)
		if err != nil {
			// the NFT already left custody; flag the offer for external
			// reconciliation instead of pretending the sale didn't happen
			if recErr := offerRepo.MarkReconciliation(c, offer.ID); recErr != nil {
				logger.For(ctx).Errorf("could not flag offer %s for reconciliation: %s", offer.ID, recErr)
			}
			util.ErrStepResponse(c, http.StatusInternalServerError, err, "hbar-transfer")
			return
		}

		if err := offerRepo.MarkSold(c, offer.ID); err != nil {
			util.ErrStepResponse(c, http.StatusInternalServerError, err, "record-update")
			return
		}

		c.JSON(http.StatusOK, buyNFTOutput{Success: true, NFTTxID: nftTxID, SellerTxID: sellerTxID})
	}
}

// findPayment scans the buyer's recent transfers, most-recent-first, for the
// first successful transaction that pays at least the expected amount into
// custody and whose memo decrypts to the offer id. No match means no valid
// payment; mirror failures propagate so the caller fails closed.
func findPayment(ctx context.Context, mirrorClient *mirror.Client, codec *crypt.Codec, offerID persist.DBID, buyer, custody persist.AccountID, expected int64) (string, error) {
	txs, err := mirrorClient.AccountTransactions(ctx, buyer, paymentScanWindow)
	if err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return "", ErrNoValidPayment
	}

	for _, tx := range txs {
		if tx.Result != mirror.ResultSuccess {
			continue
		}

		buyerLeg, hasBuyerLeg := util.FindFirst(tx.Transfers, func(t mirror.Transfer) bool {
			return t.Account == buyer && t.Amount < 0
		})
		_, hasCustodyLeg := util.FindFirst(tx.Transfers, func(t mirror.Transfer) bool {
			return t.Account == custody && t.Amount >= expected
		})
		if !hasBuyerLeg || !hasCustodyLeg || -buyerLeg.Amount < expected {
			continue
		}

		memo, err := base64.StdEncoding.DecodeString(tx.MemoBase64)
		if err != nil {
			continue
		}
		decrypted, err := codec.Decrypt(string(memo))
		if err != nil {
			logger.For(ctx).Debugf("skipping tx %s: %s", tx.TransactionID, err)
			continue
		}
		if decrypted == offerID.String() {
			return tx.TransactionID, nil
		}
	}

	return "", ErrNoValidPayment
}
