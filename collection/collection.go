package collection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kawilabs/go-kawi/service/ledger"
	"github.com/kawilabs/go-kawi/service/logger"
	"github.com/kawilabs/go-kawi/service/persist"
	"github.com/kawilabs/go-kawi/util"
)

// mintBatchSize is how many metadata entries go into a single mint transaction
const mintBatchSize = 10

// ErrNothingMinted means every mint batch failed and the collection is empty
var ErrNothingMinted = errors.New("no nfts could be minted for the collection")

// Ledger is the subset of ledger operations collection creation needs
type Ledger interface {
	Custody() persist.AccountID
	CreateCollection(ctx context.Context, params ledger.CollectionParams) (persist.TokenID, ledger.Key, error)
	MintBatch(ctx context.Context, token persist.TokenID, metadatas [][]byte, supplyKey ledger.Key) ([]int64, string, error)
	TransferNFTBatch(ctx context.Context, token persist.TokenID, serials []int64, from, to persist.AccountID) (string, error)
}

type createCollectionInput struct {
	Name         string   `json:"name" binding:"required"`
	Symbol       string   `json:"symbol" binding:"required"`
	Memo         string   `json:"memo"`
	AccountID    string   `json:"accountId" binding:"required,account_id"`
	MetadataCIDs []string `json:"metadataCids" binding:"required,min=1,dive,required"`
}

type createCollectionOutput struct {
	Success   bool            `json:"success"`
	TokenID   persist.TokenID `json:"tokenId"`
	Serials   []int64         `json:"serials"`
	SupplyKey string          `json:"supplyKey"`
	Warning   string          `json:"warning,omitempty"`
}

// createCollection creates a finite NFT collection treasuried at custody,
// mints one unit per metadata CID, and hands the minted serials to the
// requesting account. Mint batches that fail are skipped and reported as a
// warning; a transfer failure after minting is terminal.
func createCollection(ldg Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input createCollectionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		token, supplyKey, err := ldg.CreateCollection(c, ledger.CollectionParams{
			Name:           input.Name,
			Symbol:         input.Symbol,
			MaxSupply:      int64(len(input.MetadataCIDs)),
			CollectionMemo: input.Memo,
		})
		if err != nil {
			util.ErrStepResponse(c, http.StatusInternalServerError, err, "token-create")
			return
		}

		serials, failedBatches := mintAll(c, ldg, token, supplyKey, input.MetadataCIDs)
		if len(serials) == 0 {
			util.ErrStepResponse(c, http.StatusInternalServerError, ErrNothingMinted, "token-mint")
			return
		}

		for start := 0; start < len(serials); start += mintBatchSize {
			end := util.MinInt(start+mintBatchSize, len(serials))
			if _, err := ldg.TransferNFTBatch(c, token, serials[start:end], ldg.Custody(), persist.AccountID(input.AccountID)); err != nil {
				util.ErrStepResponse(c, http.StatusInternalServerError, err, "nft-transfer")
				return
			}
		}

		out := createCollectionOutput{
			Success:   true,
			TokenID:   token,
			Serials:   serials,
			SupplyKey: supplyKey.Raw(),
		}
		if failedBatches > 0 {
			out.Warning = fmt.Sprintf("%d mint batches failed; the collection is smaller than requested", failedBatches)
		}
		c.JSON(http.StatusOK, out)
	}
}

// mintAll mints the metadata CIDs in fixed-size batches, skipping batches
// that fail and returning how many were skipped
func mintAll(ctx context.Context, ldg Ledger, token persist.TokenID, supplyKey ledger.Key, cids []string) ([]int64, int) {
	defer util.Track("collection mint", time.Now())

	serials := []int64{}
	failed := 0

	for start := 0; start < len(cids); start += mintBatchSize {
		end := util.MinInt(start+mintBatchSize, len(cids))

		metadatas := make([][]byte, 0, end-start)
		for _, cid := range cids[start:end] {
			metadatas = append(metadatas, []byte(cid))
		}

		batchSerials, _, err := ldg.MintBatch(ctx, token, metadatas, supplyKey)
		if err != nil {
			logger.For(ctx).Warnf("mint batch %d-%d of %s failed, skipping: %s", start, end, token, err)
			failed++
			continue
		}
		serials = append(serials, batchSerials...)
	}

	return serials, failed
}

// HandlersInit mounts the collection routes on the router
func HandlersInit(router *gin.Engine, ldg Ledger) *gin.Engine {
	collectionGroup := router.Group("/collections")
	collectionGroup.POST("/create", createCollection(ldg))
	return router
}
