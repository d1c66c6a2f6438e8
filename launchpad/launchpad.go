package launchpad

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kawilabs/go-kawi/service/ledger"
	"github.com/kawilabs/go-kawi/service/logger"
	"github.com/kawilabs/go-kawi/service/mirror"
	"github.com/kawilabs/go-kawi/service/persist"
	"github.com/kawilabs/go-kawi/util"
)

// transferBatchSize is how many serials go into a single transfer transaction
const transferBatchSize = 10

var (
	// ErrCampaignEnded means the campaign's raise goal has already been met
	ErrCampaignEnded = errors.New("launchpad campaign has ended")
	// ErrInsufficientInventory means custody holds fewer serials than requested
	ErrInsufficientInventory = errors.New("not enough nfts left in the launchpad inventory")
)

// Ledger is the subset of ledger operations the launchpad needs
type Ledger interface {
	Custody() persist.AccountID
	TransferNFTBatch(ctx context.Context, token persist.TokenID, serials []int64, from, to persist.AccountID) (string, error)
}

type mintInput struct {
	TokenID   persist.TokenID `json:"token_id" binding:"required"`
	AccountID string          `json:"accountId" binding:"required,account_id"`
	Amount    int64           `json:"amount" binding:"required,gt=0"`
}

type mintOutput struct {
	Success bool     `json:"success"`
	Serials []int64  `json:"serials"`
	TxIDs   []string `json:"txIds"`
}

// mintNFTs distributes custody-held serials of a launchpad collection to a
// participant. Inventory is checked up front so an oversized request fails
// before anything moves; a mid-distribution batch failure aborts with
// already-sent batches left in place.
func mintNFTs(repo persist.LaunchpadRepository, mirrorClient *mirror.Client, ldg Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input mintInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		lp, err := repo.GetByToken(c, input.TokenID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.As(err, &persist.ErrLaunchpadNotFound{}) {
				status = http.StatusNotFound
			}
			util.ErrResponse(c, status, err)
			return
		}
		if lp.Status == persist.LaunchpadStatusEnded {
			util.ErrResponse(c, http.StatusBadRequest, ErrCampaignEnded)
			return
		}

		price, err := ledger.TinybarsFromHbar(lp.Price.String())
		if err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}

		serials, txIDs, err := distribute(c, mirrorClient, ldg, input.TokenID, persist.AccountID(input.AccountID), input.Amount)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrInsufficientInventory) {
				status = http.StatusBadRequest
			}
			util.ErrStepResponse(c, status, err, "nft-transfer")
			return
		}

		if err := repo.RecordMint(c, input.TokenID, int64(len(serials)), price*int64(len(serials))); err != nil {
			util.ErrStepResponse(c, http.StatusInternalServerError, err, "record-update")
			return
		}

		c.JSON(http.StatusOK, mintOutput{Success: true, Serials: serials, TxIDs: txIDs})
	}
}

// distribute moves the first `amount` custody-held serials of the collection
// to the recipient in fixed-size batches
func distribute(ctx context.Context, mirrorClient *mirror.Client, ldg Ledger, token persist.TokenID, to persist.AccountID, amount int64) ([]int64, []string, error) {
	defer util.Track("launchpad distribution", time.Now())

	held, err := mirrorClient.AccountNFTs(ctx, ldg.Custody(), token)
	if err != nil {
		return nil, nil, err
	}
	if int64(len(held)) < amount {
		return nil, nil, ErrInsufficientInventory
	}

	serials := held[:amount]
	txIDs := []string{}
	for start := 0; start < len(serials); start += transferBatchSize {
		end := util.MinInt(start+transferBatchSize, len(serials))
		txID, err := ldg.TransferNFTBatch(ctx, token, serials[start:end], ldg.Custody(), to)
		if err != nil {
			return nil, nil, err
		}
		txIDs = append(txIDs, txID)
	}

	logger.For(ctx).Infof("distributed %d serials of %s to %s in %d batches", len(serials), token, to, len(txIDs))
	return serials, txIDs, nil
}

// HandlersInit mounts the launchpad routes on the router
func HandlersInit(router *gin.Engine, repo persist.LaunchpadRepository, mirrorClient *mirror.Client, ldg Ledger) *gin.Engine {
	launchpadGroup := router.Group("/launchpad")
	launchpadGroup.POST("/mint", mintNFTs(repo, mirrorClient, ldg))
	return router
}
