package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/kawilabs/go-kawi/service/persist"
)

const launchpadGetByTokenQuery = `SELECT ID,TOKEN_ID,NAME,PRICE,GOAL,PARTICIPANTS,MINTED,TOTAL_RAISED,STATUS,CREATED_AT,LAST_UPDATED FROM launchpads WHERE TOKEN_ID = $1;`

// Counter updates happen in a single statement so concurrent mints cannot
// lose increments to a read-modify-write race.
const launchpadRecordMintQuery = `UPDATE launchpads
	SET PARTICIPANTS = PARTICIPANTS + 1,
		MINTED = MINTED + $2,
		TOTAL_RAISED = TOTAL_RAISED + $3,
		STATUS = CASE WHEN TOTAL_RAISED + $3 >= GOAL THEN 'ended' ELSE STATUS END,
		LAST_UPDATED = now()
	WHERE TOKEN_ID = $1;`

// LaunchpadRepository represents a postgres repository for launchpad campaigns
type LaunchpadRepository struct {
	pool *pgxpool.Pool
}

// NewLaunchpadRepository creates a new LaunchpadRepository
func NewLaunchpadRepository(pool *pgxpool.Pool) *LaunchpadRepository {
	return &LaunchpadRepository{pool: pool}
}

// GetByToken retrieves the campaign backing the given collection
func (l *LaunchpadRepository) GetByToken(pCtx context.Context, pTokenID persist.TokenID) (persist.Launchpad, error) {
	var lp persist.Launchpad
	err := l.pool.QueryRow(pCtx, launchpadGetByTokenQuery, pTokenID).Scan(
		&lp.ID, &lp.TokenID, &lp.Name, &lp.Price, &lp.Goal, &lp.Participants, &lp.Minted, &lp.TotalRaised,
		&lp.Status, &lp.CreationTime, &lp.LastUpdated,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return persist.Launchpad{}, persist.ErrLaunchpadNotFound{TokenID: pTokenID}
		}
		return persist.Launchpad{}, err
	}
	return lp, nil
}

// RecordMint atomically applies a completed mint to the campaign counters and
// flips the campaign to ended once the raise goal is reached
func (l *LaunchpadRepository) RecordMint(pCtx context.Context, pTokenID persist.TokenID, pMinted int64, pRaised int64) error {
	res, err := l.pool.Exec(pCtx, launchpadRecordMintQuery, pTokenID, pMinted, pRaised)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return persist.ErrLaunchpadNotFound{TokenID: pTokenID}
	}
	return nil
}
