package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/kawilabs/go-kawi/service/persist"
)

// OfferRepository represents a postgres repository for marketplace offers
type OfferRepository struct {
	db                       *sql.DB
	createStmt               *sql.Stmt
	getActiveStmt            *sql.Stmt
	getActiveForSellerStmt   *sql.Stmt
	existsListedWithMemoStmt *sql.Stmt
	promoteToListedStmt      *sql.Stmt
	beginSettlementStmt      *sql.Stmt
	releaseSettlementStmt    *sql.Stmt
	markReconciliationStmt   *sql.Stmt
	markSoldStmt             *sql.Stmt
	markInactiveStmt         *sql.Stmt
}

// NewOfferRepository creates a new OfferRepository
func NewOfferRepository(db *sql.DB) *OfferRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	createStmt, err := db.PrepareContext(ctx, `INSERT INTO offers (ID,TOKEN_ID,SERIAL_NUMBER,SELLER,PRICE,STATUS,LISTED_STEP,MEMO_ID,CREATED_AT,LAST_UPDATED) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING ID;`)
	checkNoErr(err)

	getActiveStmt, err := db.PrepareContext(ctx, `SELECT ID,TOKEN_ID,SERIAL_NUMBER,SELLER,BUYER,PRICE,STATUS,LISTED_STEP,MEMO_ID,SOLD_AT,CREATED_AT,LAST_UPDATED FROM offers WHERE TOKEN_ID = $1 AND SERIAL_NUMBER = $2 AND STATUS = 'active' AND LISTED_STEP = 2;`)
	checkNoErr(err)

	getActiveForSellerStmt, err := db.PrepareContext(ctx, `SELECT ID,TOKEN_ID,SERIAL_NUMBER,SELLER,BUYER,PRICE,STATUS,LISTED_STEP,MEMO_ID,SOLD_AT,CREATED_AT,LAST_UPDATED FROM offers WHERE TOKEN_ID = $1 AND SERIAL_NUMBER = $2 AND SELLER = $3 AND STATUS = 'active' AND LISTED_STEP = 2;`)
	checkNoErr(err)

	existsListedWithMemoStmt, err := db.PrepareContext(ctx, `SELECT EXISTS(SELECT 1 FROM offers WHERE MEMO_ID = $1 AND LISTED_STEP = 2);`)
	checkNoErr(err)

	promoteToListedStmt, err := db.PrepareContext(ctx, `UPDATE offers SET LISTED_STEP = 2, STATUS = 'active', LAST_UPDATED = now() WHERE TOKEN_ID = $1 AND SERIAL_NUMBER = $2 AND SELLER = $3 AND MEMO_ID = $4 AND LISTED_STEP = 1;`)
	checkNoErr(err)

	beginSettlementStmt, err := db.PrepareContext(ctx, `UPDATE offers SET STATUS = 'settling', BUYER = $2, LAST_UPDATED = now() WHERE ID = $1 AND STATUS = 'active';`)
	checkNoErr(err)

	releaseSettlementStmt, err := db.PrepareContext(ctx, `UPDATE offers SET STATUS = 'active', BUYER = NULL, LAST_UPDATED = now() WHERE ID = $1 AND STATUS = 'settling';`)
	checkNoErr(err)

	markReconciliationStmt, err := db.PrepareContext(ctx, `UPDATE offers SET STATUS = 'reconciliation', LAST_UPDATED = now() WHERE ID = $1 AND STATUS = 'settling';`)
	checkNoErr(err)

	markSoldStmt, err := db.PrepareContext(ctx, `UPDATE offers SET STATUS = 'sold', SOLD_AT = now(), LAST_UPDATED = now() WHERE ID = $1 AND STATUS = 'settling';`)
	checkNoErr(err)

	markInactiveStmt, err := db.PrepareContext(ctx, `UPDATE offers SET STATUS = 'inactive', LAST_UPDATED = now() WHERE ID = $1;`)
	checkNoErr(err)

	return &OfferRepository{
		db:                       db,
		createStmt:               createStmt,
		getActiveStmt:            getActiveStmt,
		getActiveForSellerStmt:   getActiveForSellerStmt,
		existsListedWithMemoStmt: existsListedWithMemoStmt,
		promoteToListedStmt:      promoteToListedStmt,
		beginSettlementStmt:      beginSettlementStmt,
		releaseSettlementStmt:    releaseSettlementStmt,
		markReconciliationStmt:   markReconciliationStmt,
		markSoldStmt:             markSoldStmt,
		markInactiveStmt:         markInactiveStmt,
	}
}

// Create inserts a new step-1 offer and returns its id
func (o *OfferRepository) Create(pCtx context.Context, pOffer persist.Offer) (persist.DBID, error) {
	var id persist.DBID
	err := o.createStmt.QueryRowContext(pCtx,
		persist.GenerateID(), pOffer.NFT.TokenID, pOffer.NFT.SerialNumber, pOffer.Seller, pOffer.Price,
		persist.OfferStatusPending, persist.OfferStepCreated, pOffer.MemoID, pOffer.CreationTime, pOffer.LastUpdated,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetActive retrieves the single active step-2 offer for an NFT unit
func (o *OfferRepository) GetActive(pCtx context.Context, pNFT persist.NFTIdentifiers) (persist.Offer, error) {
	offer, err := scanOffer(o.getActiveStmt.QueryRowContext(pCtx, pNFT.TokenID, pNFT.SerialNumber))
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.Offer{}, persist.ErrOfferNotFound{NFT: pNFT}
		}
		return persist.Offer{}, err
	}
	return offer, nil
}

// GetActiveForSeller retrieves the active step-2 offer created by the given seller
func (o *OfferRepository) GetActiveForSeller(pCtx context.Context, pNFT persist.NFTIdentifiers, pSeller persist.AccountID) (persist.Offer, error) {
	offer, err := scanOffer(o.getActiveForSellerStmt.QueryRowContext(pCtx, pNFT.TokenID, pNFT.SerialNumber, pSeller))
	if err != nil {
		if err == sql.ErrNoRows {
			return persist.Offer{}, persist.ErrOfferNotFound{NFT: pNFT, Seller: pSeller}
		}
		return persist.Offer{}, err
	}
	return offer, nil
}

// ExistsListedWithMemo reports whether any step-2 offer already carries the given memo
func (o *OfferRepository) ExistsListedWithMemo(pCtx context.Context, pMemoID persist.NullString) (bool, error) {
	var exists bool
	err := o.existsListedWithMemoStmt.QueryRowContext(pCtx, pMemoID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// PromoteToListed moves the offer scoped by (token, serial, seller, memo) from
// step 1 to step 2. Multiple matching rows are a data-integrity bug and are
// not handled defensively.
func (o *OfferRepository) PromoteToListed(pCtx context.Context, pNFT persist.NFTIdentifiers, pSeller persist.AccountID, pMemoID persist.NullString) error {
	res, err := o.promoteToListedStmt.ExecContext(pCtx, pNFT.TokenID, pNFT.SerialNumber, pSeller, pMemoID)
	if err != nil {
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return persist.ErrOfferNotUpdated{NFT: pNFT, Seller: pSeller}
	}
	return nil
}

// BeginSettlement records a settlement intent: the offer moves active →
// settling with the buyer attached. A concurrent buy of the same offer loses
// here, before any ledger submission.
func (o *OfferRepository) BeginSettlement(pCtx context.Context, pID persist.DBID, pBuyer persist.AccountID) error {
	return o.execSettlementStep(pCtx, o.beginSettlementStmt, pID, pBuyer)
}

// ReleaseSettlement rolls a settling offer back to active. Only valid before
// the first ledger leg has moved anything.
func (o *OfferRepository) ReleaseSettlement(pCtx context.Context, pID persist.DBID) error {
	return o.execSettlementStep(pCtx, o.releaseSettlementStmt, pID)
}

// MarkReconciliation flags a settling offer whose ledger legs diverged from
// the record store; the row stays in this terminal state until reconciled
// externally.
func (o *OfferRepository) MarkReconciliation(pCtx context.Context, pID persist.DBID) error {
	return o.execSettlementStep(pCtx, o.markReconciliationStmt, pID)
}

// MarkSold finalizes a settling offer with the sale timestamp
func (o *OfferRepository) MarkSold(pCtx context.Context, pID persist.DBID) error {
	return o.execSettlementStep(pCtx, o.markSoldStmt, pID)
}

func (o *OfferRepository) execSettlementStep(pCtx context.Context, stmt *sql.Stmt, pID persist.DBID, args ...interface{}) error {
	res, err := stmt.ExecContext(pCtx, append([]interface{}{pID}, args...)...)
	if err != nil {
		return err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return persist.ErrSettlementConflict{ID: pID}
	}
	return nil
}

// MarkInactive flips an offer to inactive
func (o *OfferRepository) MarkInactive(pCtx context.Context, pID persist.DBID) error {
	_, err := o.markInactiveStmt.ExecContext(pCtx, pID)
	return err
}

func scanOffer(row *sql.Row) (persist.Offer, error) {
	var offer persist.Offer
	var buyer sql.NullString
	var soldAt sql.NullTime
	err := row.Scan(&offer.ID, &offer.NFT.TokenID, &offer.NFT.SerialNumber, &offer.Seller, &buyer, &offer.Price,
		&offer.Status, &offer.Step, &offer.MemoID, &soldAt, &offer.CreationTime, &offer.LastUpdated)
	if err != nil {
		return persist.Offer{}, err
	}
	if buyer.Valid {
		offer.Buyer = persist.AccountID(buyer.String)
	}
	if soldAt.Valid {
		offer.SoldAt = &soldAt.Time
	}
	return offer, nil
}
