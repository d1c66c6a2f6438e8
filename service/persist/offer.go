package persist

import (
	"context"
	"fmt"
	"time"
)

const (
	// OfferStatusPending is an offer awaiting custody verification
	OfferStatusPending OfferStatus = "pending"
	// OfferStatusActive is a verified, purchasable offer
	OfferStatusActive OfferStatus = "active"
	// OfferStatusSettling is an offer whose buy is mid-flight; the intent is
	// recorded before the first ledger leg so a crash leaves a visible marker
	OfferStatusSettling OfferStatus = "settling"
	// OfferStatusReconciliation is an offer whose NFT left custody but whose
	// payment split failed; the ledger and the record store disagree until
	// someone reconciles them by hand
	OfferStatusReconciliation OfferStatus = "reconciliation"
	// OfferStatusInactive is a delisted or settled offer
	OfferStatusInactive OfferStatus = "inactive"
	// OfferStatusSold is an offer that was bought
	OfferStatusSold OfferStatus = "sold"
)

const (
	// OfferStepCreated is the pre-verification step of the listing flow
	OfferStepCreated OfferStep = 1
	// OfferStepListed means custody transfer has been verified on-ledger
	OfferStepListed OfferStep = 2
)

// OfferStatus is the lifecycle status of an offer
type OfferStatus string

// OfferStep is the listing-flow step an offer has reached
type OfferStep int64

// Offer represents a marketplace listing of a single NFT unit. The ledger,
// not this record, is authoritative for custody; the record only caches
// whether a serial is currently listed.
type Offer struct {
	ID           DBID            `json:"id"`
	CreationTime CreationTime    `json:"created_at"`
	LastUpdated  LastUpdatedTime `json:"last_updated"`

	NFT    NFTIdentifiers `json:"nft"`
	Seller AccountID      `json:"seller"`
	Buyer  AccountID      `json:"buyer,omitempty"`
	Price  NullString     `json:"price"`
	Status OfferStatus    `json:"status"`
	Step   OfferStep      `json:"listed_step"`
	MemoID NullString     `json:"memo_id"`
	SoldAt *time.Time     `json:"sold_at,omitempty"`
}

// OfferRepository represents the offer store contract consumed by the market
type OfferRepository interface {
	Create(context.Context, Offer) (DBID, error)
	GetActive(context.Context, NFTIdentifiers) (Offer, error)
	GetActiveForSeller(context.Context, NFTIdentifiers, AccountID) (Offer, error)
	ExistsListedWithMemo(context.Context, NullString) (bool, error)
	PromoteToListed(context.Context, NFTIdentifiers, AccountID, NullString) error
	BeginSettlement(context.Context, DBID, AccountID) error
	ReleaseSettlement(context.Context, DBID) error
	MarkReconciliation(context.Context, DBID) error
	MarkSold(context.Context, DBID) error
	MarkInactive(context.Context, DBID) error
}

// ErrOfferNotFound is returned when no matching active offer exists
type ErrOfferNotFound struct {
	NFT    NFTIdentifiers
	Seller AccountID
}

func (e ErrOfferNotFound) Error() string {
	if e.Seller != "" {
		return fmt.Sprintf("no active offer found for %s by seller %s", e.NFT, e.Seller)
	}
	return fmt.Sprintf("no active offer found for %s", e.NFT)
}

// ErrOfferNotUpdated is returned when a scoped offer update matched no row
type ErrOfferNotUpdated struct {
	NFT    NFTIdentifiers
	Seller AccountID
}

func (e ErrOfferNotUpdated) Error() string {
	return fmt.Sprintf("no offer row updated for %s by seller %s", e.NFT, e.Seller)
}

// ErrSettlementConflict is returned when an offer could not move to the
// expected settlement state, usually because a concurrent buy got there first
type ErrSettlementConflict struct {
	ID DBID
}

func (e ErrSettlementConflict) Error() string {
	return fmt.Sprintf("offer %s is not in a settleable state", e.ID)
}
