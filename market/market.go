package market

import (
	"context"
	"errors"

	"github.com/kawilabs/go-kawi/service/persist"
)

// sellerSharePercent is the seller's cut of a sale; the custody account keeps
// the rest as the marketplace fee.
const sellerSharePercent = 95

// paymentScanWindow bounds how far back the settlement engine looks through a
// buyer's transfer history.
const paymentScanWindow = 10

var (
	// ErrNoValidPayment means no recent buyer transaction matched the offer's amount and memo
	ErrNoValidPayment = errors.New("no valid payment found (amount or memo does not match the offer)")
	// ErrNotInCustody means the NFT unit is not currently held by the marketplace
	ErrNotInCustody = errors.New("nft is not in marketplace custody")
	// ErrNoTransferHistory means the NFT unit has no recorded transactions
	ErrNoTransferHistory = errors.New("no transactions found for this nft")
	// ErrTransferShape means the last transfer is not user -> marketplace as claimed
	ErrTransferShape = errors.New("last transfer does not match owner -> marketplace")
	// ErrMemoMismatch means the on-chain memo does not equal the offer's stored ciphertext
	ErrMemoMismatch = errors.New("transaction memo does not match the offer memo")
	// ErrInvalidMemo means the memo does not decrypt to a generated listing code
	ErrInvalidMemo = errors.New("transaction memo is not a valid listing code")
)

// Ledger is the subset of ledger operations the market needs
type Ledger interface {
	Custody() persist.AccountID
	TransferNFT(ctx context.Context, nft persist.NFTIdentifiers, from, to persist.AccountID) (string, error)
	SplitPayment(ctx context.Context, seller persist.AccountID, total, sellerAmount, fee int64) (string, error)
}

// SplitSale divides a sale total between the seller and the marketplace fee.
// The remainder of the integer division goes to the fee side so that
// seller + fee always equals the total exactly. The split is computed on the
// quotient and remainder separately to stay within int64 for any total.
func SplitSale(total int64) (sellerAmount, fee int64) {
	sellerAmount = total/100*sellerSharePercent + total%100*sellerSharePercent/100
	fee = total - sellerAmount
	return sellerAmount, fee
}
