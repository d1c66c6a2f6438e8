package market

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/kawilabs/go-kawi/service/crypt"
	"github.com/kawilabs/go-kawi/service/logger"
	"github.com/kawilabs/go-kawi/service/mirror"
	"github.com/kawilabs/go-kawi/service/persist"
)

// Verifier validates that a claimed custody transfer of an NFT unit actually
// happened on the ledger. It never trusts the local record store: custody is
// re-derived from mirror node history on every call, and a mirror failure is
// a verification failure, not a pass.
type Verifier struct {
	mirror  *mirror.Client
	codec   *crypt.Codec
	custody persist.AccountID
}

// Verification is the evidence gathered for an accepted custody transfer
type Verification struct {
	CurrentOwner  persist.AccountID
	LastTransfer  mirror.Transaction
	DecryptedMemo string
}

// NewVerifier creates a Verifier for the given custody account
func NewVerifier(mirrorClient *mirror.Client, codec *crypt.Codec, custody persist.AccountID) *Verifier {
	return &Verifier{mirror: mirrorClient, codec: codec, custody: custody}
}

// VerifyCustodyTransfer checks that the most recent transfer of the NFT unit
// moved it from previousOwner into marketplace custody, carrying exactly the
// given memo ciphertext, and that the memo decrypts to a listing-code-shaped
// plaintext. The plaintext is deliberately not compared against a specific
// expected value: the ciphertext equality already scopes the transfer to one
// offer row, and the pattern check only rules out foreign memos.
func (v *Verifier) VerifyCustodyTransfer(ctx context.Context, nft persist.NFTIdentifiers, previousOwner persist.AccountID, memoCiphertext string) (Verification, error) {
	info, err := v.mirror.NFTInfo(ctx, nft)
	if err != nil {
		return Verification{}, fmt.Errorf("could not fetch nft info: %w", err)
	}

	lastTx, found, err := v.mirror.LastTransfer(ctx, nft)
	if err != nil {
		return Verification{}, fmt.Errorf("could not fetch nft transfer history: %w", err)
	}
	if !found {
		return Verification{}, ErrNoTransferHistory
	}

	if lastTx.Type != mirror.TransactionTypeCryptoTransfer ||
		lastTx.ReceiverAccountID != v.custody ||
		lastTx.SenderAccountID != previousOwner {
		return Verification{}, ErrTransferShape
	}

	detail, err := v.mirror.TransactionDetail(ctx, lastTx.TransactionID)
	if err != nil {
		return Verification{}, fmt.Errorf("could not fetch transaction detail: %w", err)
	}

	onChainMemo, err := base64.StdEncoding.DecodeString(detail.MemoBase64)
	if err != nil {
		return Verification{}, fmt.Errorf("%w: undecodable memo", ErrMemoMismatch)
	}
	if string(onChainMemo) != memoCiphertext {
		return Verification{}, ErrMemoMismatch
	}

	decrypted, err := v.codec.Decrypt(string(onChainMemo))
	if err != nil {
		return Verification{}, fmt.Errorf("%w: %s", ErrInvalidMemo, err)
	}
	if !crypt.IsValidCode(decrypted) {
		return Verification{}, ErrInvalidMemo
	}

	if info.AccountID != v.custody {
		return Verification{}, ErrNotInCustody
	}

	logger.For(ctx).Infof("verified custody transfer of %s from %s (tx %s)", nft, previousOwner, lastTx.TransactionID)

	return Verification{
		CurrentOwner:  info.AccountID,
		LastTransfer:  lastTx,
		DecryptedMemo: decrypted,
	}, nil
}
