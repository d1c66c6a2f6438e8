package ledger

import (
	"context"
	"fmt"
	"time"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/kawilabs/go-kawi/env"
	"github.com/kawilabs/go-kawi/service/logger"
	"github.com/kawilabs/go-kawi/service/persist"
	"golang.org/x/time/rate"
)

// TinybarPerHbar is the smallest-unit scale of the ledger currency
const TinybarPerHbar = 100_000_000

// Client wraps the hedera SDK with the operations the marketplace needs.
// It is constructed once at process start and shared read-only thereafter;
// batch submissions flow through a token bucket instead of fixed sleeps so
// throughput adapts to the network's rate limits.
type Client struct {
	sdk         *hedera.Client
	operatorID  hedera.AccountID
	operatorKey hedera.PrivateKey
	limiter     *rate.Limiter
}

// Key is an opaque signing key handed back from collection creation
type Key struct {
	pk hedera.PrivateKey
}

// Raw returns the raw string form of the key
func (k Key) Raw() string {
	return k.pk.StringRaw()
}

// CollectionParams are the inputs to CreateCollection
type CollectionParams struct {
	Name           string
	Symbol         string
	MaxSupply      int64
	CollectionMemo string
}

// NewClient constructs a ledger client from the environment: network name,
// operator (custody) account and its private key.
func NewClient() (*Client, error) {
	network := env.GetString("HEDERA_NETWORK")
	sdk, err := hedera.ClientForName(network)
	if err != nil {
		return nil, fmt.Errorf("invalid hedera network %q: %w", network, err)
	}

	operatorID, err := hedera.AccountIDFromString(env.MustGetString("MARKETPLACE_OPERATOR_ID"))
	if err != nil {
		return nil, fmt.Errorf("invalid operator account id: %w", err)
	}
	operatorKey, err := hedera.PrivateKeyFromString(env.MustGetString("MARKETPLACE_OPERATOR_PK"))
	if err != nil {
		return nil, fmt.Errorf("invalid operator key: %w", err)
	}

	sdk.SetOperator(operatorID, operatorKey)

	interval := time.Duration(env.GetInt("HEDERA_BATCH_INTERVAL_MS")) * time.Millisecond
	if interval <= 0 {
		interval = 2 * time.Second
	}

	return &Client{
		sdk:         sdk,
		operatorID:  operatorID,
		operatorKey: operatorKey,
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

// Custody returns the marketplace custody (operator) account id
func (c *Client) Custody() persist.AccountID {
	return persist.AccountID(c.operatorID.String())
}

// TransferNFT moves a single NFT unit between accounts and waits for consensus
func (c *Client) TransferNFT(ctx context.Context, nft persist.NFTIdentifiers, from, to persist.AccountID) (string, error) {
	tokenID, err := hedera.TokenIDFromString(nft.TokenID.String())
	if err != nil {
		return "", err
	}
	sender, err := hedera.AccountIDFromString(from.String())
	if err != nil {
		return "", err
	}
	receiver, err := hedera.AccountIDFromString(to.String())
	if err != nil {
		return "", err
	}

	tx, err := hedera.NewTransferTransaction().
		AddNftTransfer(hedera.NftID{TokenID: tokenID, SerialNumber: nft.SerialNumber}, sender, receiver).
		FreezeWith(c.sdk)
	if err != nil {
		return "", err
	}

	return c.execute(ctx, tx.Sign(c.operatorKey), fmt.Sprintf("nft transfer %s %s->%s", nft, from, to))
}

// TransferNFTBatch moves several serials of one collection in a single
// transaction. Submissions wait on the client's rate limiter.
func (c *Client) TransferNFTBatch(ctx context.Context, token persist.TokenID, serials []int64, from, to persist.AccountID) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	tokenID, err := hedera.TokenIDFromString(token.String())
	if err != nil {
		return "", err
	}
	sender, err := hedera.AccountIDFromString(from.String())
	if err != nil {
		return "", err
	}
	receiver, err := hedera.AccountIDFromString(to.String())
	if err != nil {
		return "", err
	}

	tx := hedera.NewTransferTransaction()
	for _, serial := range serials {
		tx.AddNftTransfer(hedera.NftID{TokenID: tokenID, SerialNumber: serial}, sender, receiver)
	}

	frozen, err := tx.FreezeWith(c.sdk)
	if err != nil {
		return "", err
	}

	return c.execute(ctx, frozen.Sign(c.operatorKey), fmt.Sprintf("nft batch transfer %s x%d %s->%s", token, len(serials), from, to))
}

// SplitPayment debits the custody account the full sale amount and credits
// the seller and the custody fee leg in one multi-leg transaction.
func (c *Client) SplitPayment(ctx context.Context, seller persist.AccountID, total, sellerAmount, fee int64) (string, error) {
	sellerID, err := hedera.AccountIDFromString(seller.String())
	if err != nil {
		return "", err
	}

	tx, err := hedera.NewTransferTransaction().
		AddHbarTransfer(c.operatorID, hedera.HbarFromTinybar(-total)).
		AddHbarTransfer(sellerID, hedera.HbarFromTinybar(sellerAmount)).
		AddHbarTransfer(c.operatorID, hedera.HbarFromTinybar(fee)).
		FreezeWith(c.sdk)
	if err != nil {
		return "", err
	}

	return c.execute(ctx, tx.Sign(c.operatorKey), fmt.Sprintf("payment split %d/%d to %s", sellerAmount, fee, seller))
}

// CreateCollection creates a finite non-fungible token with the custody
// account as treasury and returns its id along with the generated supply key.
func (c *Client) CreateCollection(ctx context.Context, params CollectionParams) (persist.TokenID, Key, error) {
	supplyKey, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		return "", Key{}, err
	}

	tx, err := hedera.NewTokenCreateTransaction().
		SetTokenName(params.Name).
		SetTokenSymbol(params.Symbol).
		SetTokenType(hedera.TokenTypeNonFungibleUnique).
		SetDecimals(0).
		SetInitialSupply(0).
		SetTreasuryAccountID(c.operatorID).
		SetSupplyType(hedera.TokenSupplyTypeFinite).
		SetMaxSupply(params.MaxSupply).
		SetSupplyKey(supplyKey.PublicKey()).
		SetTokenMemo(params.CollectionMemo).
		SetMaxTransactionFee(hedera.NewHbar(5)).
		FreezeWith(c.sdk)
	if err != nil {
		return "", Key{}, err
	}

	resp, err := tx.Sign(supplyKey).Sign(c.operatorKey).Execute(c.sdk)
	if err != nil {
		return "", Key{}, err
	}

	receipt, err := resp.GetReceipt(c.sdk)
	if err != nil {
		return "", Key{}, err
	}
	if receipt.TokenID == nil {
		return "", Key{}, fmt.Errorf("token creation returned no token id")
	}

	logger.For(ctx).Infof("created collection %s (%s)", receipt.TokenID, params.Name)
	return persist.TokenID(receipt.TokenID.String()), Key{pk: supplyKey}, nil
}

// MintBatch mints one NFT per metadata entry and returns the assigned
// serials. Submissions wait on the client's rate limiter.
func (c *Client) MintBatch(ctx context.Context, token persist.TokenID, metadatas [][]byte, supplyKey Key) ([]int64, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	tokenID, err := hedera.TokenIDFromString(token.String())
	if err != nil {
		return nil, "", err
	}

	tx, err := hedera.NewTokenMintTransaction().
		SetTokenID(tokenID).
		SetMetadatas(metadatas).
		SetMaxTransactionFee(hedera.NewHbar(2 * float64(len(metadatas)))).
		FreezeWith(c.sdk)
	if err != nil {
		return nil, "", err
	}

	resp, err := tx.Sign(supplyKey.pk).Execute(c.sdk)
	if err != nil {
		return nil, "", err
	}

	receipt, err := resp.GetReceipt(c.sdk)
	if err != nil {
		return nil, "", err
	}
	if receipt.Status != hedera.StatusSuccess {
		return nil, "", fmt.Errorf("mint batch failed with status %s", receipt.Status)
	}

	return receipt.SerialNumbers, resp.TransactionID.String(), nil
}

func (c *Client) execute(ctx context.Context, tx *hedera.TransferTransaction, desc string) (string, error) {
	resp, err := tx.Execute(c.sdk)
	if err != nil {
		return "", fmt.Errorf("%s: %w", desc, err)
	}

	receipt, err := resp.GetReceipt(c.sdk)
	if err != nil {
		return "", fmt.Errorf("%s: %w", desc, err)
	}
	if receipt.Status != hedera.StatusSuccess {
		return "", fmt.Errorf("%s: transaction %s failed with status %s", desc, resp.TransactionID, receipt.Status)
	}

	logger.For(ctx).Infof("%s confirmed (%s)", desc, resp.TransactionID)
	return resp.TransactionID.String(), nil
}
