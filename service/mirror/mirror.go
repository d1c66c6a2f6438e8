package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kawilabs/go-kawi/env"
	"github.com/kawilabs/go-kawi/service/logger"
	"github.com/kawilabs/go-kawi/service/persist"
	"github.com/kawilabs/go-kawi/util"
)

// TransactionTypeCryptoTransfer is the mirror node's name for a basic value transfer
const TransactionTypeCryptoTransfer = "CRYPTOTRANSFER"

// ResultSuccess is the mirror node's result string for a successful transaction
const ResultSuccess = "SUCCESS"

const nftPageLimit = 100

// NFTInfo is the current state of a single NFT unit
type NFTInfo struct {
	AccountID    persist.AccountID `json:"account_id"`
	TokenID      persist.TokenID   `json:"token_id"`
	SerialNumber int64             `json:"serial_number"`
	Deleted      bool              `json:"deleted"`
}

// Transaction is one row of an NFT unit's transfer history
type Transaction struct {
	TransactionID      string            `json:"transaction_id"`
	Type               string            `json:"type"`
	SenderAccountID    persist.AccountID `json:"sender_account_id"`
	ReceiverAccountID  persist.AccountID `json:"receiver_account_id"`
	ConsensusTimestamp string            `json:"consensus_timestamp"`
}

// Transfer is a single value-transfer leg of a transaction
type Transfer struct {
	Account persist.AccountID `json:"account"`
	Amount  int64             `json:"amount"`
}

// TransactionDetail is the full record of a transaction, including its memo
type TransactionDetail struct {
	TransactionID string     `json:"transaction_id"`
	Name          string     `json:"name"`
	Result        string     `json:"result"`
	MemoBase64    string     `json:"memo_base64"`
	Transfers     []Transfer `json:"transfers"`
}

type nftsResponse struct {
	NFTs  []NFTInfo `json:"nfts"`
	Links pageLinks `json:"links"`
}

type pageLinks struct {
	Next string `json:"next"`
}

type nftTransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

type transactionsResponse struct {
	Transactions []TransactionDetail `json:"transactions"`
}

// Client is a read-only client for the hedera mirror node REST API.
// Any non-2xx answer surfaces as an error; callers must treat "can't
// confirm" as "not verified", never as "verified".
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a mirror node client from the MIRROR_NODE_URL environment variable
func NewClient(httpClient *http.Client) *Client {
	baseURL := env.GetString("MIRROR_NODE_URL")
	if baseURL == "" {
		panic("no mirror node url set")
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// NewClientWithURL creates a mirror node client against an explicit base URL
func NewClientWithURL(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// AccountNFTs returns every serial of the given collection held by the given
// account, following pagination until exhausted. Order is as returned by the
// service; callers treat the result as an unordered set.
func (c *Client) AccountNFTs(ctx context.Context, accountID persist.AccountID, tokenID persist.TokenID) ([]int64, error) {
	serials := []int64{}
	next := fmt.Sprintf("/api/v1/accounts/%s/nfts?token.id=%s&limit=%d", accountID, url.QueryEscape(tokenID.String()), nftPageLimit)

	for next != "" {
		var page nftsResponse
		if err := c.get(ctx, next, &page); err != nil {
			return nil, err
		}
		for _, nft := range page.NFTs {
			serials = append(serials, nft.SerialNumber)
		}
		next = page.Links.Next
	}

	logger.For(ctx).Debugf("account %s holds %d serials of %s", accountID, len(serials), tokenID)
	return serials, nil
}

// NFTInfo returns the current state of a single NFT unit, including its on-ledger owner
func (c *Client) NFTInfo(ctx context.Context, nft persist.NFTIdentifiers) (NFTInfo, error) {
	var info NFTInfo
	path := fmt.Sprintf("/api/v1/tokens/%s/nfts/%d", nft.TokenID, nft.SerialNumber)
	if err := c.get(ctx, path, &info); err != nil {
		return NFTInfo{}, err
	}
	return info, nil
}

// LastTransfer returns the most recent transaction touching the given NFT
// unit, or false when the unit has no history.
func (c *Client) LastTransfer(ctx context.Context, nft persist.NFTIdentifiers) (Transaction, bool, error) {
	var history nftTransactionsResponse
	path := fmt.Sprintf("/api/v1/tokens/%s/nfts/%d/transactions?order=desc&limit=1", nft.TokenID, nft.SerialNumber)
	if err := c.get(ctx, path, &history); err != nil {
		return Transaction{}, false, err
	}
	if len(history.Transactions) == 0 {
		return Transaction{}, false, nil
	}
	return history.Transactions[0], true, nil
}

// TransactionDetail returns the full record of a transaction by its id
func (c *Client) TransactionDetail(ctx context.Context, transactionID string) (TransactionDetail, error) {
	var resp transactionsResponse
	path := fmt.Sprintf("/api/v1/transactions/%s", url.PathEscape(transactionID))
	if err := c.get(ctx, path, &resp); err != nil {
		return TransactionDetail{}, err
	}
	if len(resp.Transactions) == 0 {
		return TransactionDetail{}, fmt.Errorf("no detail found for transaction %s", transactionID)
	}
	return resp.Transactions[0], nil
}

// AccountTransactions returns the account's most recent value transfers,
// most-recent-first, bounded by limit.
func (c *Client) AccountTransactions(ctx context.Context, accountID persist.AccountID, limit int) ([]TransactionDetail, error) {
	var resp transactionsResponse
	path := fmt.Sprintf("/api/v1/accounts/%s?transactiontype=cryptotransfer&limit=%s&order=desc", accountID, strconv.Itoa(limit))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mirror node request failed for %s: %w", path, util.GetErrFromResp(resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode mirror node response: %w (%s)", err, path)
	}
	return nil
}
