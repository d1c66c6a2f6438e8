package market

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kawilabs/go-kawi/service/crypt"
	"github.com/kawilabs/go-kawi/service/mirror"
	"github.com/kawilabs/go-kawi/service/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCustody = persist.AccountID("0.0.1000")
	testSeller  = persist.AccountID("0.0.2000")
	testBuyer   = persist.AccountID("0.0.3000")
)

var testNFT = persist.NFTIdentifiers{TokenID: "0.0.5555", SerialNumber: 7}

// ledgerState is the canned mirror node view served by newMirrorFixture
type ledgerState struct {
	owner      persist.AccountID
	lastTx     *mirror.Transaction
	memoBase64 string
}

func newMirrorFixture(t *testing.T, state ledgerState) *mirror.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/transactions") && strings.Contains(r.URL.Path, "/nfts/"):
			txs := []mirror.Transaction{}
			if state.lastTx != nil {
				txs = append(txs, *state.lastTx)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"transactions": txs})
		case strings.Contains(r.URL.Path, "/nfts/"):
			json.NewEncoder(w).Encode(mirror.NFTInfo{
				AccountID:    state.owner,
				TokenID:      testNFT.TokenID,
				SerialNumber: testNFT.SerialNumber,
			})
		case strings.HasPrefix(r.URL.Path, "/api/v1/transactions/"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"transactions": []mirror.TransactionDetail{{
					TransactionID: state.lastTx.TransactionID,
					Name:          "CRYPTOTRANSFER",
					Result:        mirror.ResultSuccess,
					MemoBase64:    state.memoBase64,
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return mirror.NewClientWithURL(srv.URL, srv.Client())
}

func custodyTransfer() *mirror.Transaction {
	return &mirror.Transaction{
		TransactionID:      "0.0.2000-1693526400-000000001",
		Type:               mirror.TransactionTypeCryptoTransfer,
		SenderAccountID:    testSeller,
		ReceiverAccountID:  testCustody,
		ConsensusTimestamp: "1693526400.000000001",
	}
}

func TestVerifyCustodyTransfer(t *testing.T) {
	codec := crypt.NewCodec("verifier-test-secret")

	code, err := crypt.GenerateCode()
	require.NoError(t, err)
	ciphertext, err := codec.Encrypt(code)
	require.NoError(t, err)
	memoBase64 := base64.StdEncoding.EncodeToString([]byte(ciphertext))

	t.Run("accepts a matching custody transfer", func(t *testing.T) {
		mc := newMirrorFixture(t, ledgerState{owner: testCustody, lastTx: custodyTransfer(), memoBase64: memoBase64})
		v := NewVerifier(mc, codec, testCustody)

		verification, err := v.VerifyCustodyTransfer(context.Background(), testNFT, testSeller, ciphertext)
		require.NoError(t, err)
		assert.Equal(t, testCustody, verification.CurrentOwner)
		assert.Equal(t, code, verification.DecryptedMemo)
		assert.Equal(t, custodyTransfer().TransactionID, verification.LastTransfer.TransactionID)
	})

	t.Run("rejects when the nft is not in custody", func(t *testing.T) {
		mc := newMirrorFixture(t, ledgerState{owner: testSeller, lastTx: custodyTransfer(), memoBase64: memoBase64})
		v := NewVerifier(mc, codec, testCustody)

		_, err := v.VerifyCustodyTransfer(context.Background(), testNFT, testSeller, ciphertext)
		assert.ErrorIs(t, err, ErrNotInCustody)
	})

	t.Run("rejects when the nft has no transfer history", func(t *testing.T) {
		mc := newMirrorFixture(t, ledgerState{owner: testCustody, lastTx: nil})
		v := NewVerifier(mc, codec, testCustody)

		_, err := v.VerifyCustodyTransfer(context.Background(), testNFT, testSeller, ciphertext)
		assert.ErrorIs(t, err, ErrNoTransferHistory)
	})

	t.Run("rejects a transfer from the wrong sender", func(t *testing.T) {
		tx := custodyTransfer()
		tx.SenderAccountID = testBuyer
		mc := newMirrorFixture(t, ledgerState{owner: testCustody, lastTx: tx, memoBase64: memoBase64})
		v := NewVerifier(mc, codec, testCustody)

		_, err := v.VerifyCustodyTransfer(context.Background(), testNFT, testSeller, ciphertext)
		assert.ErrorIs(t, err, ErrTransferShape)
	})

	t.Run("rejects a transfer to somewhere other than custody", func(t *testing.T) {
		tx := custodyTransfer()
		tx.ReceiverAccountID = testBuyer
		mc := newMirrorFixture(t, ledgerState{owner: testCustody, lastTx: tx, memoBase64: memoBase64})
		v := NewVerifier(mc, codec, testCustody)

		_, err := v.VerifyCustodyTransfer(context.Background(), testNFT, testSeller, ciphertext)
		assert.ErrorIs(t, err, ErrTransferShape)
	})

	t.Run("rejects a non-transfer transaction type", func(t *testing.T) {
		tx := custodyTransfer()
		tx.Type = "TOKENMINT"
		mc := newMirrorFixture(t, ledgerState{owner: testCustody, lastTx: tx, memoBase64: memoBase64})
		v := NewVerifier(mc, codec, testCustody)

		_, err := v.VerifyCustodyTransfer(context.Background(), testNFT, testSeller, ciphertext)
		assert.ErrorIs(t, err, ErrTransferShape)
	})

	t.Run("rejects when the on-chain memo differs from the stored one", func(t *testing.T) {
		otherCiphertext, err := codec.Encrypt(code)
		require.NoError(t, err)
		require.NotEqual(t, ciphertext, otherCiphertext)

		mc := newMirrorFixture(t, ledgerState{
			owner:      testCustody,
			lastTx:     custodyTransfer(),
			memoBase64: base64.StdEncoding.EncodeToString([]byte(otherCiphertext)),
		})
		v := NewVerifier(mc, codec, testCustody)

		_, err = v.VerifyCustodyTransfer(context.Background(), testNFT, testSeller, ciphertext)
		assert.ErrorIs(t, err, ErrMemoMismatch)
	})

	t.Run("rejects a memo that is not a listing code", func(t *testing.T) {
		garbage := "bm90LWEtcmVhbC1jaXBoZXJ0ZXh0LWF0LWFsbA"
		mc := newMirrorFixture(t, ledgerState{
			owner:      testCustody,
			lastTx:     custodyTransfer(),
			memoBase64: base64.StdEncoding.EncodeToString([]byte(garbage)),
		})
		v := NewVerifier(mc, codec, testCustody)

		_, err := v.VerifyCustodyTransfer(context.Background(), testNFT, testSeller, garbage)
		assert.ErrorIs(t, err, ErrInvalidMemo)
	})
}
