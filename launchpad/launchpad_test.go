package launchpad

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/kawilabs/go-kawi/service/mirror"
	"github.com/kawilabs/go-kawi/service/persist"
	"github.com/kawilabs/go-kawi/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCustody   = persist.AccountID("0.0.1000")
	testRecipient = persist.AccountID("0.0.4000")
	testToken     = persist.TokenID("0.0.5555")
)

var registerValidatorsOnce sync.Once

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registerValidatorsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validate.RegisterCustomValidators(v)
		}
	})
	return gin.New()
}

func newInventoryFixture(t *testing.T, serials []int64) *mirror.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nfts := make([]mirror.NFTInfo, len(serials))
		for i, s := range serials {
			nfts[i] = mirror.NFTInfo{AccountID: testCustody, TokenID: testToken, SerialNumber: s}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"nfts": nfts, "links": map[string]string{"next": ""}})
	}))
	t.Cleanup(srv.Close)
	return mirror.NewClientWithURL(srv.URL, srv.Client())
}

type fakeLaunchpadRepo struct {
	lp           persist.Launchpad
	getErr       error
	mintedAmount int64
	raisedDelta  int64
	recorded     bool
}

func (f *fakeLaunchpadRepo) GetByToken(context.Context, persist.TokenID) (persist.Launchpad, error) {
	return f.lp, f.getErr
}

func (f *fakeLaunchpadRepo) RecordMint(_ context.Context, _ persist.TokenID, amount, raised int64) error {
	f.recorded = true
	f.mintedAmount = amount
	f.raisedDelta = raised
	return nil
}

type fakeLedger struct {
	batches [][]int64
}

func (f *fakeLedger) Custody() persist.AccountID { return testCustody }

func (f *fakeLedger) TransferNFTBatch(_ context.Context, _ persist.TokenID, serials []int64, _, _ persist.AccountID) (string, error) {
	batch := append([]int64{}, serials...)
	f.batches = append(f.batches, batch)
	return "batch-tx", nil
}

func activeCampaign() persist.Launchpad {
	return persist.Launchpad{
		ID:      "2EfU1vL9XQmA0b3cD4eF5gH6iJ7",
		TokenID: testToken,
		Name:    "test drop",
		Price:   "2",
		Goal:    100_000_000_000,
		Status:  persist.LaunchpadStatusActive,
	}
}

func postMint(t *testing.T, router *gin.Engine, amount int64) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{
		"token_id":  testToken,
		"accountId": testRecipient.String(),
		"amount":    amount,
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/launchpad/mint", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMintNFTs(t *testing.T) {
	inventory := make([]int64, 30)
	for i := range inventory {
		inventory[i] = int64(i + 1)
	}

	t.Run("distributes in batches of ten", func(t *testing.T) {
		repo := &fakeLaunchpadRepo{lp: activeCampaign()}
		ldg := &fakeLedger{}
		mc := newInventoryFixture(t, inventory)

		router := newTestRouter(t)
		HandlersInit(router, repo, mc, ldg)

		w := postMint(t, router, 25)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var out mintOutput
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.True(t, out.Success)
		assert.Len(t, out.Serials, 25)
		assert.Equal(t, inventory[:25], out.Serials)

		require.Len(t, ldg.batches, 3)
		assert.Len(t, ldg.batches[0], 10)
		assert.Len(t, ldg.batches[1], 10)
		assert.Len(t, ldg.batches[2], 5)

		assert.True(t, repo.recorded)
		assert.Equal(t, int64(25), repo.mintedAmount)
		// 25 units at 2 hbar each
		assert.Equal(t, int64(25*2*100_000_000), repo.raisedDelta)
	})

	t.Run("fails before any transfer when inventory is short", func(t *testing.T) {
		repo := &fakeLaunchpadRepo{lp: activeCampaign()}
		ldg := &fakeLedger{}
		mc := newInventoryFixture(t, inventory[:5])

		router := newTestRouter(t)
		HandlersInit(router, repo, mc, ldg)

		w := postMint(t, router, 25)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, ldg.batches, "no transfers on insufficient inventory")
		assert.False(t, repo.recorded)
	})

	t.Run("rejects an ended campaign", func(t *testing.T) {
		lp := activeCampaign()
		lp.Status = persist.LaunchpadStatusEnded
		repo := &fakeLaunchpadRepo{lp: lp}
		ldg := &fakeLedger{}
		mc := newInventoryFixture(t, inventory)

		router := newTestRouter(t)
		HandlersInit(router, repo, mc, ldg)

		w := postMint(t, router, 1)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, ldg.batches)
	})

	t.Run("404 when no campaign exists for the token", func(t *testing.T) {
		repo := &fakeLaunchpadRepo{getErr: persist.ErrLaunchpadNotFound{TokenID: testToken}}
		ldg := &fakeLedger{}
		mc := newInventoryFixture(t, inventory)

		router := newTestRouter(t)
		HandlersInit(router, repo, mc, ldg)

		w := postMint(t, router, 1)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, ldg.batches)
	})
}
