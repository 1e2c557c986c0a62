//go:build integration

package integration

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payout struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type receipt struct {
	ID         string `json:"id"`
	StartIndex uint64 `json:"start_index"`
	Quantity   uint64 `json:"quantity"`
	Payouts    struct {
		Creator            payout `json:"creator"`
		FirstMinter        payout `json:"first_minter"`
		Referral           payout `json:"referral"`
		Platform           payout `json:"platform"`
		ReferralRedirected bool   `json:"referral_redirected"`
	} `json:"payouts"`
	Phase string `json:"phase"`
}

type collection struct {
	ID          string `json:"id"`
	Phase       string `json:"phase"`
	MintCounter uint64 `json:"mint_counter"`
	SecondsLeft int64  `json:"seconds_left"`
}

func randomAddress(t *testing.T) string {
	b := make([]byte, 20)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(b)
}

func postJSON(t *testing.T, path string, body interface{}) *http.Response {
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(BaseURL+path, "application/json", bytes.NewBuffer(payload))
	require.NoError(t, err)
	return resp
}

func TestMintAPI(t *testing.T) {
	creator := randomAddress(t)
	alice := randomAddress(t)
	bob := randomAddress(t)
	var col collection

	t.Run("Create Collection", func(t *testing.T) {
		resp := postJSON(t, "/collections", map[string]interface{}{
			"creator":           creator,
			"name":              "Integration Kitty",
			"description":       "Collection created by the integration suite",
			"price_wei":         "1000",
			"trigger_threshold": 3,
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&col))
		assert.NotEmpty(t, col.ID)
		assert.Equal(t, "unlimited", col.Phase)
	})

	t.Run("Mint With Referrer", func(t *testing.T) {
		resp := postJSON(t, "/collections/"+col.ID+"/mint", map[string]interface{}{
			"minter":   alice,
			"quantity": 1,
			"payment":  "1000",
			"referrer": bob,
		})
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var r receipt
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
		assert.Equal(t, uint64(1), r.StartIndex)
		assert.Equal(t, "500", r.Payouts.Creator.Amount)
		assert.Equal(t, "100", r.Payouts.FirstMinter.Amount)
		assert.Equal(t, bob, r.Payouts.Referral.Address)
		assert.Equal(t, "200", r.Payouts.Referral.Amount)
	})

	t.Run("Cross Trigger", func(t *testing.T) {
		resp := postJSON(t, "/collections/"+col.ID+"/mint", map[string]interface{}{
			"minter":   bob,
			"quantity": 2,
			"payment":  "2000",
		})
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, err := http.Get(fmt.Sprintf("%s/collections/%s", BaseURL, col.ID))
		require.NoError(t, err)
		defer resp.Body.Close()
		var got collection
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "timer_active", got.Phase)
		assert.Equal(t, uint64(3), got.MintCounter)
		assert.Greater(t, got.SecondsLeft, int64(0))
	})

	t.Run("Referral Attached On First Touch", func(t *testing.T) {
		resp, err := http.Get(BaseURL + "/referrals/" + alice)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var a struct {
			Referrer string `json:"referrer"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&a))
		assert.Equal(t, bob, a.Referrer)
	})

	t.Run("Creator Balance", func(t *testing.T) {
		resp, err := http.Get(BaseURL + "/balances/" + creator)
		require.NoError(t, err)
		defer resp.Body.Close()

		var b struct {
			AmountWei string `json:"amount_wei"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
		assert.Equal(t, "1500", b.AmountWei)
	})
}
