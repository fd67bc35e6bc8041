package wallet

import (
	"net/http"
	"sync"
	"testing"

	"wallet-api/test/integration/testenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferIdempotentReplay(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	from := testenv.CreateWallet(t, router, "1000.00")
	to := testenv.CreateWallet(t, router, "500.00")

	first := testenv.Transfer(t, router, from, to, "100.00", "replay-key")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	firstTx := testenv.Decode(t, first)["transaction"].(map[string]interface{})

	// Five sequential replays: OK status, same persisted row every time.
	for i := 0; i < 5; i++ {
		resp := testenv.Transfer(t, router, from, to, "100.00", "replay-key")
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		body := testenv.Decode(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, true, body["isIdempotent"])

		tx := body["transaction"].(map[string]interface{})
		assert.Equal(t, firstTx["id"], tx["id"])
		assert.Equal(t, firstTx["created_at"], tx["created_at"])
		assert.Equal(t, firstTx["amount"], tx["amount"])
	}

	// Funds moved exactly once.
	assert.Equal(t, "900.00", testenv.GetWalletBalance(t, router, from))
	assert.Equal(t, "600.00", testenv.GetWalletBalance(t, router, to))

	txResp := testenv.DoJSON(t, router, "GET", "/wallets/"+from+"/transactions", nil)
	require.Equal(t, http.StatusOK, txResp.Code)
	assert.Len(t, testenv.Decode(t, txResp)["transactions"].([]interface{}), 1)
}

func TestTransferDuplicateSubmissionsConcurrent(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	from := testenv.CreateWallet(t, router, "1000.00")
	to := testenv.CreateWallet(t, router, "500.00")

	const n = 10
	var wg sync.WaitGroup
	codes := make([]int, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			resp := testenv.Transfer(t, router, from, to, "100.00", "dup-key")
			codes[i] = resp.Code
		}(i)
	}
	wg.Wait()

	// Exactly one Created, the rest replay as OK.
	created := 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusOK:
		default:
			t.Fatalf("unexpected status code %d", code)
		}
	}
	assert.Equal(t, 1, created)

	assert.Equal(t, "900.00", testenv.GetWalletBalance(t, router, from))
	assert.Equal(t, "600.00", testenv.GetWalletBalance(t, router, to))

	// One log, one ledger pair for the key.
	txResp := testenv.DoJSON(t, router, "GET", "/wallets/"+from+"/transactions", nil)
	require.Equal(t, http.StatusOK, txResp.Code)
	assert.Len(t, testenv.Decode(t, txResp)["transactions"].([]interface{}), 1)

	ledgerResp := testenv.DoJSON(t, router, "GET", "/wallets/"+from+"/ledger", nil)
	require.Equal(t, http.StatusOK, ledgerResp.Code)
	assert.Len(t, testenv.Decode(t, ledgerResp)["ledger"].([]interface{}), 1)
}
