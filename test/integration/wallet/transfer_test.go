package wallet

import (
	"net/http"
	"testing"

	"wallet-api/test/integration/testenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	from := testenv.CreateWallet(t, router, "1000.00")
	to := testenv.CreateWallet(t, router, "500.00")

	resp := testenv.Transfer(t, router, from, to, "100.00", "k1")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	body := testenv.Decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["isIdempotent"])

	tx := body["transaction"].(map[string]interface{})
	assert.Equal(t, "COMPLETED", tx["status"])
	assert.Equal(t, "100.00", tx["amount"])

	assert.Equal(t, "900.00", testenv.GetWalletBalance(t, router, from))
	assert.Equal(t, "600.00", testenv.GetWalletBalance(t, router, to))

	// Ledger shows one DEBIT on the source and one CREDIT on the
	// destination, both referencing the same transaction log.
	ledgerResp := testenv.DoJSON(t, router, "GET", "/wallets/"+from+"/ledger", nil)
	require.Equal(t, http.StatusOK, ledgerResp.Code)
	fromEntries := testenv.Decode(t, ledgerResp)["ledger"].([]interface{})
	require.Len(t, fromEntries, 1)
	debit := fromEntries[0].(map[string]interface{})
	assert.Equal(t, "DEBIT", debit["entry_type"])
	assert.Equal(t, "1000.00", debit["balance_before"])
	assert.Equal(t, "900.00", debit["balance_after"])
	assert.Equal(t, tx["id"], debit["transaction_log_id"])

	ledgerResp = testenv.DoJSON(t, router, "GET", "/wallets/"+to+"/ledger", nil)
	require.Equal(t, http.StatusOK, ledgerResp.Code)
	toEntries := testenv.Decode(t, ledgerResp)["ledger"].([]interface{})
	require.Len(t, toEntries, 1)
	credit := toEntries[0].(map[string]interface{})
	assert.Equal(t, "CREDIT", credit["entry_type"])
	assert.Equal(t, "500.00", credit["balance_before"])
	assert.Equal(t, "600.00", credit["balance_after"])
	assert.Equal(t, tx["id"], credit["transaction_log_id"])
}

func TestTransferInsufficientFunds(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	from := testenv.CreateWallet(t, router, "10.00")
	to := testenv.CreateWallet(t, router, "0.00")

	resp := testenv.Transfer(t, router, from, to, "50.00", "k2")
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	// Balances untouched, no ledger rows, one FAILED log.
	assert.Equal(t, "10.00", testenv.GetWalletBalance(t, router, from))
	assert.Equal(t, "0.00", testenv.GetWalletBalance(t, router, to))

	ledgerResp := testenv.DoJSON(t, router, "GET", "/wallets/"+from+"/ledger", nil)
	require.Equal(t, http.StatusOK, ledgerResp.Code)
	assert.Empty(t, testenv.Decode(t, ledgerResp)["ledger"])

	txResp := testenv.DoJSON(t, router, "GET", "/wallets/"+from+"/transactions", nil)
	require.Equal(t, http.StatusOK, txResp.Code)
	logs := testenv.Decode(t, txResp)["transactions"].([]interface{})
	require.Len(t, logs, 1)
	failed := logs[0].(map[string]interface{})
	assert.Equal(t, "FAILED", failed["status"])
	assert.NotEmpty(t, failed["error_message"])

	// Retrying the same key replays the FAILED log as an idempotent
	// response instead of re-running the state machine.
	retry := testenv.Transfer(t, router, from, to, "50.00", "k2")
	assert.Equal(t, http.StatusOK, retry.Code, retry.Body.String())
	body := testenv.Decode(t, retry)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["isIdempotent"])
}

func TestTransferValidation(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	from := testenv.CreateWallet(t, router, "100.00")
	to := testenv.CreateWallet(t, router, "100.00")

	// Missing idempotency key.
	resp := testenv.Transfer(t, router, from, to, "10.00", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// Non-positive amount.
	resp = testenv.Transfer(t, router, from, to, "0", "v1")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// Same wallet on both sides.
	resp = testenv.Transfer(t, router, from, from, "10.00", "v2")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// Unknown destination wallet.
	resp = testenv.Transfer(t, router, from, "00000000-0000-0000-0000-000000000001", "10.00", "v3")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	assert.Equal(t, "100.00", testenv.GetWalletBalance(t, router, from))
}
