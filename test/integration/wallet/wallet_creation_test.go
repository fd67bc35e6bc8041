package wallet

import (
	"net/http"
	"testing"

	"wallet-api/test/integration/testenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWallet(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	resp := testenv.DoJSON(t, router, "POST", "/wallets", map[string]string{
		"initial_balance": "250.50",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	body := testenv.Decode(t, resp)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "250.50", body["balance"])

	assert.Equal(t, "250.50", testenv.GetWalletBalance(t, router, body["id"].(string)))
}

func TestCreateWalletDefaultsToZero(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	id := testenv.CreateWallet(t, router, "")
	assert.Equal(t, "0.00", testenv.GetWalletBalance(t, router, id))
}

func TestCreateWalletRejectsNegativeBalance(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	resp := testenv.DoJSON(t, router, "POST", "/wallets", map[string]string{
		"initial_balance": "-10.00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetWalletNotFound(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	resp := testenv.DoJSON(t, router, "GET", "/wallets/00000000-0000-0000-0000-000000000042", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = testenv.DoJSON(t, router, "GET", "/wallets/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
