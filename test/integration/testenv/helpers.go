package testenv

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// DoJSON performs a JSON request against the router and returns the
// recorder.
func DoJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// Decode unmarshals a recorder body into a map.
func Decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

// CreateWallet creates a wallet through the API and returns its id.
func CreateWallet(t *testing.T, router *gin.Engine, initialBalance string) string {
	t.Helper()

	body := map[string]string{}
	if initialBalance != "" {
		body["initial_balance"] = initialBalance
	}
	resp := DoJSON(t, router, "POST", "/wallets", body)
	require.Equal(t, http.StatusCreated, resp.Code, "create wallet failed: %s", resp.Body.String())

	return Decode(t, resp)["id"].(string)
}

// GetWalletBalance fetches a wallet's balance string through the API.
func GetWalletBalance(t *testing.T, router *gin.Engine, id string) string {
	t.Helper()

	resp := DoJSON(t, router, "GET", "/wallets/"+id, nil)
	require.Equal(t, http.StatusOK, resp.Code, "get wallet failed: %s", resp.Body.String())

	return Decode(t, resp)["balance"].(string)
}

// Transfer submits a transfer command and returns the raw recorder.
func Transfer(t *testing.T, router *gin.Engine, from, to, amount, idempotencyKey string) *httptest.ResponseRecorder {
	t.Helper()

	return DoJSON(t, router, "POST", "/wallets/transfer", map[string]string{
		"from_wallet_id":  from,
		"to_wallet_id":    to,
		"amount":          amount,
		"idempotency_key": idempotencyKey,
	})
}

// CreateAccount creates an interest account through the API and returns
// its id.
func CreateAccount(t *testing.T, router *gin.Engine, initialBalance string) string {
	t.Helper()

	body := map[string]string{}
	if initialBalance != "" {
		body["initial_balance"] = initialBalance
	}
	resp := DoJSON(t, router, "POST", "/accounts", body)
	require.Equal(t, http.StatusCreated, resp.Code, "create account failed: %s", resp.Body.String())

	return Decode(t, resp)["id"].(string)
}

// GetAccountBalance fetches an account's balance string through the API.
func GetAccountBalance(t *testing.T, router *gin.Engine, id string) string {
	t.Helper()

	resp := DoJSON(t, router, "GET", "/accounts/"+id, nil)
	require.Equal(t, http.StatusOK, resp.Code, "get account failed: %s", resp.Body.String())

	return Decode(t, resp)["balance"].(string)
}

// ApplyDailyInterest posts a daily interest application for a date.
func ApplyDailyInterest(t *testing.T, router *gin.Engine, accountID, date string) *httptest.ResponseRecorder {
	t.Helper()

	body := map[string]string{}
	if date != "" {
		body["date"] = date
	}
	return DoJSON(t, router, "POST", "/accounts/"+accountID+"/interest", body)
}
