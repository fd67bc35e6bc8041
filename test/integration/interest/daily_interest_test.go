package interest

import (
	"net/http"
	"testing"

	"wallet-api/test/integration/testenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyInterest(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	id := testenv.CreateAccount(t, router, "10000.00000000")

	resp := testenv.ApplyDailyInterest(t, router, id, "2023-06-15")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	body := testenv.Decode(t, resp)
	assert.Equal(t, true, body["isNew"])

	logRow := body["log"].(map[string]interface{})
	assert.Equal(t, "10000.00000000", logRow["principal_balance"])
	assert.Equal(t, "7.53424658", logRow["interest_amount"])
	assert.Equal(t, "10007.53424658", logRow["new_balance"])
	assert.Equal(t, "0.275000", logRow["annual_rate"])
	assert.Equal(t, float64(365), logRow["days_in_year"])

	assert.Equal(t, "10007.53424658", testenv.GetAccountBalance(t, router, id))
}

func TestDailyInterestReplay(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	id := testenv.CreateAccount(t, router, "10000.00000000")

	first := testenv.ApplyDailyInterest(t, router, id, "2023-06-15")
	require.Equal(t, http.StatusCreated, first.Code)
	firstLog := testenv.Decode(t, first)["log"].(map[string]interface{})

	// Same date again: replay, balance unchanged, single log row.
	replay := testenv.ApplyDailyInterest(t, router, id, "2023-06-15")
	require.Equal(t, http.StatusOK, replay.Code, replay.Body.String())

	body := testenv.Decode(t, replay)
	assert.Equal(t, false, body["isNew"])
	replayLog := body["log"].(map[string]interface{})
	assert.Equal(t, firstLog["id"], replayLog["id"])
	assert.Equal(t, firstLog["interest_amount"], replayLog["interest_amount"])

	assert.Equal(t, "10007.53424658", testenv.GetAccountBalance(t, router, id))

	historyResp := testenv.DoJSON(t, router, "GET", "/accounts/"+id+"/interest", nil)
	require.Equal(t, http.StatusOK, historyResp.Code)
	assert.Len(t, testenv.Decode(t, historyResp)["history"].([]interface{}), 1)
}

func TestDailyInterestAccountNotFound(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	resp := testenv.ApplyDailyInterest(t, router, "00000000-0000-0000-0000-000000000099", "2023-06-15")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateAccountRejectsNegativeBalance(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	resp := testenv.DoJSON(t, router, "POST", "/accounts", map[string]string{
		"initial_balance": "-0.00000001",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDailyInterestRejectsBadDate(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	id := testenv.CreateAccount(t, router, "100")

	resp := testenv.ApplyDailyInterest(t, router, id, "15/06/2023")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
