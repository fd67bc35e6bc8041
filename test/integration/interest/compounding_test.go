package interest

import (
	"net/http"
	"testing"

	"wallet-api/internal/pkg/money"
	"wallet-api/test/integration/testenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompoundingOverLeapYear(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 366-day compounding run in short mode")
	}

	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	id := testenv.CreateAccount(t, router, "10000")

	resp := testenv.DoJSON(t, router, "POST", "/accounts/"+id+"/interest/range", map[string]string{
		"start_date": "2024-01-01",
		"end_date":   "2024-12-31",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	body := testenv.Decode(t, resp)
	assert.Equal(t, float64(366), body["applied_days"])
	assert.Len(t, body["results"].([]interface{}), 366)

	// Daily compounding at 27.5% over the full leap year.
	balance := money.MustParse(testenv.GetAccountBalance(t, router, id))
	assert.Equal(t, "13163.95", money.Fixed(balance, money.ScaleCents))

	historyResp := testenv.DoJSON(t, router, "GET", "/accounts/"+id+"/interest?limit=400", nil)
	require.Equal(t, http.StatusOK, historyResp.Code)
	history := testenv.Decode(t, historyResp)["history"].([]interface{})
	assert.Len(t, history, 366)
}

func TestRangeReplayDoesNotCompoundTwice(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	id := testenv.CreateAccount(t, router, "5000.00000000")

	first := testenv.DoJSON(t, router, "POST", "/accounts/"+id+"/interest/range", map[string]string{
		"start_date": "2023-02-01",
		"end_date":   "2023-02-07",
	})
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, float64(7), testenv.Decode(t, first)["applied_days"])

	afterFirst := testenv.GetAccountBalance(t, router, id)

	second := testenv.DoJSON(t, router, "POST", "/accounts/"+id+"/interest/range", map[string]string{
		"start_date": "2023-02-01",
		"end_date":   "2023-02-07",
	})
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, float64(0), testenv.Decode(t, second)["applied_days"])

	assert.Equal(t, afterFirst, testenv.GetAccountBalance(t, router, id))
}

func TestRangeRejectsInvertedDates(t *testing.T) {
	router := testenv.SetupRouter(t)
	defer testenv.ResetDatabase(t)

	id := testenv.CreateAccount(t, router, "100")

	resp := testenv.DoJSON(t, router, "POST", "/accounts/"+id+"/interest/range", map[string]string{
		"start_date": "2023-03-02",
		"end_date":   "2023-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
