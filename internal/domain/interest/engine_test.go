package interest_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"wallet-api/internal/domain/interest"
	"wallet-api/internal/infrastructure/database/memory"
	"wallet-api/internal/pkg/money"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	money.Init()
	m.Run()
}

func newTestEngine() (*interest.Engine, *memory.Repository) {
	repo := memory.New()
	return interest.NewEngine(repo), repo
}

func TestDailyRate(t *testing.T) {
	// 0.275/365 at 20-digit precision, half-up.
	assert.Equal(t, "0.00075342465753424658", interest.DailyRate(2023).String())
	// 0.275/366.
	assert.Equal(t, "0.00075136612021857923", interest.DailyRate(2024).String())
}

func TestCalculateDailyInterest(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	account, err := engine.CreateAccount(ctx, "10000.00000000")
	require.NoError(t, err)

	date := time.Date(2023, 6, 15, 10, 30, 0, 0, time.UTC)
	result, err := engine.CalculateDailyInterest(ctx, account.ID, date)
	require.NoError(t, err)

	assert.True(t, result.IsNew)
	assert.Equal(t, "7.53424658", money.Fixed(result.Log.InterestAmount, money.ScaleInterest))
	assert.Equal(t, "10007.53424658", money.Fixed(result.Log.NewBalance, money.ScaleInterest))
	assert.Equal(t, "10000.00000000", money.Fixed(result.Log.PrincipalBalance, money.ScaleInterest))
	assert.Equal(t, "0.275000", money.Fixed(result.Log.AnnualRate, money.ScaleRate))
	assert.Equal(t, 365, result.Log.DaysInYear)
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), result.Log.CalculationDate)

	updated, err := engine.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "10007.53424658", money.Fixed(updated.Balance, money.ScaleInterest))
}

func TestCalculateDailyInterestReplay(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	account, err := engine.CreateAccount(ctx, "10000.00000000")
	require.NoError(t, err)

	date := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	first, err := engine.CalculateDailyInterest(ctx, account.ID, date)
	require.NoError(t, err)
	require.True(t, first.IsNew)

	// Same date again, including a different time of day: replay, no
	// balance change.
	replay, err := engine.CalculateDailyInterest(ctx, account.ID, date.Add(23*time.Hour))
	require.NoError(t, err)
	assert.False(t, replay.IsNew)
	assert.Equal(t, first.Log.ID, replay.Log.ID)
	assert.True(t, first.Log.InterestAmount.Equal(replay.Log.InterestAmount))

	account2, err := engine.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "10007.53424658", money.Fixed(account2.Balance, money.ScaleInterest))

	history, err := engine.GetInterestHistory(ctx, account.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCalculateDailyInterestConcurrent(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	account, err := engine.CreateAccount(ctx, "10000.00000000")
	require.NoError(t, err)

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	const n = 20
	var wg sync.WaitGroup
	results := make([]*interest.Result, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			result, err := engine.CalculateDailyInterest(ctx, account.ID, date)
			if err == nil {
				results[i] = result
			}
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, r := range results {
		require.NotNil(t, r)
		if r.IsNew {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "exactly one application must win")

	history, err := engine.GetInterestHistory(ctx, account.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	updated, err := engine.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "10007.51366120", money.Fixed(updated.Balance, money.ScaleInterest))
}

func TestCalculateDailyInterestAccountNotFound(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.CalculateDailyInterest(context.Background(), uuid.New(), time.Now().UTC())
	assert.ErrorIs(t, err, interest.ErrAccountNotFound)
}

func TestCalculateForDateRangeCompounds(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	account, err := engine.CreateAccount(ctx, "10000")
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	results, err := engine.CalculateForDateRange(ctx, account.ID, start, end)
	require.NoError(t, err)
	require.Len(t, results, 366)

	for _, r := range results {
		assert.True(t, r.IsNew)
		assert.Equal(t, 366, r.Log.DaysInYear)
	}

	// Daily compounding at 27.5% over the full leap year.
	updated, err := engine.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "13163.95", money.Fixed(updated.Balance, money.ScaleCents))

	history, err := engine.GetInterestHistory(ctx, account.ID, 400)
	require.NoError(t, err)
	assert.Len(t, history, 366)
	// Most recent calculation date first.
	assert.Equal(t, end, history[0].CalculationDate)
}

func TestCalculateForDateRangeIsIdempotent(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	account, err := engine.CreateAccount(ctx, "5000.00000000")
	require.NoError(t, err)

	start := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 2, 7, 0, 0, 0, 0, time.UTC)

	first, err := engine.CalculateForDateRange(ctx, account.ID, start, end)
	require.NoError(t, err)
	require.Len(t, first, 7)

	afterFirst, err := engine.GetAccount(ctx, account.ID)
	require.NoError(t, err)

	second, err := engine.CalculateForDateRange(ctx, account.ID, start, end)
	require.NoError(t, err)
	require.Len(t, second, 7)
	for _, r := range second {
		assert.False(t, r.IsNew)
	}

	afterSecond, err := engine.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, afterFirst.Balance.Equal(afterSecond.Balance))
}

func TestCalculateForDateRangeRejectsInvertedRange(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	account, err := engine.CreateAccount(ctx, "100")
	require.NoError(t, err)

	_, err = engine.CalculateForDateRange(ctx, account.ID,
		time.Date(2023, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)
}

func TestCreateAccount(t *testing.T) {
	engine, _ := newTestEngine()
	ctx := context.Background()

	account, err := engine.CreateAccount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "0.00000000", money.Fixed(account.Balance, money.ScaleInterest))

	_, err = engine.CreateAccount(ctx, "-1")
	assert.ErrorIs(t, err, interest.ErrInvalidBalance)

	_, err = engine.CreateAccount(ctx, "not-a-number")
	assert.ErrorIs(t, err, interest.ErrInvalidBalance)
}

func TestGetAccountNotFound(t *testing.T) {
	engine, _ := newTestEngine()

	_, err := engine.GetAccount(context.Background(), uuid.New())
	assert.ErrorIs(t, err, interest.ErrAccountNotFound)
}
