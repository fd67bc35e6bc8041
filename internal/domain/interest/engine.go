// Package interest implements the daily interest accumulator: a
// leap-year-aware daily rate applied to the principal with exact decimal
// arithmetic, idempotent per account per UTC calendar date through the
// unique (account_id, calculation_date) constraint.
package interest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-api/internal/domain/models"
	"wallet-api/internal/infrastructure/database"
	"wallet-api/internal/pkg/logging"
	"wallet-api/internal/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AnnualRateString is the fixed annual rate, parsed once from its literal
// form so the persisted scale-6 value is exact.
const AnnualRateString = "0.275"

var annualRate = decimal.RequireFromString(AnnualRateString)

// DefaultHistoryLimit applies when a history query passes no limit.
const DefaultHistoryLimit = 30

var (
	// ErrAccountNotFound means the target account does not exist. No
	// persistence side effects on the interest path.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidBalance rejects a negative initial balance.
	ErrInvalidBalance = errors.New("initial balance must not be negative")

	// ErrInternalInconsistency means the winning interest log vanished
	// after a duplicate-key race loss.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// Result is the outcome of one daily application. Replays carry the
// stored log with IsNew false and never touch the balance again.
type Result struct {
	IsNew     bool
	Log       *models.InterestLog
	DailyRate decimal.Decimal
}

// Engine applies daily interest against the persistence contract.
type Engine struct {
	repo database.Repository
}

// NewEngine builds an interest engine.
func NewEngine(repo database.Repository) *Engine {
	return &Engine{repo: repo}
}

// DailyRate divides the annual rate by the year's day count at the
// process-wide division precision, half-up.
func DailyRate(year int) decimal.Decimal {
	return annualRate.Div(decimal.NewFromInt(int64(DaysInYear(year))))
}

// CalculateDailyInterest applies one day's interest to the account. The
// date is normalized to its UTC calendar day. A log already present for
// (account, date) is replayed without re-applying the balance update;
// concurrent duplicates lose the unique-key insert and replay the same
// way.
func (e *Engine) CalculateDailyInterest(ctx context.Context, accountID uuid.UUID, date time.Time) (*Result, error) {
	calculationDate := CalendarDate(date)
	year := calculationDate.Year()

	existing, err := e.repo.GetInterestLog(ctx, accountID, calculationDate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return replayResult(existing), nil
	}

	tx, err := e.repo.Begin(ctx, database.ReadCommitted)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the account so the principal read, the log insert, and the
	// balance write are one atomic unit against concurrent applications
	// for neighboring dates.
	account, err := e.repo.GetAccountForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		err = fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
		return nil, err
	}

	principal := account.Balance
	rate := DailyRate(year)
	interestAmount := money.Round(principal.Mul(rate), money.ScaleInterest)
	newBalance := principal.Add(interestAmount)

	logRow := &models.InterestLog{
		ID:               uuid.New(),
		AccountID:        accountID,
		CalculationDate:  calculationDate,
		PrincipalBalance: principal,
		InterestAmount:   interestAmount,
		NewBalance:       newBalance,
		AnnualRate:       money.Round(annualRate, money.ScaleRate),
		DaysInYear:       DaysInYear(year),
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}

	if err = e.repo.InsertInterestLog(ctx, tx, logRow); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			// Race loss against a concurrent caller for the same date.
			// Their balance update already happened; only replay theirs.
			_ = tx.Rollback(ctx)
			winner, fetchErr := e.repo.GetInterestLog(ctx, accountID, calculationDate)
			if fetchErr != nil {
				return nil, fetchErr
			}
			if winner == nil {
				return nil, fmt.Errorf("%w: interest log for account %s on %s vanished after duplicate insert",
					ErrInternalInconsistency, accountID, calculationDate.Format("2006-01-02"))
			}
			err = nil
			return replayResult(winner), nil
		}
		return nil, err
	}

	if err = e.repo.UpdateAccountBalance(ctx, tx, accountID, newBalance); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}

	logging.Info("Daily interest applied", map[string]interface{}{
		"account_id":       accountID,
		"calculation_date": calculationDate.Format("2006-01-02"),
		"interest_amount":  money.Fixed(interestAmount, money.ScaleInterest),
		"new_balance":      money.Fixed(newBalance, money.ScaleInterest),
	})

	return &Result{IsNew: true, Log: logRow, DailyRate: rate}, nil
}

// CalculateForDateRange applies interest for every calendar day from
// start to end inclusive, one transaction per day, in order. Partial
// progress persists on error; compounding happens naturally because each
// day reads the balance the previous day wrote.
func (e *Engine) CalculateForDateRange(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]*Result, error) {
	startDate := CalendarDate(start)
	endDate := CalendarDate(end)
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date %s precedes start date %s",
			endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}

	var results []*Result
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		result, err := e.CalculateDailyInterest(ctx, accountID, day)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// CreateAccount creates an interest-bearing account from a decimal string
// balance.
func (e *Engine) CreateAccount(ctx context.Context, initialBalance string) (*models.Account, error) {
	if initialBalance == "" {
		initialBalance = "0"
	}
	balance, err := money.Parse(initialBalance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBalance, err)
	}
	if money.IsNegative(balance) {
		return nil, ErrInvalidBalance
	}
	return e.repo.CreateAccount(ctx, balance)
}

// GetAccount fetches an account by id.
func (e *Engine) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, err := e.repo.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return a, nil
}

// GetInterestHistory lists an account's applications, most recent
// calculation date first.
func (e *Engine) GetInterestHistory(ctx context.Context, accountID uuid.UUID, limit int) ([]models.InterestLog, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return e.repo.ListInterestHistory(ctx, accountID, limit)
}

// replayResult rebuilds the response for an already-applied day. The
// daily rate is recomputed from the stored annual rate and day count for
// display.
func replayResult(logRow *models.InterestLog) *Result {
	return &Result{
		IsNew:     false,
		Log:       logRow,
		DailyRate: logRow.AnnualRate.Div(decimal.NewFromInt(int64(logRow.DaysInYear))),
	}
}
