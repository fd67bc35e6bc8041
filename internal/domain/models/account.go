package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a savings account accruing daily interest. Balances carry
// scale 8 and are only mutated by interest application.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// InterestLog is the immutable record of one day's interest application.
// (AccountID, CalculationDate) is unique; the constraint makes the
// application idempotent per account per UTC calendar day.
type InterestLog struct {
	ID               uuid.UUID       `json:"id"`
	AccountID        uuid.UUID       `json:"account_id"`
	CalculationDate  time.Time       `json:"calculation_date"`
	PrincipalBalance decimal.Decimal `json:"principal_balance"`
	InterestAmount   decimal.Decimal `json:"interest_amount"`
	NewBalance       decimal.Decimal `json:"new_balance"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	DaysInYear       int             `json:"days_in_year"`
	CreatedAt        time.Time       `json:"created_at"`
}
