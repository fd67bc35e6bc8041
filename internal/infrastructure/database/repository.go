package database

import (
	"context"
	"errors"
	"time"

	"wallet-api/internal/domain/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateKey reports a unique-constraint violation. Callers treat it
	// as "another request already owns this key" and switch to the replay path.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrSerialization reports a serialization abort under SERIALIZABLE
	// isolation. Safe to retry as long as nothing was committed.
	ErrSerialization = errors.New("serialization failure")
)

// Isolation selects the transaction isolation level for Begin.
type Isolation int

const (
	ReadCommitted Isolation = iota
	Serializable
)

// Tx is a transactional scope. Commit after Commit and Rollback after
// Commit are no-ops.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Repository is the persistence contract shared by the transfer and
// interest engines. Operations taking a Tx run inside that scope; passing
// nil runs them auto-committed. Find operations never take row locks; the
// ForUpdate variants acquire exclusive row locks that block concurrent
// lockers until the holding transaction resolves. Absent rows are returned
// as (nil, nil).
type Repository interface {
	Begin(ctx context.Context, iso Isolation) (Tx, error)

	CreateWallet(ctx context.Context, initialBalance decimal.Decimal) (*models.Wallet, error)
	GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	LockWalletForUpdate(ctx context.Context, tx Tx, id uuid.UUID) (*models.Wallet, error)
	UpdateWalletBalance(ctx context.Context, tx Tx, id uuid.UUID, balance decimal.Decimal) error

	InsertTransactionLog(ctx context.Context, tx Tx, logRow *models.TransactionLog) error
	GetTransactionLogByKey(ctx context.Context, idempotencyKey string) (*models.TransactionLog, error)
	UpdateTransactionLogStatus(ctx context.Context, tx Tx, id uuid.UUID, status models.TransactionStatus, errorMessage string) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.TransactionLog, error)

	InsertLedgerEntries(ctx context.Context, tx Tx, entries []models.LedgerEntry) error
	ListLedger(ctx context.Context, walletID uuid.UUID, limit int) ([]models.LedgerEntryDetail, error)

	CreateAccount(ctx context.Context, initialBalance decimal.Decimal) (*models.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountForUpdate(ctx context.Context, tx Tx, id uuid.UUID) (*models.Account, error)
	UpdateAccountBalance(ctx context.Context, tx Tx, id uuid.UUID, balance decimal.Decimal) error

	InsertInterestLog(ctx context.Context, tx Tx, logRow *models.InterestLog) error
	GetInterestLog(ctx context.Context, accountID uuid.UUID, date time.Time) (*models.InterestLog, error)
	ListInterestHistory(ctx context.Context, accountID uuid.UUID, limit int) ([]models.InterestLog, error)

	Ping(ctx context.Context) error
	Close()
}

// Repo is the process-wide repository instance, wired at startup by the
// components container (or by test setup).
var Repo Repository
