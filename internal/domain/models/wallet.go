package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a transfer. A log is inserted
// PENDING and transitions exactly once to COMPLETED or FAILED.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

// EntryType marks which side of a double entry a ledger row records.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// Wallet is a transfer-capable account holding a scale-2 balance.
// The balance is only mutated inside a transaction that holds the
// wallet's exclusive row lock.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TransactionLog records one transfer attempt. The idempotency key is
// unique across the table; the unique constraint is the source of truth
// for exactly-once execution.
type TransactionLog struct {
	ID             uuid.UUID         `json:"id"`
	IdempotencyKey string            `json:"idempotency_key"`
	FromWalletID   uuid.UUID         `json:"from_wallet_id"`
	ToWalletID     uuid.UUID         `json:"to_wallet_id"`
	Amount         decimal.Decimal   `json:"amount"`
	Status         TransactionStatus `json:"status"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// LedgerEntry is one immutable side of a double entry. A COMPLETED
// transaction log owns exactly two: a DEBIT on the source wallet and a
// CREDIT on the destination, equal in amount.
type LedgerEntry struct {
	ID               uuid.UUID       `json:"id"`
	WalletID         uuid.UUID       `json:"wallet_id"`
	TransactionLogID uuid.UUID       `json:"transaction_log_id"`
	EntryType        EntryType       `json:"entry_type"`
	Amount           decimal.Decimal `json:"amount"`
	BalanceBefore    decimal.Decimal `json:"balance_before"`
	BalanceAfter     decimal.Decimal `json:"balance_after"`
	Description      string          `json:"description,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// LedgerEntryDetail pairs a ledger entry with context from its owning
// transaction log, for history views.
type LedgerEntryDetail struct {
	LedgerEntry
	IdempotencyKey    string            `json:"idempotency_key"`
	TransactionStatus TransactionStatus `json:"transaction_status"`
}
