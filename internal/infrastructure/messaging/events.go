package messaging

import "time"

// Amounts in events are fixed-scale decimal strings, matching the
// persisted canonical form.

// WalletCreatedEvent represents a wallet creation event
type WalletCreatedEvent struct {
	WalletID       string    `json:"wallet_id"`
	InitialBalance string    `json:"initial_balance"`
	Timestamp      time.Time `json:"timestamp"`
}

// AccountCreatedEvent represents an interest account creation event
type AccountCreatedEvent struct {
	AccountID      string    `json:"account_id"`
	InitialBalance string    `json:"initial_balance"`
	Timestamp      time.Time `json:"timestamp"`
}

// TransferCompletedEvent represents a successfully committed transfer
type TransferCompletedEvent struct {
	TransactionLogID string    `json:"transaction_log_id"`
	IdempotencyKey   string    `json:"idempotency_key"`
	FromWalletID     string    `json:"from_wallet_id"`
	ToWalletID       string    `json:"to_wallet_id"`
	Amount           string    `json:"amount"`
	Timestamp        time.Time `json:"timestamp"`
}

// TransferFailedEvent represents a transfer that committed a FAILED log
type TransferFailedEvent struct {
	TransactionLogID string    `json:"transaction_log_id"`
	IdempotencyKey   string    `json:"idempotency_key"`
	FromWalletID     string    `json:"from_wallet_id"`
	ToWalletID       string    `json:"to_wallet_id"`
	Amount           string    `json:"amount"`
	ErrorMessage     string    `json:"error_message"`
	Timestamp        time.Time `json:"timestamp"`
}

// InterestAppliedEvent represents one day's interest application
type InterestAppliedEvent struct {
	AccountID       string    `json:"account_id"`
	CalculationDate string    `json:"calculation_date"`
	InterestAmount  string    `json:"interest_amount"`
	NewBalance      string    `json:"new_balance"`
	Timestamp       time.Time `json:"timestamp"`
}
