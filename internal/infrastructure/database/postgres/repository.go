package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-api/internal/domain/models"
	"wallet-api/internal/infrastructure/database"
	"wallet-api/internal/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Balances travel as text between Go and NUMERIC columns so values
// round-trip through the canonical fixed-scale form without a binary
// numeric codec in between.

const walletColumns = `id, balance::text, created_at, updated_at`

// CreateWallet inserts a wallet with the given initial balance.
func (r *Repository) CreateWallet(ctx context.Context, initialBalance decimal.Decimal) (*models.Wallet, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	w := &models.Wallet{
		ID:        uuid.New(),
		Balance:   money.Round(initialBalance, money.ScaleCents),
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO wallets (id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, w.ID, money.Fixed(w.Balance, money.ScaleCents), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", translateErr(err))
	}
	return w, nil
}

// GetWallet retrieves a wallet by ID without locking it.
func (r *Repository) GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return r.scanWallet(r.pool.QueryRow(ctx, query, id))
}

// LockWalletForUpdate acquires the exclusive row lock on the wallet,
// blocking until a concurrent holder commits or rolls back.
func (r *Repository) LockWalletForUpdate(ctx context.Context, tx database.Tx, id uuid.UUID) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	return r.scanWallet(r.querier(tx).QueryRow(ctx, query, id))
}

func (r *Repository) scanWallet(row pgx.Row) (*models.Wallet, error) {
	var w models.Wallet
	var balance string

	err := row.Scan(&w.ID, &balance, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallet: %w", translateErr(err))
	}

	w.Balance, err = money.Parse(balance)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// UpdateWalletBalance writes a new balance. Must run inside the
// transaction that holds the wallet's row lock.
func (r *Repository) UpdateWalletBalance(ctx context.Context, tx database.Tx, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $1, updated_at = $2 WHERE id = $3`

	_, err := r.querier(tx).Exec(ctx, query, money.Fixed(balance, money.ScaleCents), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", translateErr(err))
	}
	return nil
}

const transactionLogColumns = `id, idempotency_key, from_wallet_id, to_wallet_id,
	amount::text, status, COALESCE(error_message, ''), created_at, updated_at`

// InsertTransactionLog inserts a new log row. A colliding idempotency key
// surfaces as database.ErrDuplicateKey; under an open concurrent insert the
// call blocks until that transaction resolves, matching unique-index
// semantics.
func (r *Repository) InsertTransactionLog(ctx context.Context, tx database.Tx, logRow *models.TransactionLog) error {
	query := `
		INSERT INTO transaction_logs
		(id, idempotency_key, from_wallet_id, to_wallet_id, amount, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
	`

	_, err := r.querier(tx).Exec(ctx, query,
		logRow.ID,
		logRow.IdempotencyKey,
		logRow.FromWalletID,
		logRow.ToWalletID,
		money.Fixed(logRow.Amount, money.ScaleCents),
		string(logRow.Status),
		logRow.ErrorMessage,
		logRow.CreatedAt,
		logRow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction log: %w", translateErr(err))
	}
	return nil
}

// GetTransactionLogByKey fetches a log by idempotency key, lock-free.
func (r *Repository) GetTransactionLogByKey(ctx context.Context, idempotencyKey string) (*models.TransactionLog, error) {
	query := `SELECT ` + transactionLogColumns + ` FROM transaction_logs WHERE idempotency_key = $1`
	return r.scanTransactionLog(r.pool.QueryRow(ctx, query, idempotencyKey))
}

func (r *Repository) scanTransactionLog(row pgx.Row) (*models.TransactionLog, error) {
	var t models.TransactionLog
	var amount, status string

	err := row.Scan(&t.ID, &t.IdempotencyKey, &t.FromWalletID, &t.ToWalletID,
		&amount, &status, &t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction log: %w", translateErr(err))
	}

	t.Status = models.TransactionStatus(status)
	t.Amount, err = money.Parse(amount)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTransactionLogStatus moves a log to a terminal status.
func (r *Repository) UpdateTransactionLogStatus(ctx context.Context, tx database.Tx, id uuid.UUID, status models.TransactionStatus, errorMessage string) error {
	query := `
		UPDATE transaction_logs
		SET status = $1, error_message = NULLIF($2, ''), updated_at = $3
		WHERE id = $4
	`

	_, err := r.querier(tx).Exec(ctx, query, string(status), errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update transaction log: %w", translateErr(err))
	}
	return nil
}

// ListTransactions returns logs where the wallet is source or destination,
// most recent first.
func (r *Repository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.TransactionLog, error) {
	query := `
		SELECT ` + transactionLogColumns + `
		FROM transaction_logs
		WHERE from_wallet_id = $1 OR to_wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", translateErr(err))
	}
	defer rows.Close()

	var logs []models.TransactionLog
	for rows.Next() {
		var t models.TransactionLog
		var amount, status string

		if err := rows.Scan(&t.ID, &t.IdempotencyKey, &t.FromWalletID, &t.ToWalletID,
			&amount, &status, &t.ErrorMessage, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction log: %w", err)
		}
		t.Status = models.TransactionStatus(status)
		if t.Amount, err = money.Parse(amount); err != nil {
			return nil, err
		}
		logs = append(logs, t)
	}
	return logs, rows.Err()
}

// InsertLedgerEntries appends the double-entry rows for a completed
// transfer. Always called inside the transfer's transaction.
func (r *Repository) InsertLedgerEntries(ctx context.Context, tx database.Tx, entries []models.LedgerEntry) error {
	query := `
		INSERT INTO ledgers
		(id, wallet_id, transaction_log_id, entry_type, amount, balance_before, balance_after, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
	`

	q := r.querier(tx)
	for _, e := range entries {
		_, err := q.Exec(ctx, query,
			e.ID,
			e.WalletID,
			e.TransactionLogID,
			string(e.EntryType),
			money.Fixed(e.Amount, money.ScaleCents),
			money.Fixed(e.BalanceBefore, money.ScaleCents),
			money.Fixed(e.BalanceAfter, money.ScaleCents),
			e.Description,
			e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ledger entry: %w", translateErr(err))
		}
	}
	return nil
}

// ListLedger returns a wallet's ledger entries with their transaction-log
// context, most recent first.
func (r *Repository) ListLedger(ctx context.Context, walletID uuid.UUID, limit int) ([]models.LedgerEntryDetail, error) {
	query := `
		SELECT l.id, l.wallet_id, l.transaction_log_id, l.entry_type, l.amount::text,
			l.balance_before::text, l.balance_after::text, COALESCE(l.description, ''), l.created_at,
			t.idempotency_key, t.status
		FROM ledgers l
		JOIN transaction_logs t ON t.id = l.transaction_log_id
		WHERE l.wallet_id = $1
		ORDER BY l.created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", translateErr(err))
	}
	defer rows.Close()

	var entries []models.LedgerEntryDetail
	for rows.Next() {
		var e models.LedgerEntryDetail
		var entryType, amount, before, after, status string

		if err := rows.Scan(&e.ID, &e.WalletID, &e.TransactionLogID, &entryType,
			&amount, &before, &after, &e.Description, &e.CreatedAt,
			&e.IdempotencyKey, &status); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.EntryType = models.EntryType(entryType)
		e.TransactionStatus = models.TransactionStatus(status)
		if e.Amount, err = money.Parse(amount); err != nil {
			return nil, err
		}
		if e.BalanceBefore, err = money.Parse(before); err != nil {
			return nil, err
		}
		if e.BalanceAfter, err = money.Parse(after); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const accountColumns = `id, balance::text, created_at, updated_at`

// CreateAccount inserts an interest-bearing account.
func (r *Repository) CreateAccount(ctx context.Context, initialBalance decimal.Decimal) (*models.Account, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	a := &models.Account{
		ID:        uuid.New(),
		Balance:   money.Round(initialBalance, money.ScaleInterest),
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO accounts (id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, a.ID, money.Fixed(a.Balance, money.ScaleInterest), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", translateErr(err))
	}
	return a, nil
}

// GetAccount retrieves an account by ID without locking it.
func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetAccountForUpdate acquires the exclusive row lock on the account.
func (r *Repository) GetAccountForUpdate(ctx context.Context, tx database.Tx, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return r.scanAccount(r.querier(tx).QueryRow(ctx, query, id))
}

func (r *Repository) scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var balance string

	err := row.Scan(&a.ID, &balance, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", translateErr(err))
	}

	a.Balance, err = money.Parse(balance)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAccountBalance writes a new balance. Must run inside the
// transaction that holds the account's row lock.
func (r *Repository) UpdateAccountBalance(ctx context.Context, tx database.Tx, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3`

	_, err := r.querier(tx).Exec(ctx, query, money.Fixed(balance, money.ScaleInterest), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", translateErr(err))
	}
	return nil
}

const interestLogColumns = `id, account_id, calculation_date, principal_balance::text,
	interest_amount::text, new_balance::text, annual_rate::text, days_in_year, created_at`

// InsertInterestLog inserts the immutable record of one day's application.
// A colliding (account_id, calculation_date) surfaces as
// database.ErrDuplicateKey.
func (r *Repository) InsertInterestLog(ctx context.Context, tx database.Tx, logRow *models.InterestLog) error {
	query := `
		INSERT INTO interest_logs
		(id, account_id, calculation_date, principal_balance, interest_amount, new_balance, annual_rate, days_in_year, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier(tx).Exec(ctx, query,
		logRow.ID,
		logRow.AccountID,
		logRow.CalculationDate,
		money.Fixed(logRow.PrincipalBalance, money.ScaleInterest),
		money.Fixed(logRow.InterestAmount, money.ScaleInterest),
		money.Fixed(logRow.NewBalance, money.ScaleInterest),
		money.Fixed(logRow.AnnualRate, money.ScaleRate),
		logRow.DaysInYear,
		logRow.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interest log: %w", translateErr(err))
	}
	return nil
}

// GetInterestLog fetches the application record for one account and UTC
// calendar date, lock-free.
func (r *Repository) GetInterestLog(ctx context.Context, accountID uuid.UUID, date time.Time) (*models.InterestLog, error) {
	query := `SELECT ` + interestLogColumns + ` FROM interest_logs WHERE account_id = $1 AND calculation_date = $2`
	return r.scanInterestLog(r.pool.QueryRow(ctx, query, accountID, date))
}

func (r *Repository) scanInterestLog(row pgx.Row) (*models.InterestLog, error) {
	var l models.InterestLog
	var principal, interest, newBalance, rate string

	err := row.Scan(&l.ID, &l.AccountID, &l.CalculationDate, &principal,
		&interest, &newBalance, &rate, &l.DaysInYear, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan interest log: %w", translateErr(err))
	}

	if l.PrincipalBalance, err = money.Parse(principal); err != nil {
		return nil, err
	}
	if l.InterestAmount, err = money.Parse(interest); err != nil {
		return nil, err
	}
	if l.NewBalance, err = money.Parse(newBalance); err != nil {
		return nil, err
	}
	if l.AnnualRate, err = money.Parse(rate); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListInterestHistory returns an account's applications, most recent
// calculation date first.
func (r *Repository) ListInterestHistory(ctx context.Context, accountID uuid.UUID, limit int) ([]models.InterestLog, error) {
	query := `
		SELECT ` + interestLogColumns + `
		FROM interest_logs
		WHERE account_id = $1
		ORDER BY calculation_date DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interest history: %w", translateErr(err))
	}
	defer rows.Close()

	var logs []models.InterestLog
	for rows.Next() {
		var l models.InterestLog
		var principal, interest, newBalance, rate string

		if err := rows.Scan(&l.ID, &l.AccountID, &l.CalculationDate, &principal,
			&interest, &newBalance, &rate, &l.DaysInYear, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interest log: %w", err)
		}
		if l.PrincipalBalance, err = money.Parse(principal); err != nil {
			return nil, err
		}
		if l.InterestAmount, err = money.Parse(interest); err != nil {
			return nil, err
		}
		if l.NewBalance, err = money.Parse(newBalance); err != nil {
			return nil, err
		}
		if l.AnnualRate, err = money.Parse(rate); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
