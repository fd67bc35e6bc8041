// Package transfer implements the idempotent wallet transfer engine: the
// PENDING -> COMPLETED/FAILED state machine, deterministic lock ordering,
// and double-entry ledger emission. Exactly-once execution rests on the
// unique constraint over transaction_logs.idempotency_key; everything else
// is replay.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-api/internal/domain/models"
	"wallet-api/internal/infrastructure/cache"
	"wallet-api/internal/infrastructure/database"
	"wallet-api/internal/pkg/logging"
	"wallet-api/internal/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxSerializationRetries bounds retries of serialization aborts. Retries
// only happen while no side effect is externally visible.
const maxSerializationRetries = 3

// DefaultHistoryLimit applies when a history query passes no limit.
const DefaultHistoryLimit = 50

// Request is one transfer command.
type Request struct {
	IdempotencyKey string
	FromWalletID   uuid.UUID
	ToWalletID     uuid.UUID
	Amount         decimal.Decimal
}

// Result is the outcome of a transfer command. Replays carry the original
// persisted log row, so callers see stable ids and timestamps across
// retries.
type Result struct {
	Success      bool
	IsIdempotent bool
	Message      string
	Transaction  *models.TransactionLog
}

// Engine executes transfers against the persistence contract. The cache is
// optional; a nil cache disables the read-through path.
type Engine struct {
	repo  database.Repository
	cache *cache.IdempotencyCache
}

// NewEngine builds a transfer engine.
func NewEngine(repo database.Repository, idempotencyCache *cache.IdempotencyCache) *Engine {
	return &Engine{repo: repo, cache: idempotencyCache}
}

// Execute runs the transfer state machine for one request.
//
// Fast path: a log already committed under this key is replayed without
// re-entering the state machine. Slow path: insert a PENDING log inside a
// SERIALIZABLE transaction, lock both wallets in deterministic order,
// validate, move funds, emit the ledger pair, complete. A duplicate-key
// insert loss means a concurrent caller owns the key; the loser replays
// the winner's committed row.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return nil, ErrMissingIdempotencyKey
	}
	// Amounts carry scale 2; anything rounding to zero is not a transfer.
	req.Amount = money.Round(req.Amount, money.ScaleCents)
	if !money.IsPositive(req.Amount) {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidTransfer)
	}
	if req.FromWalletID == req.ToWalletID {
		return nil, fmt.Errorf("%w: cannot transfer to the same wallet", ErrInvalidTransfer)
	}

	// Cache consult is a hint only; the database record always wins.
	if cached, ok := e.cacheGet(ctx, req.IdempotencyKey); ok {
		logging.Debug("Idempotency cache hit", map[string]interface{}{
			"idempotency_key": req.IdempotencyKey,
			"transaction_id":  cached.ID,
		})
	}

	// Fast path: terminal or pending log already visible.
	existing, err := e.repo.GetTransactionLogByKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return e.replay(ctx, existing), nil
	}

	for attempt := 0; ; attempt++ {
		result, sideEffect, err := e.run(ctx, req)
		if err != nil && errors.Is(err, database.ErrSerialization) && !sideEffect && attempt < maxSerializationRetries {
			logging.Warn("Serialization failure, retrying transfer", map[string]interface{}{
				"idempotency_key": req.IdempotencyKey,
				"attempt":         attempt + 1,
			})
			continue
		}
		return result, err
	}
}

// run executes one attempt of the state machine. The returned bool reports
// whether a side effect (a committed log) is externally visible, which
// forbids retrying.
func (e *Engine) run(ctx context.Context, req Request) (_ *Result, sideEffect bool, err error) {
	tx, err := e.repo.Begin(ctx, database.Serializable)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Truncate to microseconds so the row round-trips the database's
	// timestamp precision unchanged; replays must carry identical values.
	now := time.Now().UTC().Truncate(time.Microsecond)
	logRow := &models.TransactionLog{
		ID:             uuid.New(),
		IdempotencyKey: req.IdempotencyKey,
		FromWalletID:   req.FromWalletID,
		ToWalletID:     req.ToWalletID,
		Amount:         money.Round(req.Amount, money.ScaleCents),
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// The PENDING insert is the sole serialization point between duplicate
	// submissions: the unique key decides ownership before any lock is held.
	if err := e.repo.InsertTransactionLog(ctx, tx, logRow); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			_ = tx.Rollback(ctx)
			return e.replayAfterDuplicate(ctx, req.IdempotencyKey)
		}
		return nil, false, err
	}

	// Deterministic lock order: lexicographically smaller wallet id first,
	// regardless of transfer direction. Eliminates the AB/BA deadlock class.
	firstID, secondID := req.FromWalletID, req.ToWalletID
	if strings.Compare(firstID.String(), secondID.String()) > 0 {
		firstID, secondID = secondID, firstID
	}

	first, err := e.repo.LockWalletForUpdate(ctx, tx, firstID)
	if err != nil {
		return nil, false, e.failUnknown(ctx, logRow, err)
	}
	second, err := e.repo.LockWalletForUpdate(ctx, tx, secondID)
	if err != nil {
		return nil, false, e.failUnknown(ctx, logRow, err)
	}

	fromWallet, toWallet := first, second
	if firstID != req.FromWalletID {
		fromWallet, toWallet = second, first
	}

	if fromWallet == nil || toWallet == nil {
		missing := req.FromWalletID
		if fromWallet != nil {
			missing = req.ToWalletID
		}
		message := fmt.Sprintf("wallet %s not found", missing)
		if committed := e.failCommitted(ctx, tx, logRow, message); committed != nil {
			return nil, false, committed
		}
		return nil, true, fmt.Errorf("%w: %s", ErrWalletNotFound, missing)
	}

	if fromWallet.Balance.LessThan(logRow.Amount) {
		message := fmt.Sprintf("insufficient funds: available %s, required %s",
			money.Fixed(fromWallet.Balance, money.ScaleCents),
			money.Fixed(logRow.Amount, money.ScaleCents))
		if committed := e.failCommitted(ctx, tx, logRow, message); committed != nil {
			return nil, false, committed
		}
		return nil, true, fmt.Errorf("%w: available %s, required %s", ErrInsufficientFunds,
			money.Fixed(fromWallet.Balance, money.ScaleCents),
			money.Fixed(logRow.Amount, money.ScaleCents))
	}

	fromAfter := fromWallet.Balance.Sub(logRow.Amount)
	toAfter := toWallet.Balance.Add(logRow.Amount)

	if err := e.repo.UpdateWalletBalance(ctx, tx, fromWallet.ID, fromAfter); err != nil {
		return nil, false, e.failUnknown(ctx, logRow, err)
	}
	if err := e.repo.UpdateWalletBalance(ctx, tx, toWallet.ID, toAfter); err != nil {
		return nil, false, e.failUnknown(ctx, logRow, err)
	}

	entries := []models.LedgerEntry{
		{
			ID:               uuid.New(),
			WalletID:         fromWallet.ID,
			TransactionLogID: logRow.ID,
			EntryType:        models.EntryDebit,
			Amount:           logRow.Amount,
			BalanceBefore:    fromWallet.Balance,
			BalanceAfter:     fromAfter,
			Description:      fmt.Sprintf("Transfer to wallet %s", toWallet.ID),
			CreatedAt:        now,
		},
		{
			ID:               uuid.New(),
			WalletID:         toWallet.ID,
			TransactionLogID: logRow.ID,
			EntryType:        models.EntryCredit,
			Amount:           logRow.Amount,
			BalanceBefore:    toWallet.Balance,
			BalanceAfter:     toAfter,
			Description:      fmt.Sprintf("Transfer from wallet %s", fromWallet.ID),
			CreatedAt:        now,
		},
	}
	if err := e.repo.InsertLedgerEntries(ctx, tx, entries); err != nil {
		return nil, false, e.failUnknown(ctx, logRow, err)
	}

	if err := e.repo.UpdateTransactionLogStatus(ctx, tx, logRow.ID, models.StatusCompleted, ""); err != nil {
		return nil, false, e.failUnknown(ctx, logRow, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	logRow.Status = models.StatusCompleted
	result := &Result{
		Success:      true,
		IsIdempotent: false,
		Message:      "transfer completed",
		Transaction:  logRow,
	}
	e.cacheSet(ctx, req.IdempotencyKey, logRow)

	logging.Info("Transfer completed", map[string]interface{}{
		"transaction_id":  logRow.ID,
		"idempotency_key": logRow.IdempotencyKey,
		"from_wallet_id":  logRow.FromWalletID,
		"to_wallet_id":    logRow.ToWalletID,
		"amount":          money.Fixed(logRow.Amount, money.ScaleCents),
	})
	return result, true, nil
}

// failCommitted marks the PENDING log FAILED and commits, persisting the
// failure record for idempotent replay. Returns a non-nil error only when
// the failure itself could not be committed.
func (e *Engine) failCommitted(ctx context.Context, tx database.Tx, logRow *models.TransactionLog, message string) error {
	if err := e.repo.UpdateTransactionLogStatus(ctx, tx, logRow.ID, models.StatusFailed, message); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	logRow.Status = models.StatusFailed
	logRow.ErrorMessage = message
	e.cacheSet(ctx, logRow.IdempotencyKey, logRow)
	return nil
}

// failUnknown handles an unexpected persistence error: the transaction is
// rolled back by the caller's deferred rollback, and the log is marked
// FAILED best-effort in a separate auto-committed statement. If the
// PENDING insert rolled back with the transaction the update matches zero
// rows, which is fine.
func (e *Engine) failUnknown(ctx context.Context, logRow *models.TransactionLog, cause error) error {
	if updateErr := e.repo.UpdateTransactionLogStatus(ctx, nil, logRow.ID, models.StatusFailed, cause.Error()); updateErr != nil {
		logging.Warn("Failed to mark transaction log FAILED", map[string]interface{}{
			"transaction_id": logRow.ID,
			"error":          updateErr.Error(),
		})
	}
	return cause
}

// replayAfterDuplicate fetches the winning row after losing the unique-key
// race. The winner has committed (the insert blocked until it resolved),
// so an absent row means external interference.
func (e *Engine) replayAfterDuplicate(ctx context.Context, idempotencyKey string) (*Result, bool, error) {
	existing, err := e.repo.GetTransactionLogByKey(ctx, idempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("%w: transaction log for key %q vanished after duplicate insert",
			ErrInternalInconsistency, idempotencyKey)
	}
	return e.replay(ctx, existing), false, nil
}

// replay builds the idempotent response for a previously persisted log.
func (e *Engine) replay(ctx context.Context, logRow *models.TransactionLog) *Result {
	result := &Result{
		Success:      logRow.Status == models.StatusCompleted,
		IsIdempotent: true,
		Transaction:  logRow,
	}
	switch logRow.Status {
	case models.StatusCompleted:
		result.Message = "transfer completed"
	case models.StatusFailed:
		result.Message = logRow.ErrorMessage
	case models.StatusPending:
		result.Message = "previously pending"
	}
	if logRow.Status != models.StatusPending {
		e.cacheSet(ctx, logRow.IdempotencyKey, logRow)
	}
	return result
}

func (e *Engine) cacheGet(ctx context.Context, key string) (*models.TransactionLog, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(ctx, key)
}

func (e *Engine) cacheSet(ctx context.Context, key string, logRow *models.TransactionLog) {
	if e.cache == nil {
		return
	}
	e.cache.Set(ctx, key, logRow)
}

// CreateWallet creates a wallet with an optional non-negative initial
// balance.
func (e *Engine) CreateWallet(ctx context.Context, initialBalance decimal.Decimal) (*models.Wallet, error) {
	if money.IsNegative(initialBalance) {
		return nil, fmt.Errorf("%w: initial balance must not be negative", ErrInvalidTransfer)
	}
	return e.repo.CreateWallet(ctx, initialBalance)
}

// GetWallet fetches a wallet by id.
func (e *Engine) GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	w, err := e.repo.GetWallet(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}
	return w, nil
}

// GetTransactionHistory lists transfers touching the wallet as source or
// destination, most recent first.
func (e *Engine) GetTransactionHistory(ctx context.Context, walletID uuid.UUID, limit int) ([]models.TransactionLog, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return e.repo.ListTransactions(ctx, walletID, limit)
}

// GetLedger lists a wallet's ledger entries with transaction-log context,
// most recent first.
func (e *Engine) GetLedger(ctx context.Context, walletID uuid.UUID, limit int) ([]models.LedgerEntryDetail, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return e.repo.ListLedger(ctx, walletID, limit)
}
