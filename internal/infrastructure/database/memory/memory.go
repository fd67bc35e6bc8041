// Package memory implements the persistence contract in process memory.
// It mirrors the semantics the engines rely on from PostgreSQL: exclusive
// row locks that block concurrent lockers, unique-key inserts that block
// behind an uncommitted writer and fail with ErrDuplicateKey once that
// writer commits, and transaction scopes whose writes stay invisible until
// commit. Used by engine unit tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-api/internal/domain/models"
	"wallet-api/internal/infrastructure/database"
	"wallet-api/internal/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is an in-memory database.Repository.
type Repository struct {
	mu sync.Mutex

	wallets  map[uuid.UUID]*models.Wallet
	logs     map[uuid.UUID]*models.TransactionLog
	logKeys  map[string]uuid.UUID
	ledgers  []models.LedgerEntry
	accounts map[uuid.UUID]*models.Account
	interest map[uuid.UUID]*models.InterestLog
	// interestKeys indexes committed logs by "<account>|<yyyy-mm-dd>".
	interestKeys map[string]uuid.UUID

	rowLocks map[string]*rowLock
	// key reservations held by open transactions; a duplicate insert waits
	// on the reservation before deciding between proceed and ErrDuplicateKey.
	logReservations      map[string]*reservation
	interestReservations map[string]*reservation
}

// New creates an empty in-memory repository.
func New() *Repository {
	return &Repository{
		wallets:              make(map[uuid.UUID]*models.Wallet),
		logs:                 make(map[uuid.UUID]*models.TransactionLog),
		logKeys:              make(map[string]uuid.UUID),
		accounts:             make(map[uuid.UUID]*models.Account),
		interest:             make(map[uuid.UUID]*models.InterestLog),
		interestKeys:         make(map[string]uuid.UUID),
		rowLocks:             make(map[string]*rowLock),
		logReservations:      make(map[string]*reservation),
		interestReservations: make(map[string]*reservation),
	}
}

type rowLock struct {
	ch chan struct{}
}

type reservation struct {
	owner     *memTx
	done      chan struct{}
	committed bool
}

// memTx stages writes until Commit. Reads through the transaction overlay
// staged state on top of committed state.
type memTx struct {
	repo   *Repository
	mu     sync.Mutex
	closed bool

	locks          []*rowLock
	logKeysHeld    []string
	intKeysHeld    []string
	stagedLogs     map[uuid.UUID]*models.TransactionLog
	stagedWallets  map[uuid.UUID]decimal.Decimal
	stagedAccounts map[uuid.UUID]decimal.Decimal
	stagedLedgers  []models.LedgerEntry
	stagedInterest map[uuid.UUID]*models.InterestLog
}

func newMemTx(repo *Repository) *memTx {
	return &memTx{
		repo:           repo,
		stagedLogs:     make(map[uuid.UUID]*models.TransactionLog),
		stagedWallets:  make(map[uuid.UUID]decimal.Decimal),
		stagedAccounts: make(map[uuid.UUID]decimal.Decimal),
		stagedInterest: make(map[uuid.UUID]*models.InterestLog),
	}
}

// Begin opens a transaction. Isolation is accepted for contract parity;
// the single-process store serializes through locks and reservations.
func (r *Repository) Begin(ctx context.Context, iso database.Isolation) (database.Tx, error) {
	return newMemTx(r), nil
}

func (t *memTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	r := t.repo
	r.mu.Lock()
	now := time.Now().UTC()
	for id, logRow := range t.stagedLogs {
		cp := *logRow
		r.logs[id] = &cp
		r.logKeys[cp.IdempotencyKey] = id
	}
	for id, balance := range t.stagedWallets {
		if w, ok := r.wallets[id]; ok {
			w.Balance = balance
			w.UpdatedAt = now
		}
	}
	for id, balance := range t.stagedAccounts {
		if a, ok := r.accounts[id]; ok {
			a.Balance = balance
			a.UpdatedAt = now
		}
	}
	r.ledgers = append(r.ledgers, t.stagedLedgers...)
	for id, logRow := range t.stagedInterest {
		cp := *logRow
		r.interest[id] = &cp
		r.interestKeys[interestKey(cp.AccountID, cp.CalculationDate)] = id
	}
	t.resolveLocked(true)
	r.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	t.repo.mu.Lock()
	t.resolveLocked(false)
	t.repo.mu.Unlock()
	return nil
}

// resolveLocked releases key reservations and row locks. Caller holds
// repo.mu.
func (t *memTx) resolveLocked(committed bool) {
	r := t.repo
	for _, key := range t.logKeysHeld {
		if res, ok := r.logReservations[key]; ok && res.owner == t {
			res.committed = committed
			delete(r.logReservations, key)
			close(res.done)
		}
	}
	for _, key := range t.intKeysHeld {
		if res, ok := r.interestReservations[key]; ok && res.owner == t {
			res.committed = committed
			delete(r.interestReservations, key)
			close(res.done)
		}
	}
	for _, l := range t.locks {
		<-l.ch
	}
}

func (r *Repository) lockRow(ctx context.Context, tx *memTx, key string) error {
	r.mu.Lock()
	l, ok := r.rowLocks[key]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		r.rowLocks[key] = l
	}
	r.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		tx.mu.Lock()
		tx.locks = append(tx.locks, l)
		tx.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func asMemTx(tx database.Tx) *memTx {
	if tx == nil {
		return nil
	}
	return tx.(*memTx)
}

func interestKey(accountID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s|%s", accountID, date.UTC().Format("2006-01-02"))
}

// --- wallets ---

func (r *Repository) CreateWallet(ctx context.Context, initialBalance decimal.Decimal) (*models.Wallet, error) {
	now := time.Now().UTC()
	w := &models.Wallet{
		ID:        uuid.New(),
		Balance:   money.Round(initialBalance, money.ScaleCents),
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.wallets[w.ID] = w
	r.mu.Unlock()

	cp := *w
	return &cp, nil
}

func (r *Repository) GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *Repository) LockWalletForUpdate(ctx context.Context, tx database.Tx, id uuid.UUID) (*models.Wallet, error) {
	t := asMemTx(tx)
	if t == nil {
		return nil, fmt.Errorf("lock requires an open transaction")
	}
	if err := r.lockRow(ctx, t, "wallet:"+id.String()); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	if staged, ok := t.stagedWallets[id]; ok {
		cp.Balance = staged
	}
	return &cp, nil
}

func (r *Repository) UpdateWalletBalance(ctx context.Context, tx database.Tx, id uuid.UUID, balance decimal.Decimal) error {
	balance = money.Round(balance, money.ScaleCents)
	if t := asMemTx(tx); t != nil {
		t.mu.Lock()
		t.stagedWallets[id] = balance
		t.mu.Unlock()
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.wallets[id]; ok {
		w.Balance = balance
		w.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// --- transaction logs ---

func (r *Repository) InsertTransactionLog(ctx context.Context, tx database.Tx, logRow *models.TransactionLog) error {
	t := asMemTx(tx)
	key := logRow.IdempotencyKey

	for {
		r.mu.Lock()
		if _, exists := r.logKeys[key]; exists {
			r.mu.Unlock()
			return fmt.Errorf("%w: transaction_logs.idempotency_key", database.ErrDuplicateKey)
		}
		res, held := r.logReservations[key]
		if !held {
			break
		}
		if res.owner == t {
			r.mu.Unlock()
			return fmt.Errorf("%w: transaction_logs.idempotency_key", database.ErrDuplicateKey)
		}
		done := res.done
		r.mu.Unlock()

		// Another open transaction owns this key; wait for it to resolve,
		// the way a unique-index insert waits in Postgres.
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	// repo.mu held here.

	if t == nil {
		cp := *logRow
		r.logs[cp.ID] = &cp
		r.logKeys[key] = cp.ID
		r.mu.Unlock()
		return nil
	}

	res := &reservation{owner: t, done: make(chan struct{})}
	r.logReservations[key] = res
	r.mu.Unlock()

	t.mu.Lock()
	t.logKeysHeld = append(t.logKeysHeld, key)
	cp := *logRow
	t.stagedLogs[cp.ID] = &cp
	t.mu.Unlock()
	return nil
}

func (r *Repository) GetTransactionLogByKey(ctx context.Context, idempotencyKey string) (*models.TransactionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.logKeys[idempotencyKey]
	if !ok {
		return nil, nil
	}
	cp := *r.logs[id]
	return &cp, nil
}

func (r *Repository) UpdateTransactionLogStatus(ctx context.Context, tx database.Tx, id uuid.UUID, status models.TransactionStatus, errorMessage string) error {
	now := time.Now().UTC()
	if t := asMemTx(tx); t != nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if staged, ok := t.stagedLogs[id]; ok {
			staged.Status = status
			staged.ErrorMessage = errorMessage
			staged.UpdatedAt = now
			return nil
		}
		r.mu.Lock()
		committed, ok := r.logs[id]
		r.mu.Unlock()
		if !ok {
			return nil
		}
		cp := *committed
		cp.Status = status
		cp.ErrorMessage = errorMessage
		cp.UpdatedAt = now
		t.stagedLogs[id] = &cp
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if logRow, ok := r.logs[id]; ok {
		logRow.Status = status
		logRow.ErrorMessage = errorMessage
		logRow.UpdatedAt = now
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.TransactionLog, error) {
	r.mu.Lock()
	var logs []models.TransactionLog
	for _, l := range r.logs {
		if l.FromWalletID == walletID || l.ToWalletID == walletID {
			logs = append(logs, *l)
		}
	}
	r.mu.Unlock()

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// --- ledgers ---

func (r *Repository) InsertLedgerEntries(ctx context.Context, tx database.Tx, entries []models.LedgerEntry) error {
	if t := asMemTx(tx); t != nil {
		t.mu.Lock()
		t.stagedLedgers = append(t.stagedLedgers, entries...)
		t.mu.Unlock()
		return nil
	}

	r.mu.Lock()
	r.ledgers = append(r.ledgers, entries...)
	r.mu.Unlock()
	return nil
}

func (r *Repository) ListLedger(ctx context.Context, walletID uuid.UUID, limit int) ([]models.LedgerEntryDetail, error) {
	r.mu.Lock()
	var entries []models.LedgerEntryDetail
	for _, e := range r.ledgers {
		if e.WalletID != walletID {
			continue
		}
		detail := models.LedgerEntryDetail{LedgerEntry: e}
		if logRow, ok := r.logs[e.TransactionLogID]; ok {
			detail.IdempotencyKey = logRow.IdempotencyKey
			detail.TransactionStatus = logRow.Status
		}
		entries = append(entries, detail)
	}
	r.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// --- accounts ---

func (r *Repository) CreateAccount(ctx context.Context, initialBalance decimal.Decimal) (*models.Account, error) {
	now := time.Now().UTC()
	a := &models.Account{
		ID:        uuid.New(),
		Balance:   money.Round(initialBalance, money.ScaleInterest),
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.accounts[a.ID] = a
	r.mu.Unlock()

	cp := *a
	return &cp, nil
}

func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *Repository) GetAccountForUpdate(ctx context.Context, tx database.Tx, id uuid.UUID) (*models.Account, error) {
	t := asMemTx(tx)
	if t == nil {
		return nil, fmt.Errorf("lock requires an open transaction")
	}
	if err := r.lockRow(ctx, t, "account:"+id.String()); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	if staged, ok := t.stagedAccounts[id]; ok {
		cp.Balance = staged
	}
	return &cp, nil
}

func (r *Repository) UpdateAccountBalance(ctx context.Context, tx database.Tx, id uuid.UUID, balance decimal.Decimal) error {
	balance = money.Round(balance, money.ScaleInterest)
	if t := asMemTx(tx); t != nil {
		t.mu.Lock()
		t.stagedAccounts[id] = balance
		t.mu.Unlock()
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		a.Balance = balance
		a.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// --- interest logs ---

func (r *Repository) InsertInterestLog(ctx context.Context, tx database.Tx, logRow *models.InterestLog) error {
	t := asMemTx(tx)
	key := interestKey(logRow.AccountID, logRow.CalculationDate)

	for {
		r.mu.Lock()
		if _, exists := r.interestKeys[key]; exists {
			r.mu.Unlock()
			return fmt.Errorf("%w: interest_logs(account_id, calculation_date)", database.ErrDuplicateKey)
		}
		res, held := r.interestReservations[key]
		if !held {
			break
		}
		if res.owner == t {
			r.mu.Unlock()
			return fmt.Errorf("%w: interest_logs(account_id, calculation_date)", database.ErrDuplicateKey)
		}
		done := res.done
		r.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	// repo.mu held here.

	if t == nil {
		cp := *logRow
		r.interest[cp.ID] = &cp
		r.interestKeys[key] = cp.ID
		r.mu.Unlock()
		return nil
	}

	res := &reservation{owner: t, done: make(chan struct{})}
	r.interestReservations[key] = res
	r.mu.Unlock()

	t.mu.Lock()
	t.intKeysHeld = append(t.intKeysHeld, key)
	cp := *logRow
	t.stagedInterest[cp.ID] = &cp
	t.mu.Unlock()
	return nil
}

func (r *Repository) GetInterestLog(ctx context.Context, accountID uuid.UUID, date time.Time) (*models.InterestLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.interestKeys[interestKey(accountID, date)]
	if !ok {
		return nil, nil
	}
	cp := *r.interest[id]
	return &cp, nil
}

func (r *Repository) ListInterestHistory(ctx context.Context, accountID uuid.UUID, limit int) ([]models.InterestLog, error) {
	r.mu.Lock()
	var logs []models.InterestLog
	for _, l := range r.interest {
		if l.AccountID == accountID {
			logs = append(logs, *l)
		}
	}
	r.mu.Unlock()

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CalculationDate.After(logs[j].CalculationDate)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// --- lifecycle ---

func (r *Repository) Ping(ctx context.Context) error { return nil }

func (r *Repository) Close() {}
