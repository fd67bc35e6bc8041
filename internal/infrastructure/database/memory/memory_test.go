package memory_test

import (
	"context"
	"testing"
	"time"

	"wallet-api/internal/domain/models"
	"wallet-api/internal/infrastructure/database"
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

func newLog(key string) *models.TransactionLog {
	now := time.Now().UTC()
	return &models.TransactionLog{
		ID:             uuid.New(),
		IdempotencyKey: key,
		FromWalletID:   uuid.New(),
		ToWalletID:     uuid.New(),
		Amount:         money.MustParse("10.00"),
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestUncommittedInsertIsInvisible(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	tx, err := repo.Begin(ctx, database.Serializable)
	require.NoError(t, err)
	require.NoError(t, repo.InsertTransactionLog(ctx, tx, newLog("k")))

	// Not visible to lock-free readers until commit.
	found, err := repo.GetTransactionLogByKey(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, found)

	require.NoError(t, tx.Commit(ctx))

	found, err = repo.GetTransactionLogByKey(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, models.StatusPending, found.Status)
}

func TestRolledBackInsertLeavesNothing(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	tx, err := repo.Begin(ctx, database.Serializable)
	require.NoError(t, err)
	require.NoError(t, repo.InsertTransactionLog(ctx, tx, newLog("k")))
	require.NoError(t, tx.Rollback(ctx))

	found, err := repo.GetTransactionLogByKey(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, found)

	// The key is free again after rollback.
	tx2, err := repo.Begin(ctx, database.Serializable)
	require.NoError(t, err)
	require.NoError(t, repo.InsertTransactionLog(ctx, tx2, newLog("k")))
	require.NoError(t, tx2.Commit(ctx))
}

func TestDuplicateInsertWaitsForOpenTransaction(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	winner, err := repo.Begin(ctx, database.Serializable)
	require.NoError(t, err)
	require.NoError(t, repo.InsertTransactionLog(ctx, winner, newLog("race")))

	// The competing insert must block behind the open transaction and
	// fail with ErrDuplicateKey once it commits.
	errCh := make(chan error, 1)
	go func() {
		loser, err := repo.Begin(ctx, database.Serializable)
		if err != nil {
			errCh <- err
			return
		}
		defer loser.Rollback(ctx)
		errCh <- repo.InsertTransactionLog(ctx, loser, newLog("race"))
	}()

	select {
	case err := <-errCh:
		t.Fatalf("competing insert finished before winner resolved: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, winner.Commit(ctx))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, database.ErrDuplicateKey)
	case <-time.After(time.Second):
		t.Fatal("competing insert never resolved")
	}
}

func TestRowLockBlocksUntilCommit(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	w, err := repo.CreateWallet(ctx, money.MustParse("100.00"))
	require.NoError(t, err)

	holder, err := repo.Begin(ctx, database.Serializable)
	require.NoError(t, err)
	locked, err := repo.LockWalletForUpdate(ctx, holder, w.ID)
	require.NoError(t, err)
	require.NotNil(t, locked)
	require.NoError(t, repo.UpdateWalletBalance(ctx, holder, w.ID, money.MustParse("80.00")))

	balanceCh := make(chan string, 1)
	go func() {
		tx, err := repo.Begin(ctx, database.Serializable)
		if err != nil {
			balanceCh <- err.Error()
			return
		}
		defer tx.Rollback(ctx)
		w2, err := repo.LockWalletForUpdate(ctx, tx, w.ID)
		if err != nil {
			balanceCh <- err.Error()
			return
		}
		balanceCh <- money.Fixed(w2.Balance, money.ScaleCents)
	}()

	select {
	case b := <-balanceCh:
		t.Fatalf("lock acquired while held by another transaction: %s", b)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, holder.Commit(ctx))

	select {
	case b := <-balanceCh:
		// The waiter observes the committed update.
		assert.Equal(t, "80.00", b)
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestLockContextCancellation(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	w, err := repo.CreateWallet(ctx, money.MustParse("1.00"))
	require.NoError(t, err)

	holder, err := repo.Begin(ctx, database.Serializable)
	require.NoError(t, err)
	_, err = repo.LockWalletForUpdate(ctx, holder, w.ID)
	require.NoError(t, err)
	defer holder.Rollback(ctx)

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	waiter, err := repo.Begin(cancelCtx, database.Serializable)
	require.NoError(t, err)
	defer waiter.Rollback(ctx)

	_, err = repo.LockWalletForUpdate(cancelCtx, waiter, w.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
