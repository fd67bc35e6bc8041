package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"wallet-api/internal/infrastructure/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements database.Repository on a pgx connection pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository with connection pool
func NewRepository(cfg *Config) (*Repository, error) {
	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)

	if maxLifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		poolConfig.MaxConnLifetime = maxLifetime
	}
	if maxIdleTime, err := time.ParseDuration(cfg.ConnMaxIdleTime); err == nil {
		poolConfig.MaxConnIdleTime = maxIdleTime
	}
	if healthCheck, err := time.ParseDuration(cfg.HealthCheckPeriod); err == nil {
		poolConfig.HealthCheckPeriod = healthCheck
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("PostgreSQL connection pool created successfully (max: %d, min: %d)",
		poolConfig.MaxConns, poolConfig.MinConns)

	return &Repository{pool: pool}, nil
}

// Ping verifies the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
		log.Println("PostgreSQL connection pool closed")
	}
}

// pgTx adapts pgx.Tx to database.Tx. pgx reports ErrTxClosed on a second
// Commit or a post-commit Rollback; the contract makes those no-ops.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return nil
		}
		return translateErr(err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return nil
		}
		return translateErr(err)
	}
	return nil
}

// Begin opens a transaction at the requested isolation level.
func (r *Repository) Begin(ctx context.Context, iso database.Isolation) (database.Tx, error) {
	level := pgx.ReadCommitted
	if iso == database.Serializable {
		level = pgx.Serializable
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: level})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

// querier is satisfied by both the pool and a transaction, so repository
// operations can run inside a scope or auto-committed.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) querier(tx database.Tx) querier {
	if tx == nil {
		return r.pool
	}
	return tx.(*pgTx).tx
}

// translateErr maps driver errors onto the contract's sentinels. Unique
// violations (23505) become ErrDuplicateKey; serialization aborts (40001)
// become ErrSerialization.
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", database.ErrDuplicateKey, pgErr.ConstraintName)
		case "40001":
			return fmt.Errorf("%w: %s", database.ErrSerialization, pgErr.Message)
		}
	}
	return err
}
