package testenv

import (
	"context"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"wallet-api/internal/api/routes"
	"wallet-api/internal/config"
	"wallet-api/internal/domain/interest"
	"wallet-api/internal/domain/transfer"
	"wallet-api/internal/infrastructure/database"
	dbpostgres "wallet-api/internal/infrastructure/database/postgres"
	"wallet-api/internal/infrastructure/messaging"
	"wallet-api/internal/pkg/logging"
	"wallet-api/internal/pkg/money"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testContainerOnce sync.Once
	testContainerErr  error
	adminPool         *pgxpool.Pool
)

// PostgresContainerConfig holds configuration for the test container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string
}

// DefaultPostgresConfig returns the default configuration for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "wallets",
		Username: "wallets",
		Password: "wallets_test_pass",
		Image:    "postgres:16-alpine",
	}
}

// SetupIntegrationTest initializes the shared PostgreSQL testcontainer and
// wires the repository. The container starts once and is reused by every
// test in the binary.
func SetupIntegrationTest(t *testing.T) {
	testContainerOnce.Do(func() {
		money.Init()
		logging.Init(config.Load())

		ctx := context.Background()
		cfg := DefaultPostgresConfig()

		container, err := postgres.Run(ctx,
			cfg.Image,
			postgres.WithDatabase(cfg.Database),
			postgres.WithUsername(cfg.Username),
			postgres.WithPassword(cfg.Password),
			postgres.WithInitScripts("../../../internal/infrastructure/database/postgres/migrations/000001_init_schema.up.sql"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			testContainerErr = fmt.Errorf("failed to start PostgreSQL testcontainer: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			testContainerErr = fmt.Errorf("failed to get container host: %w", err)
			return
		}
		port, err := container.MappedPort(ctx, "5432")
		if err != nil {
			testContainerErr = fmt.Errorf("failed to get container port: %w", err)
			return
		}

		dbConfig := &dbpostgres.Config{
			Host:              host,
			Port:              port.Int(),
			Database:          cfg.Database,
			User:              cfg.Username,
			Password:          cfg.Password,
			SSLMode:           "disable",
			MaxOpenConns:      25,
			MaxIdleConns:      5,
			ConnMaxLifetime:   "30m",
			ConnMaxIdleTime:   "5m",
			HealthCheckPeriod: "1m",
		}

		repo, err := dbpostgres.NewRepository(dbConfig)
		if err != nil {
			testContainerErr = fmt.Errorf("failed to create repository: %w", err)
			return
		}
		database.Repo = repo

		// Separate admin connection for between-test cleanup.
		adminPool, err = pgxpool.New(ctx, dbConfig.ConnectionString())
		if err != nil {
			testContainerErr = fmt.Errorf("failed to create admin pool: %w", err)
			return
		}

		connStr, _ := container.ConnectionString(ctx, "sslmode=disable")
		log.Printf("PostgreSQL testcontainer initialized: %s", connStr)
	})

	require.NoError(t, testContainerErr, "Failed to initialize test container")
}

// ResetDatabase truncates all tables between tests.
func ResetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	queries := []string{
		"TRUNCATE TABLE ledgers CASCADE",
		"TRUNCATE TABLE transaction_logs CASCADE",
		"TRUNCATE TABLE wallets CASCADE",
		"TRUNCATE TABLE interest_logs CASCADE",
		"TRUNCATE TABLE accounts CASCADE",
	}
	for _, query := range queries {
		_, err := adminPool.Exec(ctx, query)
		require.NoError(t, err, "failed to reset database")
	}
}

// testDependencies implements handlers.HandlerDependencies over the shared
// repository with a no-op publisher and no cache.
type testDependencies struct {
	repo           database.Repository
	transferEngine *transfer.Engine
	interestEngine *interest.Engine
	publisher      messaging.EventPublisher
}

func (d *testDependencies) GetDatabase() database.Repository           { return d.repo }
func (d *testDependencies) GetTransferEngine() *transfer.Engine        { return d.transferEngine }
func (d *testDependencies) GetInterestEngine() *interest.Engine        { return d.interestEngine }
func (d *testDependencies) GetEventPublisher() messaging.EventPublisher { return d.publisher }

// SetupRouter builds a gin router backed by the shared test repository.
func SetupRouter(t *testing.T) *gin.Engine {
	SetupIntegrationTest(t)

	deps := &testDependencies{
		repo:           database.Repo,
		transferEngine: transfer.NewEngine(database.Repo, nil),
		interestEngine: interest.NewEngine(database.Repo),
		publisher:      messaging.NewNoOpEventPublisher(),
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	routes.RegisterRoutes(router, deps)
	return router
}
