package components

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"wallet-api/internal/api/middleware"
	"wallet-api/internal/api/routes"
	"wallet-api/internal/config"
	"wallet-api/internal/domain/interest"
	"wallet-api/internal/domain/transfer"
	"wallet-api/internal/infrastructure/cache"
	"wallet-api/internal/infrastructure/database"
	"wallet-api/internal/infrastructure/database/postgres"
	"wallet-api/internal/infrastructure/messaging"
	"wallet-api/internal/infrastructure/messaging/kafka"
	"wallet-api/internal/pkg/logging"
	"wallet-api/internal/pkg/money"

	"github.com/gin-gonic/gin"
)

// Container holds all application components and their dependencies
type Container struct {
	Config         *config.Config
	Database       database.Repository
	Cache          *cache.IdempotencyCache
	TransferEngine *transfer.Engine
	InterestEngine *interest.Engine
	EventPublisher messaging.EventPublisher
	Router         *gin.Engine
	Server         *http.Server
}

var (
	instance     *Container
	instanceOnce sync.Once
	instanceErr  error
)

// GetInstance returns the singleton container instance.
// Uses sync.Once to ensure it's only initialized once.
func GetInstance() (*Container, error) {
	instanceOnce.Do(func() {
		instance, instanceErr = newContainer()
	})
	return instance, instanceErr
}

// New creates and initializes all application components.
func New() (*Container, error) {
	return GetInstance()
}

func newContainer() (*Container, error) {
	container := &Container{}

	// Decimal settings must be fixed before any engine computes.
	money.Init()

	container.Config = config.Load()
	logging.Init(container.Config)
	logging.Info("Logger initialized", map[string]interface{}{
		"level": container.Config.Logging.Level,
	})

	if err := container.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := container.initCache(); err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	if err := container.initEventPublisher(); err != nil {
		return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	container.TransferEngine = transfer.NewEngine(container.Database, container.Cache)
	container.InterestEngine = interest.NewEngine(container.Database)

	if err := container.initServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	logging.Info("All components initialized successfully", nil)
	return container, nil
}

// initDatabase sets up the database connection
func (c *Container) initDatabase() error {
	dbConfig := postgres.NewConfigFromEnv()

	repo, err := postgres.NewRepository(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create PostgreSQL repository: %w", err)
	}

	database.Repo = repo
	c.Database = repo

	logging.Info("Database initialized", map[string]interface{}{
		"host":     dbConfig.Host,
		"port":     dbConfig.Port,
		"database": dbConfig.Database,
	})
	return nil
}

// initCache sets up the optional idempotency cache. A missing or disabled
// cache degrades to the database-only path.
func (c *Container) initCache() error {
	cacheConfig := cache.NewConfigFromEnv()

	idempotencyCache, err := cache.New(cacheConfig)
	if err != nil {
		logging.Warn("Failed to initialize idempotency cache, continuing without it", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	if idempotencyCache == nil {
		logging.Info("Idempotency cache disabled", nil)
		return nil
	}

	c.Cache = idempotencyCache
	logging.Info("Idempotency cache initialized", map[string]interface{}{
		"host": cacheConfig.Host,
		"port": cacheConfig.Port,
	})
	return nil
}

// initEventPublisher sets up the Kafka event publisher
func (c *Container) initEventPublisher() error {
	if os.Getenv("KAFKA_ENABLED") == "false" {
		logging.Info("Kafka disabled, using no-op event publisher", nil)
		c.EventPublisher = messaging.NewNoOpEventPublisher()
		return nil
	}

	kafkaConfig := kafka.NewConfigFromEnv()

	publisher, err := messaging.NewKafkaEventPublisher(kafkaConfig)
	if err != nil {
		// The API stays up without Kafka; events degrade to no-ops.
		logging.Warn("Failed to initialize Kafka, using no-op event publisher", map[string]interface{}{
			"error": err.Error(),
		})
		c.EventPublisher = messaging.NewNoOpEventPublisher()
		return nil
	}

	c.EventPublisher = publisher
	logging.Info("Kafka event publisher initialized", map[string]interface{}{
		"brokers": kafkaConfig.Brokers,
	})
	return nil
}

// initServer sets up the HTTP server with all middleware and routes
func (c *Container) initServer() error {
	if c.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	c.Router = gin.Default()
	c.Router.Use(middleware.CORS(c.Config))
	routes.RegisterRoutes(c.Router, c)

	c.Server = &http.Server{
		Addr:           ":" + c.Config.Server.Port,
		Handler:        c.Router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logging.Info("HTTP server configured", map[string]interface{}{
		"port": c.Config.Server.Port,
	})
	return nil
}

// Start begins serving HTTP requests and blocks until shutdown.
func (c *Container) Start() error {
	logging.Info("Starting HTTP server", map[string]interface{}{
		"address": c.Server.Addr,
	})

	go func() {
		if err := c.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Server failed to start", err, nil)
			os.Exit(1)
		}
	}()

	c.waitForShutdown()
	return nil
}

// waitForShutdown handles graceful shutdown
func (c *Container) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", err, nil)
	}

	logging.Info("Server shutdown complete", nil)
}

// Shutdown gracefully stops all components
func (c *Container) Shutdown(ctx context.Context) error {
	if err := c.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			logging.Error("Failed to close event publisher", err, nil)
		}
	}

	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			logging.Error("Failed to close idempotency cache", err, nil)
		}
	}

	if c.Database != nil {
		c.Database.Close()
	}

	return nil
}

// GetDatabase returns the database repository
func (c *Container) GetDatabase() database.Repository {
	return c.Database
}

// GetTransferEngine returns the wallet transfer engine
func (c *Container) GetTransferEngine() *transfer.Engine {
	return c.TransferEngine
}

// GetInterestEngine returns the interest engine
func (c *Container) GetInterestEngine() *interest.Engine {
	return c.InterestEngine
}

// GetEventPublisher returns the event publisher
func (c *Container) GetEventPublisher() messaging.EventPublisher {
	return c.EventPublisher
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRouter returns the Gin router
func (c *Container) GetRouter() *gin.Engine {
	return c.Router
}
