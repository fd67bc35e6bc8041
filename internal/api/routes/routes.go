package routes

import (
	"wallet-api/internal/api/handlers"
	"wallet-api/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all routes with the container dependencies
func RegisterRoutes(router *gin.Engine, container handlers.HandlerDependencies) {
	router.Use(middleware.PrometheusMiddleware())

	// Wallet transfer engine
	router.POST("/wallets", handlers.MakeCreateWalletHandler(container))
	router.GET("/wallets/:id", handlers.MakeGetWalletHandler(container))
	router.POST("/wallets/transfer", handlers.MakeTransferHandler(container))
	router.GET("/wallets/:id/transactions", handlers.MakeListTransactionsHandler(container))
	router.GET("/wallets/:id/ledger", handlers.MakeListLedgerHandler(container))

	// Interest accumulator
	router.POST("/accounts", handlers.MakeCreateAccountHandler(container))
	router.GET("/accounts/:id", handlers.MakeGetAccountHandler(container))
	router.POST("/accounts/:id/interest", handlers.MakeDailyInterestHandler(container))
	router.POST("/accounts/:id/interest/range", handlers.MakeInterestRangeHandler(container))
	router.GET("/accounts/:id/interest", handlers.MakeInterestHistoryHandler(container))

	// System endpoints
	router.GET("/healthz", handlers.MakeHealthHandler(container))
	router.GET("/prometheus", handlers.PrometheusMetrics)
}
