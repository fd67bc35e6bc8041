package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"wallet-api/internal/domain/transfer"
	"wallet-api/internal/infrastructure/messaging"
	"wallet-api/internal/pkg/errors"
	"wallet-api/internal/pkg/logging"
	"wallet-api/internal/pkg/money"
	metrics "wallet-api/internal/pkg/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func MakeCreateWalletHandler(container HandlerDependencies) gin.HandlerFunc {
	engine := container.GetTransferEngine()
	publisher := container.GetEventPublisher()

	return func(c *gin.Context) {
		var req struct {
			InitialBalance string `json:"initial_balance"`
		}

		// An empty body means "zero balance"; only reject malformed JSON.
		if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
			apiErr := errors.NewValidationError("Invalid request format")
			logging.Warn("Invalid JSON in create wallet request", map[string]interface{}{
				"error": err.Error(),
				"ip":    c.ClientIP(),
			})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		initial := decimal.Zero
		if req.InitialBalance != "" {
			var err error
			initial, err = money.Parse(req.InitialBalance)
			if err != nil {
				apiErr := errors.NewValidationError("Invalid initial_balance format")
				c.JSON(apiErr.Status, apiErr)
				return
			}
		}

		wallet, err := engine.CreateWallet(c.Request.Context(), initial)
		if err != nil {
			if stderrors.Is(err, transfer.ErrInvalidTransfer) {
				apiErr := errors.NewInvalidTransferError(err.Error())
				c.JSON(apiErr.Status, apiErr)
				return
			}
			apiErr := errors.NewInternalServerError()
			logging.Error("Failed to create wallet", err, nil)
			c.JSON(apiErr.Status, apiErr)
			return
		}

		metrics.RecordWalletCreation()

		event := messaging.WalletCreatedEvent{
			WalletID:       wallet.ID.String(),
			InitialBalance: money.Fixed(wallet.Balance, money.ScaleCents),
			Timestamp:      time.Now().UTC(),
		}
		if err := publisher.PublishWalletCreated(event); err != nil {
			logging.Error("Failed to publish wallet created event", err, map[string]interface{}{
				"wallet_id": event.WalletID,
			})
			// Don't fail the request if event publishing fails (graceful degradation)
		}

		logging.Info("Wallet created", map[string]interface{}{
			"wallet_id": wallet.ID,
			"balance":   money.Fixed(wallet.Balance, money.ScaleCents),
			"ip":        c.ClientIP(),
		})

		c.JSON(http.StatusCreated, wallet)
	}
}

func MakeGetWalletHandler(container HandlerDependencies) gin.HandlerFunc {
	engine := container.GetTransferEngine()

	return func(c *gin.Context) {
		id, ok := parseIDParam(c)
		if !ok {
			return
		}

		wallet, err := engine.GetWallet(c.Request.Context(), id)
		if err != nil {
			if stderrors.Is(err, transfer.ErrWalletNotFound) {
				apiErr := errors.NewWalletNotFoundError()
				c.JSON(apiErr.Status, apiErr)
				return
			}
			apiErr := errors.NewInternalServerError()
			logging.Error("Failed to get wallet", err, map[string]interface{}{"wallet_id": id})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusOK, wallet)
	}
}

func MakeListTransactionsHandler(container HandlerDependencies) gin.HandlerFunc {
	engine := container.GetTransferEngine()

	return func(c *gin.Context) {
		id, ok := parseIDParam(c)
		if !ok {
			return
		}

		logs, err := engine.GetTransactionHistory(c.Request.Context(), id, parseLimit(c, transfer.DefaultHistoryLimit))
		if err != nil {
			apiErr := errors.NewInternalServerError()
			logging.Error("Failed to list transactions", err, map[string]interface{}{"wallet_id": id})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"wallet_id": id, "transactions": logs})
	}
}

func MakeListLedgerHandler(container HandlerDependencies) gin.HandlerFunc {
	engine := container.GetTransferEngine()

	return func(c *gin.Context) {
		id, ok := parseIDParam(c)
		if !ok {
			return
		}

		entries, err := engine.GetLedger(c.Request.Context(), id, parseLimit(c, transfer.DefaultHistoryLimit))
		if err != nil {
			apiErr := errors.NewInternalServerError()
			logging.Error("Failed to list ledger", err, map[string]interface{}{"wallet_id": id})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"wallet_id": id, "ledger": entries})
	}
}

// parseIDParam reads the :id path parameter as a UUID, writing the error
// response itself on failure.
func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apiErr := errors.NewValidationError("Invalid ID format")
		c.JSON(apiErr.Status, apiErr)
		return uuid.Nil, false
	}
	return id, true
}

// parseLimit reads the limit query parameter, falling back to the default
// for absent or unusable values.
func parseLimit(c *gin.Context, defaultLimit int) int {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	return limit
}
