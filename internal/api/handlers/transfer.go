package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"wallet-api/internal/domain/transfer"
	"wallet-api/internal/infrastructure/messaging"
	"wallet-api/internal/pkg/errors"
	"wallet-api/internal/pkg/logging"
	"wallet-api/internal/pkg/money"
	metrics "wallet-api/internal/pkg/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferRequest is the wire form of a transfer command. The idempotency
// key may come from the body or the Idempotency-Key header; the body wins.
type TransferRequest struct {
	FromWalletID   string `json:"from_wallet_id" binding:"required"`
	ToWalletID     string `json:"to_wallet_id" binding:"required"`
	Amount         string `json:"amount" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

func MakeTransferHandler(container HandlerDependencies) gin.HandlerFunc {
	engine := container.GetTransferEngine()
	publisher := container.GetEventPublisher()

	return func(c *gin.Context) {
		var req TransferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apiErr := errors.NewValidationError("Invalid request format")
			logging.Warn("Invalid JSON in transfer request", map[string]interface{}{
				"error": err.Error(),
				"ip":    c.ClientIP(),
			})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		if req.IdempotencyKey == "" {
			req.IdempotencyKey = c.GetHeader("Idempotency-Key")
		}

		fromID, err := uuid.Parse(req.FromWalletID)
		if err != nil {
			apiErr := errors.NewValidationError("Invalid from_wallet_id format")
			c.JSON(apiErr.Status, apiErr)
			return
		}
		toID, err := uuid.Parse(req.ToWalletID)
		if err != nil {
			apiErr := errors.NewValidationError("Invalid to_wallet_id format")
			c.JSON(apiErr.Status, apiErr)
			return
		}
		amount, err := money.Parse(req.Amount)
		if err != nil {
			apiErr := errors.NewValidationError("Invalid amount format")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		result, err := engine.Execute(c.Request.Context(), transfer.Request{
			IdempotencyKey: req.IdempotencyKey,
			FromWalletID:   fromID,
			ToWalletID:     toID,
			Amount:         amount,
		})
		if err != nil {
			metrics.RecordTransfer("failed")
			apiErr := mapTransferError(err)
			logging.Warn("Transfer rejected", map[string]interface{}{
				"idempotency_key": req.IdempotencyKey,
				"from_wallet_id":  req.FromWalletID,
				"to_wallet_id":    req.ToWalletID,
				"error":           err.Error(),
				"ip":              c.ClientIP(),
			})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		status := http.StatusCreated
		if result.IsIdempotent {
			status = http.StatusOK
			metrics.RecordTransfer("replayed")
		} else {
			metrics.RecordTransfer("completed")
			amountFloat, _ := result.Transaction.Amount.Float64()
			metrics.RecordTransferAmount(amountFloat)

			event := messaging.TransferCompletedEvent{
				TransactionLogID: result.Transaction.ID.String(),
				IdempotencyKey:   result.Transaction.IdempotencyKey,
				FromWalletID:     result.Transaction.FromWalletID.String(),
				ToWalletID:       result.Transaction.ToWalletID.String(),
				Amount:           money.Fixed(result.Transaction.Amount, money.ScaleCents),
				Timestamp:        time.Now().UTC(),
			}
			if err := publisher.PublishTransferCompleted(event); err != nil {
				logging.Error("Failed to publish transfer completed event", err, map[string]interface{}{
					"transaction_log_id": event.TransactionLogID,
				})
			}
		}

		c.JSON(status, gin.H{
			"success":      result.Success,
			"isIdempotent": result.IsIdempotent,
			"message":      result.Message,
			"transaction":  result.Transaction,
		})
	}
}

// mapTransferError converts engine error kinds to caller-visible status
// codes: invalid input and insufficient funds are Bad Request, missing
// wallets Not Found, everything else Internal Error.
func mapTransferError(err error) errors.APIError {
	switch {
	case stderrors.Is(err, transfer.ErrMissingIdempotencyKey):
		return errors.NewMissingIdempotencyKeyError()
	case stderrors.Is(err, transfer.ErrInvalidTransfer):
		return errors.NewInvalidTransferError(err.Error())
	case stderrors.Is(err, transfer.ErrInsufficientFunds):
		return errors.NewInsufficientFundsError(err.Error())
	case stderrors.Is(err, transfer.ErrWalletNotFound):
		return errors.NewWalletNotFoundError()
	default:
		return errors.NewInternalServerError()
	}
}
