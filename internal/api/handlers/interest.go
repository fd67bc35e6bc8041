package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"wallet-api/internal/domain/interest"
	"wallet-api/internal/infrastructure/messaging"
	"wallet-api/internal/pkg/errors"
	"wallet-api/internal/pkg/logging"
	"wallet-api/internal/pkg/money"
	metrics "wallet-api/internal/pkg/telemetry"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

func MakeCreateAccountHandler(container HandlerDependencies) gin.HandlerFunc {
	engine := container.GetInterestEngine()
	publisher := container.GetEventPublisher()

	return func(c *gin.Context) {
		var req struct {
			InitialBalance string `json:"initial_balance"`
		}

		// An empty body means "zero balance"; only reject malformed JSON.
		if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
			apiErr := errors.NewValidationError("Invalid request format")
			logging.Warn("Invalid JSON in create account request", map[string]interface{}{
				"error": err.Error(),
				"ip":    c.ClientIP(),
			})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		account, err := engine.CreateAccount(c.Request.Context(), req.InitialBalance)
		if err != nil {
			if stderrors.Is(err, interest.ErrInvalidBalance) {
				apiErr := errors.NewValidationError(err.Error())
				c.JSON(apiErr.Status, apiErr)
				return
			}
			apiErr := errors.NewInternalServerError()
			logging.Error("Failed to create account", err, nil)
			c.JSON(apiErr.Status, apiErr)
			return
		}

		metrics.RecordAccountCreation()

		event := messaging.AccountCreatedEvent{
			AccountID:      account.ID.String(),
			InitialBalance: money.Fixed(account.Balance, money.ScaleInterest),
			Timestamp:      time.Now().UTC(),
		}
		if err := publisher.PublishAccountCreated(event); err != nil {
			logging.Error("Failed to publish account created event", err, map[string]interface{}{
				"account_id": event.AccountID,
			})
		}

		c.JSON(http.StatusCreated, account)
	}
}

func MakeGetAccountHandler(container HandlerDependencies) gin.HandlerFunc {
	engine := container.GetInterestEngine()

	return func(c *gin.Context) {
		id, ok := parseIDParam(c)
		if !ok {
			return
		}

		account, err := engine.GetAccount(c.Request.Context(), id)
		if err != nil {
			if stderrors.Is(err, interest.ErrAccountNotFound) {
				apiErr := errors.NewAccountNotFoundError()
				c.JSON(apiErr.Status, apiErr)
				return
			}
			apiErr := errors.NewInternalServerError()
			logging.Error("Failed to get account", err, map[string]interface{}{"account_id": id})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusOK, account)
	}
}

func MakeDailyInterestHandler(container HandlerDependencies) gin.HandlerFunc {
	engine := container.GetInterestEngine()
	publisher := container.GetEventPublisher()

	return func(c *gin.Context) {
		id, ok := parseIDParam(c)
		if !ok {
			return
		}

		var req struct {
			Date string `json:"date"`
		}
		// An empty body means "today"; only reject malformed JSON.
		if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
			apiErr := errors.NewValidationError("Invalid request format")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		date := time.Now().UTC()
		if req.Date != "" {
			parsed, err := time.Parse(dateLayout, req.Date)
			if err != nil {
				apiErr := errors.NewValidationError("Invalid date format, expected YYYY-MM-DD")
				c.JSON(apiErr.Status, apiErr)
				return
			}
			date = parsed
		}

		result, err := engine.CalculateDailyInterest(c.Request.Context(), id, date)
		if err != nil {
			apiErr := mapInterestError(err)
			logging.Warn("Daily interest rejected", map[string]interface{}{
				"account_id": id,
				"error":      err.Error(),
				"ip":         c.ClientIP(),
			})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		status := http.StatusOK
		if result.IsNew {
			status = http.StatusCreated
			metrics.RecordInterestApplication("new")

			event := messaging.InterestAppliedEvent{
				AccountID:       id.String(),
				CalculationDate: result.Log.CalculationDate.Format(dateLayout),
				InterestAmount:  money.Fixed(result.Log.InterestAmount, money.ScaleInterest),
				NewBalance:      money.Fixed(result.Log.NewBalance, money.ScaleInterest),
				Timestamp:       time.Now().UTC(),
			}
			if err := publisher.PublishInterestApplied(event); err != nil {
				logging.Error("Failed to publish interest applied event", err, map[string]interface{}{
					"account_id": event.AccountID,
				})
			}
		} else {
			metrics.RecordInterestApplication("replay")
		}

		c.JSON(status, interestResultJSON(result))
	}
}

func MakeInterestRangeHandler(container HandlerDependencies) gin.HandlerFunc {
	engine := container.GetInterestEngine()

	return func(c *gin.Context) {
		id, ok := parseIDParam(c)
		if !ok {
			return
		}

		var req struct {
			StartDate string `json:"start_date" binding:"required"`
			EndDate   string `json:"end_date" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			apiErr := errors.NewValidationError("Invalid request format")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		start, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			apiErr := errors.NewValidationError("Invalid start_date format, expected YYYY-MM-DD")
			c.JSON(apiErr.Status, apiErr)
			return
		}
		end, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			apiErr := errors.NewValidationError("Invalid end_date format, expected YYYY-MM-DD")
			c.JSON(apiErr.Status, apiErr)
			return
		}
		if end.Before(start) {
			apiErr := errors.NewValidationError("end_date precedes start_date")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		results, err := engine.CalculateForDateRange(c.Request.Context(), id, start, end)
		if err != nil {
			// Partial progress persists; report what was applied alongside
			// the failure.
			apiErr := mapInterestError(err)
			c.JSON(apiErr.Status, gin.H{
				"error":        apiErr,
				"applied_days": len(results),
			})
			return
		}

		applied := 0
		payload := make([]gin.H, 0, len(results))
		for _, r := range results {
			if r.IsNew {
				applied++
			}
			payload = append(payload, interestResultJSON(r))
		}
		metrics.InterestApplicationsTotal.WithLabelValues("new").Add(float64(applied))

		c.JSON(http.StatusOK, gin.H{
			"account_id":   id,
			"applied_days": applied,
			"results":      payload,
		})
	}
}

func MakeInterestHistoryHandler(container HandlerDependencies) gin.HandlerFunc {
	engine := container.GetInterestEngine()

	return func(c *gin.Context) {
		id, ok := parseIDParam(c)
		if !ok {
			return
		}

		logs, err := engine.GetInterestHistory(c.Request.Context(), id, parseLimit(c, interest.DefaultHistoryLimit))
		if err != nil {
			apiErr := errors.NewInternalServerError()
			logging.Error("Failed to list interest history", err, map[string]interface{}{"account_id": id})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"account_id": id, "history": logs})
	}
}

func interestResultJSON(r *interest.Result) gin.H {
	return gin.H{
		"isNew":      r.IsNew,
		"daily_rate": r.DailyRate,
		"log":        r.Log,
	}
}

func mapInterestError(err error) errors.APIError {
	switch {
	case stderrors.Is(err, interest.ErrAccountNotFound):
		return errors.NewAccountNotFoundError()
	case stderrors.Is(err, interest.ErrInvalidBalance):
		return errors.NewValidationError(err.Error())
	default:
		return errors.NewInternalServerError()
	}
}
