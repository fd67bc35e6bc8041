package errors

import (
	"fmt"
	"net/http"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e APIError) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeInternalServer         = "INTERNAL_SERVER_ERROR"
	ErrCodeInsufficientFunds      = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidTransfer        = "INVALID_TRANSFER"
	ErrCodeMissingIdempotencyKey  = "MISSING_IDEMPOTENCY_KEY"
	ErrCodeWalletNotFound         = "WALLET_NOT_FOUND"
	ErrCodeAccountNotFound        = "ACCOUNT_NOT_FOUND"
)

// Error constructors
func NewValidationError(message string) APIError {
	return APIError{
		Code:    ErrCodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func NewNotFoundError(resource string) APIError {
	return APIError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

func NewInternalServerError() APIError {
	return APIError{
		Code:    ErrCodeInternalServer,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}
}

func NewInvalidTransferError(message string) APIError {
	return APIError{
		Code:    ErrCodeInvalidTransfer,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func NewMissingIdempotencyKeyError() APIError {
	return APIError{
		Code:    ErrCodeMissingIdempotencyKey,
		Message: "Idempotency key is required",
		Status:  http.StatusBadRequest,
	}
}

func NewInsufficientFundsError(message string) APIError {
	return APIError{
		Code:    ErrCodeInsufficientFunds,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func NewWalletNotFoundError() APIError {
	return APIError{
		Code:    ErrCodeWalletNotFound,
		Message: "Wallet not found",
		Status:  http.StatusNotFound,
	}
}

func NewAccountNotFoundError() APIError {
	return APIError{
		Code:    ErrCodeAccountNotFound,
		Message: "Account not found",
		Status:  http.StatusNotFound,
	}
}
