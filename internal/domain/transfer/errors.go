package transfer

import "errors"

// Engine error kinds. The HTTP adapter maps these to status codes; the
// engine itself never deals in HTTP.
var (
	// ErrMissingIdempotencyKey rejects a transfer submitted without a key.
	// No persistence side effects.
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")

	// ErrInvalidTransfer rejects a non-positive amount, a same-wallet
	// transfer, or a negative initial balance. No persistence side effects.
	ErrInvalidTransfer = errors.New("invalid transfer")

	// ErrWalletNotFound means a wallet in the pair does not exist. On the
	// transfer path a FAILED log is committed before this surfaces.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds means the source balance cannot cover the
	// amount. A FAILED log is committed before this surfaces.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInternalInconsistency means a row that must exist is missing, e.g.
	// a duplicate-key loser that cannot find the winning log.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)
