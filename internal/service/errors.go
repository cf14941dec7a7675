package service

import "errors"

// Sentinel error kinds surfaced by the services. Handlers classify them with
// errors.Is to pick the HTTP status; the retry helper uses IsRetryable to
// decide whether a failed store operation may be re-attempted.
//
// Validation errors (not-found, insufficient stock, invalid quantity) are
// never retried — they describe the request, not the store.
var (
	ErrProductNotFound       = errors.New("product not found")
	ErrProductInactive       = errors.New("product is inactive")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrInvalidInput          = errors.New("invalid input")
	ErrSaleNotFound          = errors.New("sale not found")
	ErrExpenseNotFound       = errors.New("expense not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountLocked         = errors.New("account temporarily locked")
	ErrInvoiceNumberConflict = errors.New("invoice number conflict")
	ErrStoreTimeout          = errors.New("store operation timed out")
	ErrStoreConflict         = errors.New("store conflict")
)

// IsRetryable reports whether the error is a transient store failure that a
// bounded retry may resolve.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInvoiceNumberConflict) ||
		errors.Is(err, ErrStoreTimeout) ||
		errors.Is(err, ErrStoreConflict)
}
