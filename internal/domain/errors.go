package domain

import (
	"errors"
	"fmt"
)

// Validation failures: the caller can retry after correcting input.
var (
	ErrEmptyCart        = errors.New("order must contain at least one item")
	ErrInvalidQuantity  = errors.New("quantity out of range")
	ErrCartTotalTooLow  = errors.New("cart total below minimum")
	ErrCartTotalTooHigh = errors.New("cart total above maximum")
	ErrAmountMismatch   = errors.New("payment amount does not match order total")
	ErrInvalidInput     = errors.New("invalid input")
)

// Missing referenced entities.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// State conflicts: not retryable without changing state.
var (
	ErrProductInactive   = errors.New("product is not available")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrAlreadyCancelled  = errors.New("order is already cancelled")
	ErrInvalidOrderState = errors.New("order is not in CREATED status")
	ErrPaymentExists     = errors.New("payment already exists for order")
)

// Access.
var (
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrEmailTaken   = errors.New("user with this email already exists")
)

// InsufficientStockError names the product that could not be covered.
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
