package settlement

import (
	"errors"
	"fmt"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
)

// ErrCreditRequiresCustomer is returned when udhaar is given to an anonymous buyer.
var ErrCreditRequiresCustomer = errors.New("credit payment requires a customer")

// ValidationError is a malformed request, rejected before any read or write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PaymentMismatchError means cash + upi + credit differs from the cart total.
type PaymentMismatchError struct {
	Total models.Money
	Paid  models.Money
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("payment split %s does not match total %s", e.Paid, e.Total)
}

type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ItemID)
}

func (e *ItemNotFoundError) Unwrap() error { return store.ErrItemNotFound }

type BatchNotFoundError struct {
	ItemID  string
	BatchID string
}

func (e *BatchNotFoundError) Error() string {
	return fmt.Sprintf("batch %s of item %s not found", e.BatchID, e.ItemID)
}

func (e *BatchNotFoundError) Unwrap() error { return store.ErrBatchNotFound }

type CustomerNotFoundError struct {
	CustomerID string
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer %s not found", e.CustomerID)
}

func (e *CustomerNotFoundError) Unwrap() error { return store.ErrCustomerNotFound }

// InsufficientStockError carries what is left so the cart can be corrected.
// BatchID is empty when the line asked for automatic batch selection.
type InsufficientStockError struct {
	ItemID    string
	BatchID   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	if e.BatchID == "" {
		return fmt.Sprintf("insufficient stock for item %s: available %d, requested %d", e.ItemID, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock in batch %s: available %d, requested %d", e.BatchID, e.Available, e.Requested)
}

// PersistenceError is a storage fault. The transaction was rolled back and the
// call may be retried.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Kind names the error variant, used for metrics labels and API error bodies.
func Kind(err error) string {
	var (
		validation *ValidationError
		mismatch   *PaymentMismatchError
		item       *ItemNotFoundError
		batch      *BatchNotFoundError
		customer   *CustomerNotFoundError
		stock      *InsufficientStockError
		exceeds    *store.ExceedsBalanceError
		persist    *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return "validation_error"
	case errors.As(err, &mismatch):
		return "payment_mismatch"
	case errors.As(err, &item):
		return "item_not_found"
	case errors.As(err, &batch):
		return "batch_not_found"
	case errors.As(err, &customer):
		return "customer_not_found"
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.Is(err, ErrCreditRequiresCustomer):
		return "credit_requires_customer"
	case errors.As(err, &exceeds):
		return "exceeds_balance"
	case errors.Is(err, store.ErrStaleWrite):
		return "stale_write"
	case errors.As(err, &persist):
		return "persistence_error"
	default:
		return "internal_error"
	}
}

// classify keeps the engine's error variants and turns anything else into a
// PersistenceError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch Kind(err) {
	case "internal_error":
		return &PersistenceError{Err: err}
	default:
		return err
	}
}
