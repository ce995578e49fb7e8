package store

import (
	"errors"
	"fmt"

	"neodukaan-backend/internal/models"
)

var (
	ErrShopNotFound     = errors.New("shop not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrBatchNotFound    = errors.New("batch not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrDuplicateEmail   = errors.New("shop with this email already exists")
	ErrDuplicatePhone   = errors.New("customer with this phone already exists")

	// ErrStaleWrite means a concurrent transaction changed data this one read.
	// Nothing was written; the caller may retry with fresh reads.
	ErrStaleWrite = errors.New("stale write: concurrent modification")

	// ErrPersistence marks storage faults (connection loss, failed commit).
	ErrPersistence = errors.New("persistence failure")
)

// ExceedsBalanceError rejects a payment larger than the outstanding udhaar.
type ExceedsBalanceError struct {
	Balance models.Money
	Amount  models.Money
}

func (e *ExceedsBalanceError) Error() string {
	return fmt.Sprintf("payment of %s exceeds outstanding balance of %s", e.Amount, e.Balance)
}

// CheckAppend validates a ledger append against the current balance.
func CheckAppend(balance models.Money, entryType models.LedgerEntryType, amount models.Money) error {
	if amount <= 0 {
		return fmt.Errorf("ledger amount must be positive, got %s", amount)
	}
	switch entryType {
	case models.LedgerEntryTypeDebit:
		return nil
	case models.LedgerEntryTypeCredit:
		if amount > balance {
			return &ExceedsBalanceError{Balance: balance, Amount: amount}
		}
		return nil
	default:
		return fmt.Errorf("unknown ledger entry type %q", entryType)
	}
}
