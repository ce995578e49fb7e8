// Package store defines the persistence contract shared by the Postgres and
// in-memory backends. Every tenant-scoped accessor is bound to the shop the
// transaction was opened for, so no operation can cross shops.
package store

import (
	"context"
	"time"

	"neodukaan-backend/internal/models"
)

// Store opens shop-scoped transactions.
type Store interface {
	// WithTransaction runs fn inside a single transaction for shopID. The
	// transaction commits only if fn returns nil; any error or panic rolls it back.
	WithTransaction(ctx context.Context, shopID string, fn func(tx Tx) error) error
	Shops() ShopRepository
	Ping(ctx context.Context) error
}

// Tx gives access to one shop's aggregates inside a transaction.
type Tx interface {
	ShopID() string
	Items() ItemAccessor
	Customers() CustomerAccessor
	Ledger() LedgerAccessor
	Sales() SaleAccessor
}

// ShopRepository is not tenant scoped, it holds the tenants themselves.
type ShopRepository interface {
	Create(ctx context.Context, shop *models.Shop) error
	Get(ctx context.Context, id string) (*models.Shop, error)
	GetByEmail(ctx context.Context, email string) (*models.Shop, error)
}

// ItemAccessor reads and mutates items and their batches.
type ItemAccessor interface {
	Create(ctx context.Context, item *models.Item) error
	Get(ctx context.Context, itemID string) (*models.Item, error)
	// GetForUpdate reads an item and reserves its batches for the rest of the transaction.
	GetForUpdate(ctx context.Context, itemID string) (*models.Item, error)
	List(ctx context.Context) ([]*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, itemID string) error
	AddBatch(ctx context.Context, itemID string, batch *models.Batch) error

	// FindBatch returns the batch, reserving it for the rest of the transaction.
	// Returns ErrItemNotFound or ErrBatchNotFound.
	FindBatch(ctx context.Context, itemID, batchID string) (*models.Batch, error)
	// DecrementBatch subtracts amount from the batch quantity. It returns
	// ErrStaleWrite if the batch no longer holds amount units.
	DecrementBatch(ctx context.Context, itemID, batchID string, amount int) error
}

// CustomerAccessor reads and creates customers. Returned customers carry
// TotalUdhaar folded from their ledger but not the ledger itself.
type CustomerAccessor interface {
	Create(ctx context.Context, c *models.Customer) error
	Get(ctx context.Context, customerID string) (*models.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*models.Customer, error)
	List(ctx context.Context) ([]*models.Customer, error)
}

// LedgerAccessor is the only way to change a customer's khata. Appending is
// the only mutation and the balance is always a fold over the entries.
type LedgerAccessor interface {
	AppendDebit(ctx context.Context, customerID string, amount models.Money, description, referenceID string) (*models.LedgerEntry, error)
	// AppendCredit returns *ExceedsBalanceError if amount is larger than the current balance.
	AppendCredit(ctx context.Context, customerID string, amount models.Money, description string) (*models.LedgerEntry, error)
	CurrentBalance(ctx context.Context, customerID string) (models.Money, error)
	// Entries returns the ledger oldest first.
	Entries(ctx context.Context, customerID string) ([]models.LedgerEntry, error)
}

// SaleAccessor stores immutable sales.
type SaleAccessor interface {
	Create(ctx context.Context, sale *models.Sale) error
	Get(ctx context.Context, saleID string) (*models.Sale, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error)
	// ListBetween returns sales created in [from, to), oldest first.
	ListBetween(ctx context.Context, from, to time.Time) ([]*models.Sale, error)
	NextInvoiceNumber(ctx context.Context) (string, error)
}
