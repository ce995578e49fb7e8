package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
)

// LedgerRepository appends khata entries. There is no stored running balance;
// every balance is a SUM over ledger_entries.
type LedgerRepository struct {
	tx     pgx.Tx
	shopID string
}

// lockCustomer serializes appends for one customer until the transaction ends.
func (r *LedgerRepository) lockCustomer(ctx context.Context, customerID string) error {
	var id string
	err := r.tx.QueryRow(ctx,
		`SELECT id FROM customers WHERE id = $1 AND shop_id = $2 FOR UPDATE`,
		customerID, r.shopID,
	).Scan(&id)
	if err == pgx.ErrNoRows {
		return store.ErrCustomerNotFound
	}
	return err
}

func (r *LedgerRepository) balance(ctx context.Context, customerID string) (models.Money, error) {
	var balance int64
	err := r.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(CASE WHEN entry_type = 'DEBIT' THEN amount ELSE -amount END), 0)
		 FROM ledger_entries
		 WHERE customer_id = $1 AND shop_id = $2`,
		customerID, r.shopID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return models.Money(balance), nil
}

func (r *LedgerRepository) append(ctx context.Context, customerID string, entryType models.LedgerEntryType, amount models.Money, description, referenceID string) (*models.LedgerEntry, error) {
	if err := r.lockCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	current, err := r.balance(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := store.CheckAppend(current, entryType, amount); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		EntryType:   entryType,
		Amount:      amount,
		Description: description,
		ReferenceID: referenceID,
	}
	err = r.tx.QueryRow(ctx,
		`INSERT INTO ledger_entries (id, shop_id, customer_id, entry_type, amount, description, reference_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		entry.ID, r.shopID, customerID, string(entryType), int64(amount), description, nullString(referenceID),
	).Scan(&entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger entry: %w", err)
	}

	if _, err := r.tx.Exec(ctx, `UPDATE customers SET updated_at = NOW() WHERE id = $1`, customerID); err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *LedgerRepository) AppendDebit(ctx context.Context, customerID string, amount models.Money, description, referenceID string) (*models.LedgerEntry, error) {
	return r.append(ctx, customerID, models.LedgerEntryTypeDebit, amount, description, referenceID)
}

func (r *LedgerRepository) AppendCredit(ctx context.Context, customerID string, amount models.Money, description string) (*models.LedgerEntry, error) {
	return r.append(ctx, customerID, models.LedgerEntryTypeCredit, amount, description, "")
}

func (r *LedgerRepository) CurrentBalance(ctx context.Context, customerID string) (models.Money, error) {
	var exists int
	err := r.tx.QueryRow(ctx,
		`SELECT 1 FROM customers WHERE id = $1 AND shop_id = $2`, customerID, r.shopID,
	).Scan(&exists)
	if err == pgx.ErrNoRows {
		return 0, store.ErrCustomerNotFound
	}
	if err != nil {
		return 0, err
	}
	return r.balance(ctx, customerID)
}

// Entries returns the ledger oldest first
func (r *LedgerRepository) Entries(ctx context.Context, customerID string) ([]models.LedgerEntry, error) {
	if _, err := r.CurrentBalance(ctx, customerID); err != nil {
		return nil, err
	}

	rows, err := r.tx.Query(ctx,
		`SELECT id, customer_id, entry_type, amount, description, COALESCE(reference_id::text, ''), created_at
		 FROM ledger_entries
		 WHERE customer_id = $1 AND shop_id = $2
		 ORDER BY seq`,
		customerID, r.shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			e         models.LedgerEntry
			entryType string
			amount    int64
		)
		if err := rows.Scan(&e.ID, &e.CustomerID, &entryType, &amount, &e.Description, &e.ReferenceID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EntryType = models.LedgerEntryType(entryType)
		e.Amount = models.Money(amount)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
