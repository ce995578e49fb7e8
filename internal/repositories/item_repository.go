package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
)

// ItemRepository reads and writes one shop's items and batches inside a transaction.
type ItemRepository struct {
	tx     pgx.Tx
	shopID string
}

const batchColumns = `b.id, b.item_id, b.batch_number, b.purchase_price, b.selling_price, b.quantity, b.expiry_date, b.added_at`

func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	item.ShopID = r.shopID
	err := r.tx.QueryRow(ctx,
		`INSERT INTO items(id, shop_id, name, category, unit, alert_quantity)
		 VALUES($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		item.ID, r.shopID, item.Name, item.Category, item.Unit, item.AlertQuantity,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	for i := range item.Batches {
		if err := r.insertBatch(ctx, item.ID, &item.Batches[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *ItemRepository) insertBatch(ctx context.Context, itemID string, b *models.Batch) error {
	b.ItemID = itemID
	err := r.tx.QueryRow(ctx,
		`INSERT INTO item_batches(id, item_id, batch_number, purchase_price, selling_price, quantity, expiry_date)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING added_at`,
		b.ID, itemID, b.BatchNumber, int64(b.PurchasePrice), int64(b.SellingPrice), b.Quantity, b.ExpiryDate,
	).Scan(&b.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

func (r *ItemRepository) Get(ctx context.Context, itemID string) (*models.Item, error) {
	return r.get(ctx, itemID, false)
}

// GetForUpdate locks the item and its batches until the transaction ends.
func (r *ItemRepository) GetForUpdate(ctx context.Context, itemID string) (*models.Item, error) {
	return r.get(ctx, itemID, true)
}

func (r *ItemRepository) get(ctx context.Context, itemID string, lock bool) (*models.Item, error) {
	query := `SELECT id, shop_id, name, category, unit, alert_quantity, created_at, updated_at
		FROM items WHERE id = $1 AND shop_id = $2`
	if lock {
		query += ` FOR UPDATE`
	}

	var item models.Item
	err := r.tx.QueryRow(ctx, query, itemID, r.shopID).Scan(
		&item.ID, &item.ShopID, &item.Name, &item.Category, &item.Unit,
		&item.AlertQuantity, &item.CreatedAt, &item.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, store.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}

	batchQuery := `SELECT ` + batchColumns + ` FROM item_batches b WHERE b.item_id = $1 ORDER BY b.added_at, b.id`
	if lock {
		batchQuery += ` FOR UPDATE`
	}
	rows, err := r.tx.Query(ctx, batchQuery, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		item.Batches = append(item.Batches, *b)
	}
	return &item, rows.Err()
}

func scanBatch(row pgx.Row) (*models.Batch, error) {
	var (
		b             models.Batch
		purchasePrice int64
		sellingPrice  int64
	)
	err := row.Scan(&b.ID, &b.ItemID, &b.BatchNumber, &purchasePrice, &sellingPrice,
		&b.Quantity, &b.ExpiryDate, &b.AddedAt)
	if err != nil {
		return nil, err
	}
	b.PurchasePrice = models.Money(purchasePrice)
	b.SellingPrice = models.Money(sellingPrice)
	return &b, nil
}

func (r *ItemRepository) List(ctx context.Context) ([]*models.Item, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT id, shop_id, name, category, unit, alert_quantity, created_at, updated_at
		 FROM items WHERE shop_id = $1 ORDER BY name, id`, r.shopID)
	if err != nil {
		return nil, err
	}

	var items []*models.Item
	byID := make(map[string]*models.Item)
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.ShopID, &item.Name, &item.Category, &item.Unit,
			&item.AlertQuantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, &item)
		byID[item.ID] = &item
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	batchRows, err := r.tx.Query(ctx,
		`SELECT `+batchColumns+`
		 FROM item_batches b JOIN items i ON i.id = b.item_id
		 WHERE i.shop_id = $1 ORDER BY b.added_at, b.id`, r.shopID)
	if err != nil {
		return nil, err
	}
	defer batchRows.Close()

	for batchRows.Next() {
		b, err := scanBatch(batchRows)
		if err != nil {
			return nil, err
		}
		if item, ok := byID[b.ItemID]; ok {
			item.Batches = append(item.Batches, *b)
		}
	}
	return items, batchRows.Err()
}

// Update changes item details. Batches are untouched.
func (r *ItemRepository) Update(ctx context.Context, item *models.Item) error {
	err := r.tx.QueryRow(ctx,
		`UPDATE items SET name=$1, category=$2, unit=$3, alert_quantity=$4, updated_at=NOW()
		 WHERE id=$5 AND shop_id=$6
		 RETURNING updated_at`,
		item.Name, item.Category, item.Unit, item.AlertQuantity, item.ID, r.shopID,
	).Scan(&item.UpdatedAt)
	if err == pgx.ErrNoRows {
		return store.ErrItemNotFound
	}
	return err
}

func (r *ItemRepository) Delete(ctx context.Context, itemID string) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM items WHERE id=$1 AND shop_id=$2`, itemID, r.shopID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrItemNotFound
	}
	return nil
}

func (r *ItemRepository) AddBatch(ctx context.Context, itemID string, batch *models.Batch) error {
	var exists int
	err := r.tx.QueryRow(ctx,
		`SELECT 1 FROM items WHERE id=$1 AND shop_id=$2 FOR UPDATE`, itemID, r.shopID,
	).Scan(&exists)
	if err == pgx.ErrNoRows {
		return store.ErrItemNotFound
	}
	if err != nil {
		return err
	}
	if err := r.insertBatch(ctx, itemID, batch); err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `UPDATE items SET updated_at=NOW() WHERE id=$1`, itemID)
	return err
}

// FindBatch locks the batch row until the transaction ends.
func (r *ItemRepository) FindBatch(ctx context.Context, itemID, batchID string) (*models.Batch, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+batchColumns+`
		 FROM item_batches b JOIN items i ON i.id = b.item_id
		 WHERE i.id = $1 AND i.shop_id = $2 AND b.id = $3
		 FOR UPDATE OF b`,
		itemID, r.shopID, batchID)
	b, err := scanBatch(row)
	if err == pgx.ErrNoRows {
		if _, err := r.Get(ctx, itemID); err != nil {
			return nil, err
		}
		return nil, store.ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DecrementBatch only succeeds while the batch still holds amount units.
func (r *ItemRepository) DecrementBatch(ctx context.Context, itemID, batchID string, amount int) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE item_batches b SET quantity = b.quantity - $1
		 FROM items i
		 WHERE b.id = $2 AND b.item_id = $3 AND i.id = b.item_id AND i.shop_id = $4
		   AND b.quantity >= $1`,
		amount, batchID, itemID, r.shopID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrStaleWrite
	}
	return nil
}
