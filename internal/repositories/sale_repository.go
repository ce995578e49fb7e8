package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
)

// SaleRepository stores immutable sales. Nothing here updates or deletes a sale.
type SaleRepository struct {
	tx     pgx.Tx
	shopID string
}

const saleColumns = `id, shop_id, invoice_number, COALESCE(customer_id::text, ''), total_amount, profit,
	cash, upi, credit, COALESCE(idempotency_key, ''), created_at`

// NextInvoiceNumber uses a database sequence. Numbers of rolled back
// checkouts are skipped, not reused.
func (r *SaleRepository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var nextNum int64
	err := r.tx.QueryRow(ctx, "SELECT nextval('sale_invoice_seq')").Scan(&nextNum)
	if err != nil {
		return "", fmt.Errorf("failed to get next invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%06d", nextNum), nil
}

func (r *SaleRepository) Create(ctx context.Context, sale *models.Sale) error {
	sale.ShopID = r.shopID
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}

	_, err := r.tx.Exec(ctx,
		`INSERT INTO sales(id, shop_id, invoice_number, customer_id, total_amount, profit, cash, upi, credit, idempotency_key, created_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sale.ID, r.shopID, sale.InvoiceNumber, nullString(sale.CustomerID),
		int64(sale.TotalAmount), int64(sale.Profit),
		int64(sale.Payment.Cash), int64(sale.Payment.UPI), int64(sale.Payment.Credit),
		nullString(sale.IdempotencyKey), sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}

	for i, line := range sale.Lines {
		_, err = r.tx.Exec(ctx,
			`INSERT INTO sale_lines(sale_id, line_no, item_id, batch_id, quantity, unit_selling_price, unit_cost)
			 VALUES($1, $2, $3, $4, $5, $6, $7)`,
			sale.ID, i+1, line.ItemID, line.BatchID, line.Quantity,
			int64(line.UnitSellingPrice), int64(line.UnitCost),
		)
		if err != nil {
			return fmt.Errorf("failed to create sale line: %w", err)
		}
	}
	return nil
}

func (r *SaleRepository) Get(ctx context.Context, saleID string) (*models.Sale, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE id = $1 AND shop_id = $2`, saleID, r.shopID)
	sale, err := scanSale(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*models.Sale{sale}); err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *SaleRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE idempotency_key = $1 AND shop_id = $2`, key, r.shopID)
	sale, err := scanSale(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, []*models.Sale{sale}); err != nil {
		return nil, err
	}
	return sale, nil
}

// ListBetween returns sales created in [from, to), oldest first
func (r *SaleRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*models.Sale, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+saleColumns+`
		 FROM sales
		 WHERE shop_id = $1 AND created_at >= $2 AND created_at < $3
		 ORDER BY created_at, invoice_number`,
		r.shopID, from, to)
	if err != nil {
		return nil, err
	}

	var sales []*models.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		sales = append(sales, sale)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadLines(ctx, sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *SaleRepository) loadLines(ctx context.Context, sales []*models.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, len(sales))
	byID := make(map[string]*models.Sale, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
		byID[s.ID] = s
	}

	rows, err := r.tx.Query(ctx,
		`SELECT sale_id, item_id, batch_id, quantity, unit_selling_price, unit_cost
		 FROM sale_lines
		 WHERE sale_id = ANY($1::uuid[])
		 ORDER BY sale_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			saleID    string
			line      models.SaleLine
			unitPrice int64
			unitCost  int64
		)
		if err := rows.Scan(&saleID, &line.ItemID, &line.BatchID, &line.Quantity, &unitPrice, &unitCost); err != nil {
			return err
		}
		line.UnitSellingPrice = models.Money(unitPrice)
		line.UnitCost = models.Money(unitCost)
		if s, ok := byID[saleID]; ok {
			s.Lines = append(s.Lines, line)
		}
	}
	return rows.Err()
}

func scanSale(row pgx.Row) (*models.Sale, error) {
	var (
		s                                models.Sale
		total, profit, cash, upi, credit int64
	)
	err := row.Scan(&s.ID, &s.ShopID, &s.InvoiceNumber, &s.CustomerID, &total, &profit,
		&cash, &upi, &credit, &s.IdempotencyKey, &s.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, store.ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}
	s.TotalAmount = models.Money(total)
	s.Profit = models.Money(profit)
	s.Payment = models.PaymentSplit{
		Cash:   models.Money(cash),
		UPI:    models.Money(upi),
		Credit: models.Money(credit),
	}
	return &s, nil
}
