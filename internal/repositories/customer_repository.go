package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
)

type CustomerRepository struct {
	tx     pgx.Tx
	shopID string
}

// total_udhaar is folded from the ledger on every read.
const customerSelect = `
	SELECT c.id, c.shop_id, c.name, c.phone, c.created_at, c.updated_at,
	       COALESCE(SUM(CASE WHEN l.entry_type = 'DEBIT' THEN l.amount ELSE -l.amount END), 0) AS total_udhaar
	FROM customers c
	LEFT JOIN ledger_entries l ON l.customer_id = c.id`

func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	c.ShopID = r.shopID
	err := r.tx.QueryRow(ctx,
		`INSERT INTO customers(id, shop_id, name, phone)
         VALUES($1, $2, $3, $4)
         RETURNING created_at, updated_at`,
		c.ID, r.shopID, c.Name, c.Phone,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return store.ErrDuplicatePhone
	}
	return err
}

func (r *CustomerRepository) Get(ctx context.Context, id string) (*models.Customer, error) {
	row := r.tx.QueryRow(ctx,
		customerSelect+` WHERE c.id = $1 AND c.shop_id = $2 GROUP BY c.id`, id, r.shopID)
	return scanCustomer(row)
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	row := r.tx.QueryRow(ctx,
		customerSelect+` WHERE c.phone = $1 AND c.shop_id = $2 GROUP BY c.id`, phone, r.shopID)
	return scanCustomer(row)
}

func (r *CustomerRepository) List(ctx context.Context) ([]*models.Customer, error) {
	rows, err := r.tx.Query(ctx,
		customerSelect+` WHERE c.shop_id = $1 GROUP BY c.id ORDER BY c.name, c.id`, r.shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var (
		c       models.Customer
		balance int64
	)
	err := row.Scan(&c.ID, &c.ShopID, &c.Name, &c.Phone, &c.CreatedAt, &c.UpdatedAt, &balance)
	if err == pgx.ErrNoRows {
		return nil, store.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	c.TotalUdhaar = models.Money(balance)
	return &c, nil
}
