package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"neodukaan-backend/internal/store"
)

// SQLSTATEs that mean another transaction won a race.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// PostgresStore is the production store.Store. Rows are locked with
// SELECT ... FOR UPDATE, so concurrent checkouts on one batch serialize.
type PostgresStore struct {
	DB *pgxpool.Pool
}

var _ store.Store = (*PostgresStore)(nil)

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

func (s *PostgresStore) Shops() store.ShopRepository {
	return NewShopRepository(s.DB)
}

// WithTransaction runs fn in a READ COMMITTED transaction. Any error or panic
// rolls it back.
func (s *PostgresStore) WithTransaction(ctx context.Context, shopID string, fn func(tx store.Tx) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", store.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx, shopID: shopID}); err != nil {
		return classifyPgError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		if c := classifyPgError(err); errors.Is(c, store.ErrStaleWrite) {
			return c
		}
		return fmt.Errorf("%w: commit: %v", store.ErrPersistence, err)
	}
	return nil
}

// classifyPgError maps lost races to ErrStaleWrite and leaves other errors alone.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
			return fmt.Errorf("%w: %s", store.ErrStaleWrite, pgErr.Message)
		}
	}
	return err
}

type pgTx struct {
	tx     pgx.Tx
	shopID string
}

func (t *pgTx) ShopID() string { return t.shopID }

func (t *pgTx) Items() store.ItemAccessor {
	return &ItemRepository{tx: t.tx, shopID: t.shopID}
}

func (t *pgTx) Customers() store.CustomerAccessor {
	return &CustomerRepository{tx: t.tx, shopID: t.shopID}
}

func (t *pgTx) Ledger() store.LedgerAccessor {
	return &LedgerRepository{tx: t.tx, shopID: t.shopID}
}

func (t *pgTx) Sales() store.SaleAccessor {
	return &SaleRepository{tx: t.tx, shopID: t.shopID}
}
