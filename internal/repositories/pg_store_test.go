package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"neodukaan-backend/internal/database"
	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
	"neodukaan-backend/migrations"
)

func TestClassifyPgError(t *testing.T) {
	plain := errors.New("boom")
	tests := []struct {
		name      string
		err       error
		wantStale bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
		{"plain error", plain, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyPgError(tt.err)
			if errors.Is(got, store.ErrStaleWrite) != tt.wantStale {
				t.Errorf("classifyPgError(%v) = %v, stale want %v", tt.err, got, tt.wantStale)
			}
		})
	}
	if classifyPgError(plain) != plain {
		t.Errorf("non-postgres errors must pass through unchanged")
	}
}

// openTestStore connects to TEST_DATABASE_URL, skipping when it is unset.
func openTestStore(t *testing.T) (*PostgresStore, *models.Shop) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("set TEST_DATABASE_URL to run Postgres integration tests")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	l := logrus.New()
	l.SetOutput(os.Stderr)
	if err := database.NewMigratorWithFS(pool, migrations.FS, logrus.NewEntry(l)).RunMigrations(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s := NewPostgresStore(pool)
	shop := &models.Shop{
		ID:           uuid.NewString(),
		OwnerName:    "Test Owner",
		ShopName:     "Test Kirana",
		Email:        uuid.NewString() + "@test.local",
		PasswordHash: "x",
		Phone:        "9000000000",
	}
	if err := s.Shops().Create(ctx, shop); err != nil {
		t.Fatalf("create shop: %v", err)
	}
	return s, shop
}

func TestPostgresDecrementAndLedger(t *testing.T) {
	s, shop := openTestStore(t)
	ctx := context.Background()

	item := &models.Item{
		ID:            uuid.NewString(),
		Name:          "Rice",
		Category:      models.DefaultCategory,
		Unit:          "kg",
		AlertQuantity: models.DefaultAlertQuantity,
		Batches:       []models.Batch{{ID: uuid.NewString(), Quantity: 10, SellingPrice: models.Rupees(50)}},
	}
	customer := &models.Customer{ID: uuid.NewString(), Name: "Ramesh", Phone: "9876543210"}

	err := s.WithTransaction(ctx, shop.ID, func(tx store.Tx) error {
		if err := tx.Items().Create(ctx, item); err != nil {
			return err
		}
		if err := tx.Customers().Create(ctx, customer); err != nil {
			return err
		}
		_, err := tx.Ledger().AppendDebit(ctx, customer.ID, models.Rupees(100), "opening", "")
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	err = s.WithTransaction(ctx, shop.ID, func(tx store.Tx) error {
		if err := tx.Items().DecrementBatch(ctx, item.ID, item.Batches[0].ID, 11); !errors.Is(err, store.ErrStaleWrite) {
			t.Errorf("oversell = %v, want ErrStaleWrite", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.WithTransaction(ctx, shop.ID, func(tx store.Tx) error {
		_, err := tx.Ledger().AppendCredit(ctx, customer.ID, models.Rupees(150), "payment")
		return err
	})
	var exceeds *store.ExceedsBalanceError
	if !errors.As(err, &exceeds) {
		t.Fatalf("AppendCredit = %v, want ExceedsBalanceError", err)
	}

	err = s.WithTransaction(ctx, uuid.NewString(), func(tx store.Tx) error {
		if _, err := tx.Items().Get(ctx, item.ID); !errors.Is(err, store.ErrItemNotFound) {
			t.Errorf("cross-shop Get = %v, want ErrItemNotFound", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
