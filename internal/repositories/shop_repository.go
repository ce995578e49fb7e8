package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
)

type ShopRepository struct {
	DB *pgxpool.Pool
}

func NewShopRepository(db *pgxpool.Pool) *ShopRepository {
	return &ShopRepository{DB: db}
}

func (r *ShopRepository) Create(ctx context.Context, s *models.Shop) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO shops(id, owner_name, shop_name, email, password_hash, phone, is_premium)
         VALUES($1, $2, $3, $4, $5, $6, $7)
         RETURNING created_at, updated_at`,
		s.ID, s.OwnerName, s.ShopName, strings.ToLower(s.Email), s.PasswordHash, s.Phone, s.IsPremium,
	).Scan(&s.CreatedAt, &s.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return store.ErrDuplicateEmail
	}
	return err
}

func (r *ShopRepository) Get(ctx context.Context, id string) (*models.Shop, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, owner_name, shop_name, email, password_hash, phone, is_premium, created_at, updated_at
         FROM shops WHERE id=$1`, id)
	return scanShop(row)
}

func (r *ShopRepository) GetByEmail(ctx context.Context, email string) (*models.Shop, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, owner_name, shop_name, email, password_hash, phone, is_premium, created_at, updated_at
         FROM shops WHERE email=$1`, strings.ToLower(email))
	return scanShop(row)
}

func scanShop(row pgx.Row) (*models.Shop, error) {
	var shop models.Shop
	err := row.Scan(&shop.ID, &shop.OwnerName, &shop.ShopName, &shop.Email, &shop.PasswordHash,
		&shop.Phone, &shop.IsPremium, &shop.CreatedAt, &shop.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, store.ErrShopNotFound
	}
	if err != nil {
		return nil, err
	}
	return &shop, nil
}
