package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"neodukaan-backend/internal/auth"
	"neodukaan-backend/internal/logger"
	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
)

// ShopService registers shops and logs their owners in.
type ShopService struct {
	Shops      store.ShopRepository
	JWTManager *auth.JWTManager
	log        *logrus.Entry
}

func NewShopService(shops store.ShopRepository, jwtManager *auth.JWTManager) *ShopService {
	return &ShopService{Shops: shops, JWTManager: jwtManager, log: logger.For("shop_service")}
}

func (s *ShopService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	phone := models.NormalizePhone(req.Phone)
	if len(phone) != 10 {
		return nil, invalid("phone", "must contain a 10 digit mobile number")
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, invalid("password", "must be at most 72 bytes")
	}
	if err != nil {
		return nil, err
	}

	shop := &models.Shop{
		ID:           uuid.New().String(),
		OwnerName:    strings.TrimSpace(req.OwnerName),
		ShopName:     strings.TrimSpace(req.ShopName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Phone:        phone,
	}
	if err := s.Shops.Create(ctx, shop); err != nil {
		return nil, err
	}
	s.log.WithField("shop_id", shop.ID).Info("shop registered")

	return s.issue(shop)
}

func (s *ShopService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	shop, err := s.Shops.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, store.ErrShopNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.VerifyPassword(shop.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(shop)
}

func (s *ShopService) Me(ctx context.Context, shopID string) (*models.Shop, error) {
	return s.Shops.Get(ctx, shopID)
}

func (s *ShopService) issue(shop *models.Shop) (*models.AuthResponse, error) {
	token, err := s.JWTManager.GenerateToken(shop)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, Shop: shop}, nil
}
