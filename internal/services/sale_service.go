package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"neodukaan-backend/internal/cache"
	"neodukaan-backend/internal/logger"
	"neodukaan-backend/internal/metrics"
	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/monitoring"
	"neodukaan-backend/internal/settlement"
	"neodukaan-backend/internal/store"
)

const (
	checkoutLockTTL  = 30 * time.Second
	checkoutLockWait = 10 * time.Second
)

// SaleService is the checkout entry point around the settlement engine.
type SaleService struct {
	Store  store.Store
	Engine *settlement.Engine
	Cache  *cache.Cache
	Events monitoring.Publisher
	log    *logrus.Entry
}

func NewSaleService(s store.Store, engine *settlement.Engine, c *cache.Cache, events monitoring.Publisher) *SaleService {
	if events == nil {
		events = noopPublisher{}
	}
	return &SaleService{Store: s, Engine: engine, Cache: c, Events: events, log: logger.For("sale_service")}
}

// Checkout settles a cart. With an idempotency key, concurrent submissions
// of the same key are serialized through a Redis lock so the second one
// replays the first sale instead of racing it.
func (s *SaleService) Checkout(ctx context.Context, shopID string, req *models.CreateSaleRequest, idempotencyKey string) (*settlement.Result, error) {
	if idempotencyKey != "" {
		release, err := s.Cache.Lock(ctx, "checkout", shopID+":"+idempotencyKey, checkoutLockTTL, checkoutLockWait)
		defer release()
		if errors.Is(err, cache.ErrLockNotObtained) {
			metrics.SettlementsTotal.WithLabelValues("locked").Inc()
			return nil, ErrCheckoutInProgress
		}
		if err != nil {
			// Redis trouble must not stop the till; the key is still unique in the store.
			s.log.WithError(err).Warn("could not obtain checkout lock; proceeding without it")
		}
	}

	res, err := s.Engine.Settle(ctx, shopID, toSettlementRequest(req, idempotencyKey))
	if err != nil {
		kind := settlement.Kind(err)
		metrics.SettlementsTotal.WithLabelValues(kind).Inc()
		entry := s.log.WithFields(logrus.Fields{"shop_id": shopID, "kind": kind})
		if kind == "persistence_error" || kind == "internal_error" {
			logger.LogError(entry, "Checkout", "settlement failed", nil, err)
		} else {
			entry.WithError(err).Info("checkout rejected")
		}
		return nil, err
	}

	if res.Replayed {
		metrics.SettlementsTotal.WithLabelValues("replayed").Inc()
		return res, nil
	}

	metrics.SettlementsTotal.WithLabelValues("success").Inc()
	if res.Sale.Payment.Credit > 0 {
		metrics.LedgerEntriesTotal.WithLabelValues(string(models.LedgerEntryTypeDebit)).Inc()
	}
	s.Cache.InvalidateReports(ctx, shopID)
	s.Events.Publish(shopID, monitoring.EventSaleSettled, map[string]any{
		"sale_id":        res.Sale.ID,
		"invoice_number": res.Sale.InvoiceNumber,
		"total_amount":   res.Sale.TotalAmount,
		"payment_split":  res.Sale.Payment,
	})
	s.log.WithFields(logrus.Fields{
		"shop_id":        shopID,
		"invoice_number": res.Sale.InvoiceNumber,
		"total":          res.Sale.TotalAmount.String(),
		"attempts":       res.Attempts,
	}).Info("sale settled")
	return res, nil
}

// ListSales returns sales created in [from, to), oldest first.
func (s *SaleService) ListSales(ctx context.Context, shopID string, from, to time.Time) ([]*models.Sale, error) {
	if !from.Before(to) {
		return nil, invalid("to", "must be after from")
	}
	var sales []*models.Sale
	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		sales, err = tx.Sales().ListBetween(ctx, from, to)
		return err
	})
	return sales, err
}

func (s *SaleService) GetSale(ctx context.Context, shopID, saleID string) (*models.Sale, error) {
	var sale *models.Sale
	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		sale, err = tx.Sales().Get(ctx, saleID)
		return err
	})
	return sale, err
}

func toSettlementRequest(req *models.CreateSaleRequest, idempotencyKey string) settlement.Request {
	lines := make([]settlement.LineRequest, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = settlement.LineRequest{
			ItemID:           l.ItemID,
			BatchID:          l.BatchID,
			Quantity:         l.Quantity,
			UnitSellingPrice: l.UnitSellingPrice,
		}
	}
	return settlement.Request{
		CustomerID:     req.CustomerID,
		CustomerPhone:  req.CustomerPhone,
		CustomerName:   req.CustomerName,
		Lines:          lines,
		Payment:        req.Payment,
		IdempotencyKey: idempotencyKey,
	}
}
