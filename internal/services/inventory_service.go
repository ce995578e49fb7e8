package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"neodukaan-backend/internal/cache"
	"neodukaan-backend/internal/logger"
	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/reports"
	"neodukaan-backend/internal/store"
	"neodukaan-backend/internal/timeutil"
)

// InventoryService manages items and their batches. Stock only goes down
// through settlement; here it only goes up, by adding batches.
type InventoryService struct {
	Store store.Store
	Cache *cache.Cache
	log   *logrus.Entry
	now   func() time.Time
}

func NewInventoryService(s store.Store, c *cache.Cache) *InventoryService {
	return &InventoryService{Store: s, Cache: c, log: logger.For("inventory_service"), now: timeutil.Now}
}

func (s *InventoryService) CreateItem(ctx context.Context, shopID string, req *models.CreateItemRequest) (*models.Item, error) {
	item := &models.Item{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(req.Name),
		Category:      strings.TrimSpace(req.Category),
		Unit:          strings.TrimSpace(req.Unit),
		AlertQuantity: models.DefaultAlertQuantity,
	}
	if item.Category == "" {
		item.Category = models.DefaultCategory
	}
	if req.AlertQuantity != nil {
		item.AlertQuantity = *req.AlertQuantity
	}
	for i := range req.Batches {
		b, err := newBatch(&req.Batches[i])
		if err != nil {
			return nil, err
		}
		item.Batches = append(item.Batches, *b)
	}

	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		return tx.Items().Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	s.Cache.InvalidateReports(ctx, shopID)
	s.log.WithFields(logrus.Fields{"shop_id": shopID, "item_id": item.ID}).Info("item created")
	return item, nil
}

func (s *InventoryService) ListItems(ctx context.Context, shopID string) ([]*models.Item, error) {
	var items []*models.Item
	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		items, err = tx.Items().List(ctx)
		return err
	})
	return items, err
}

func (s *InventoryService) GetItem(ctx context.Context, shopID, itemID string) (*models.Item, error) {
	var item *models.Item
	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		item, err = tx.Items().Get(ctx, itemID)
		return err
	})
	return item, err
}

// UpdateItem edits item details. Batches are untouched.
func (s *InventoryService) UpdateItem(ctx context.Context, shopID, itemID string, req *models.UpdateItemRequest) (*models.Item, error) {
	var item *models.Item
	err := writeTx(ctx, s.Store, shopID, func(tx store.Tx) error {
		var err error
		item, err = tx.Items().Get(ctx, itemID)
		if err != nil {
			return err
		}
		item.Name = strings.TrimSpace(req.Name)
		item.Category = strings.TrimSpace(req.Category)
		if item.Category == "" {
			item.Category = models.DefaultCategory
		}
		item.Unit = strings.TrimSpace(req.Unit)
		item.AlertQuantity = req.AlertQuantity
		return tx.Items().Update(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	s.Cache.InvalidateReports(ctx, shopID)
	return item, nil
}

func (s *InventoryService) DeleteItem(ctx context.Context, shopID, itemID string) error {
	err := writeTx(ctx, s.Store, shopID, func(tx store.Tx) error {
		return tx.Items().Delete(ctx, itemID)
	})
	if err != nil {
		return err
	}
	s.Cache.InvalidateReports(ctx, shopID)
	s.log.WithFields(logrus.Fields{"shop_id": shopID, "item_id": itemID}).Info("item deleted")
	return nil
}

// AddBatch restocks an item and returns it with the new batch.
func (s *InventoryService) AddBatch(ctx context.Context, shopID, itemID string, req *models.CreateBatchRequest) (*models.Item, error) {
	b, err := newBatch(req)
	if err != nil {
		return nil, err
	}

	var item *models.Item
	err = writeTx(ctx, s.Store, shopID, func(tx store.Tx) error {
		batch := *b
		if err := tx.Items().AddBatch(ctx, itemID, &batch); err != nil {
			return err
		}
		var err error
		item, err = tx.Items().Get(ctx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Cache.InvalidateReports(ctx, shopID)
	return item, nil
}

// Stats is the inventory overview: low stock, expiring batches, dead stock
// and stock value.
func (s *InventoryService) Stats(ctx context.Context, shopID string) (*reports.InventorySummary, error) {
	now := s.now()
	var items []*models.Item
	var sales []*models.Sale
	err := s.Store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		var err error
		if items, err = tx.Items().List(ctx); err != nil {
			return err
		}
		from := timeutil.StartOfDay(now).AddDate(0, 0, -reports.DeadStockDays)
		sales, err = tx.Sales().ListBetween(ctx, from, timeutil.NextDay(now))
		return err
	})
	if err != nil {
		return nil, err
	}
	summary := reports.InventoryView(items, sales, now)
	return &summary, nil
}

func newBatch(req *models.CreateBatchRequest) (*models.Batch, error) {
	if req.Quantity <= 0 {
		return nil, invalid("quantity", "must be positive")
	}
	if req.PurchasePrice < 0 || req.SellingPrice < 0 {
		return nil, invalid("price", "must not be negative")
	}
	b := &models.Batch{
		ID:            uuid.New().String(),
		BatchNumber:   strings.TrimSpace(req.BatchNumber),
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		Quantity:      req.Quantity,
	}
	if req.ExpiryDate != "" {
		exp, err := timeutil.ParseDate(req.ExpiryDate)
		if err != nil {
			return nil, invalid("expiry_date", "must be YYYY-MM-DD")
		}
		b.ExpiryDate = &exp
	}
	return b, nil
}
