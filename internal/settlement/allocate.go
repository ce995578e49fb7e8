package settlement

import (
	"context"
	"errors"
	"sort"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
)

type batchKey struct {
	itemID  string
	batchID string
}

// stager checks cart lines against stock in input order. It remembers how much
// of each batch earlier lines already claimed, so two lines of one cart can
// never oversell a batch between them.
type stager struct {
	items store.ItemAccessor
	taken map[batchKey]int
	lines []models.SaleLine
}

func newStager(items store.ItemAccessor) *stager {
	return &stager{items: items, taken: make(map[batchKey]int)}
}

func (s *stager) stage(ctx context.Context, l LineRequest) error {
	if l.BatchID != "" {
		return s.stageBatch(ctx, l)
	}
	return s.stageAuto(ctx, l)
}

func (s *stager) stageBatch(ctx context.Context, l LineRequest) error {
	b, err := s.items.FindBatch(ctx, l.ItemID, l.BatchID)
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		return &ItemNotFoundError{ItemID: l.ItemID}
	case errors.Is(err, store.ErrBatchNotFound):
		return &BatchNotFoundError{ItemID: l.ItemID, BatchID: l.BatchID}
	case err != nil:
		return err
	}

	key := batchKey{l.ItemID, l.BatchID}
	available := b.Quantity - s.taken[key]
	if available < l.Quantity {
		return &InsufficientStockError{
			ItemID:    l.ItemID,
			BatchID:   l.BatchID,
			Available: available,
			Requested: l.Quantity,
		}
	}
	s.taken[key] += l.Quantity
	s.lines = append(s.lines, models.SaleLine{
		ItemID:           l.ItemID,
		BatchID:          l.BatchID,
		Quantity:         l.Quantity,
		UnitSellingPrice: l.UnitSellingPrice,
		UnitCost:         b.PurchasePrice,
	})
	return nil
}

// stageAuto spreads a line over the item's batches in allocation order. The
// line becomes one SaleLine per batch it draws from.
func (s *stager) stageAuto(ctx context.Context, l LineRequest) error {
	item, err := s.items.GetForUpdate(ctx, l.ItemID)
	if errors.Is(err, store.ErrItemNotFound) {
		return &ItemNotFoundError{ItemID: l.ItemID}
	}
	if err != nil {
		return err
	}

	batches := AllocationOrder(item.Batches)
	available := 0
	for _, b := range batches {
		available += b.Quantity - s.taken[batchKey{item.ID, b.ID}]
	}
	if available < l.Quantity {
		return &InsufficientStockError{
			ItemID:    l.ItemID,
			Available: available,
			Requested: l.Quantity,
		}
	}

	remaining := l.Quantity
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		key := batchKey{item.ID, b.ID}
		free := b.Quantity - s.taken[key]
		if free <= 0 {
			continue
		}
		take := min(free, remaining)
		s.taken[key] += take
		remaining -= take
		s.lines = append(s.lines, models.SaleLine{
			ItemID:           item.ID,
			BatchID:          b.ID,
			Quantity:         take,
			UnitSellingPrice: l.UnitSellingPrice,
			UnitCost:         b.PurchasePrice,
		})
	}
	return nil
}

// AllocationOrder returns the batches in the order stock is drawn from them:
// nearest expiry first, batches without expiry last, then oldest added first.
func AllocationOrder(batches []models.Batch) []models.Batch {
	ordered := append([]models.Batch(nil), batches...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch {
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		case a.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		case !a.AddedAt.Equal(b.AddedAt):
			return a.AddedAt.Before(b.AddedAt)
		default:
			return a.ID < b.ID
		}
	})
	return ordered
}
