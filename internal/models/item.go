package models

import "time"

const (
	DefaultCategory      = "General"
	DefaultAlertQuantity = 10
)

// Item is an inventory item. It owns its batches.
type Item struct {
	ID            string    `json:"id"`
	ShopID        string    `json:"shop_id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Unit          string    `json:"unit"`
	AlertQuantity int       `json:"alert_quantity"`
	Batches       []Batch   `json:"batches"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Batch is one purchase lot of an item.
type Batch struct {
	ID            string     `json:"id"`
	ItemID        string     `json:"item_id"`
	BatchNumber   string     `json:"batch_number"`
	PurchasePrice Money      `json:"purchase_price"`
	SellingPrice  Money      `json:"selling_price"`
	Quantity      int        `json:"quantity"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	AddedAt       time.Time  `json:"added_at"`
}

// TotalStock is the sum of all batch quantities.
func (i *Item) TotalStock() int {
	total := 0
	for _, b := range i.Batches {
		total += b.Quantity
	}
	return total
}

// IsLowStock reports whether total stock has reached the alert threshold.
func (i *Item) IsLowStock() bool {
	return i.TotalStock() <= i.AlertQuantity
}

// Batch returns the batch with the given id, or nil.
func (i *Item) Batch(batchID string) *Batch {
	for idx := range i.Batches {
		if i.Batches[idx].ID == batchID {
			return &i.Batches[idx]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (i *Item) Clone() *Item {
	c := *i
	c.Batches = make([]Batch, len(i.Batches))
	for idx, b := range i.Batches {
		if b.ExpiryDate != nil {
			exp := *b.ExpiryDate
			b.ExpiryDate = &exp
		}
		c.Batches[idx] = b
	}
	return &c
}

// CreateItemRequest represents the request body for adding an item
type CreateItemRequest struct {
	Name          string               `json:"name" validate:"required,max=200"`
	Category      string               `json:"category" validate:"max=100"`
	Unit          string               `json:"unit" validate:"required,max=30"`
	AlertQuantity *int                 `json:"alert_quantity" validate:"omitempty,gte=0"`
	Batches       []CreateBatchRequest `json:"batches" validate:"dive"`
}

// UpdateItemRequest represents the request body for editing item details.
// Batches are never edited through this request.
type UpdateItemRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	Category      string `json:"category" validate:"max=100"`
	Unit          string `json:"unit" validate:"required,max=30"`
	AlertQuantity int    `json:"alert_quantity" validate:"gte=0"`
}

// CreateBatchRequest represents a restock of an item
type CreateBatchRequest struct {
	BatchNumber   string `json:"batch_number" validate:"max=60"`
	PurchasePrice Money  `json:"purchase_price" validate:"gte=0"`
	SellingPrice  Money  `json:"selling_price" validate:"gte=0"`
	Quantity      int    `json:"quantity" validate:"gt=0"`
	ExpiryDate    string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
}
