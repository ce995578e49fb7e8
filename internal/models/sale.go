package models

import "time"

// Sale is the immutable record of a settled checkout.
type Sale struct {
	ID             string       `json:"id"`
	ShopID         string       `json:"shop_id"`
	InvoiceNumber  string       `json:"invoice_number"`
	CustomerID     string       `json:"customer_id,omitempty"`
	Lines          []SaleLine   `json:"lines"`
	TotalAmount    Money        `json:"total_amount"`
	Profit         Money        `json:"profit"`
	Payment        PaymentSplit `json:"payment_split"`
	IdempotencyKey string       `json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
}

// SaleLine is one batch consumed by a sale. UnitCost is the batch purchase
// price at settlement time.
type SaleLine struct {
	ItemID           string `json:"item_id"`
	BatchID          string `json:"batch_id"`
	Quantity         int    `json:"quantity"`
	UnitSellingPrice Money  `json:"unit_selling_price"`
	UnitCost         Money  `json:"unit_cost"`
}

// Amount is quantity × unit selling price.
func (l SaleLine) Amount() Money {
	return l.UnitSellingPrice.Times(l.Quantity)
}

// Profit is quantity × (selling price − cost).
func (l SaleLine) Profit() Money {
	return (l.UnitSellingPrice - l.UnitCost).Times(l.Quantity)
}

// PaymentSplit says how a sale total was paid.
type PaymentSplit struct {
	Cash   Money `json:"cash" validate:"gte=0"`
	UPI    Money `json:"upi" validate:"gte=0"`
	Credit Money `json:"credit" validate:"gte=0"` // udhaar
}

func (p PaymentSplit) Total() Money {
	return p.Cash + p.UPI + p.Credit
}

// Clone returns a deep copy.
func (s *Sale) Clone() *Sale {
	c := *s
	c.Lines = append([]SaleLine(nil), s.Lines...)
	return &c
}

// CreateSaleRequest is the checkout request body
type CreateSaleRequest struct {
	CustomerID    string                  `json:"customer_id" validate:"omitempty,uuid"`
	CustomerPhone string                  `json:"customer_phone" validate:"omitempty,min=10,max=15"`
	CustomerName  string                  `json:"customer_name" validate:"max=120"`
	Lines         []CreateSaleLineRequest `json:"lines" validate:"required,min=1,dive"`
	Payment       PaymentSplit            `json:"payment_split"`
}

// CreateSaleLineRequest is one cart line. An empty batch id lets the server pick batches.
type CreateSaleLineRequest struct {
	ItemID           string `json:"item_id" validate:"required,uuid"`
	BatchID          string `json:"batch_id" validate:"omitempty,uuid"`
	Quantity         int    `json:"quantity" validate:"gt=0"`
	UnitSellingPrice Money  `json:"unit_selling_price" validate:"gte=0"`
}
