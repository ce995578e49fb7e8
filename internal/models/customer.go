package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Customer is a shop's customer. Phone is unique per shop.
// TotalUdhaar is derived from the ledger on every read, it is never stored.
type Customer struct {
	ID          string        `json:"id"`
	ShopID      string        `json:"shop_id"`
	Name        string        `json:"name"`
	Phone       string        `json:"phone"`
	TotalUdhaar Money         `json:"total_udhaar"`
	Ledger      []LedgerEntry `json:"ledger,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Clone returns a deep copy.
func (c *Customer) Clone() *Customer {
	cp := *c
	cp.Ledger = append([]LedgerEntry(nil), c.Ledger...)
	return &cp
}

// NormalizePhone keeps the digits of a phone number and returns the last ten,
// so "+91 98765-43210" and "9876543210" identify the same customer.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

// DefaultCustomerName is used when a customer is created from a phone number alone.
func DefaultCustomerName(phone string) string {
	return fmt.Sprintf("Customer %s", phone)
}

// CreateCustomerRequest represents the request body for creating a customer
type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Phone string `json:"phone" validate:"required,min=10,max=15"`
}

// ReceivePaymentRequest records money received against a customer's udhaar
type ReceivePaymentRequest struct {
	Amount      Money  `json:"amount" validate:"gt=0"`
	Description string `json:"description" validate:"max=200"`
}

// CustomerBalance is the khata summary of one customer.
type CustomerBalance struct {
	CustomerID   string     `json:"customer_id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	TotalDebit   Money      `json:"total_debit"`
	TotalCredit  Money      `json:"total_credit"`
	Balance      Money      `json:"balance"`
	EntryCount   int        `json:"entry_count"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}
