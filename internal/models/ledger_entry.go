package models

import "time"

// LedgerEntryType represents the type of ledger entry
type LedgerEntryType string

const (
	LedgerEntryTypeDebit  LedgerEntryType = "DEBIT"  // Udhaar given (credit extended on a sale)
	LedgerEntryTypeCredit LedgerEntryType = "CREDIT" // Payment received
)

// LedgerEntry is one immutable line of a customer's khata.
type LedgerEntry struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	EntryType   LedgerEntryType `json:"entry_type"`
	Amount      Money           `json:"amount"`
	Description string          `json:"description"`
	ReferenceID string          `json:"reference_id,omitempty"` // sale id for DEBITs created at checkout
	CreatedAt   time.Time       `json:"created_at"`
}

// Signed returns the entry's effect on the balance.
func (e LedgerEntry) Signed() Money {
	if e.EntryType == LedgerEntryTypeCredit {
		return -e.Amount
	}
	return e.Amount
}

// FoldBalance is Σdebits − Σcredits over the entries.
func FoldBalance(entries []LedgerEntry) Money {
	var balance Money
	for _, e := range entries {
		balance += e.Signed()
	}
	return balance
}

// SummarizeLedger folds a customer's ledger into a balance summary.
func SummarizeLedger(c *Customer) CustomerBalance {
	s := CustomerBalance{
		CustomerID: c.ID,
		Name:       c.Name,
		Phone:      c.Phone,
		EntryCount: len(c.Ledger),
	}
	for i := range c.Ledger {
		e := c.Ledger[i]
		switch e.EntryType {
		case LedgerEntryTypeDebit:
			s.TotalDebit += e.Amount
		case LedgerEntryTypeCredit:
			s.TotalCredit += e.Amount
		}
		if s.LastActivity == nil || e.CreatedAt.After(*s.LastActivity) {
			at := e.CreatedAt
			s.LastActivity = &at
		}
	}
	s.Balance = s.TotalDebit - s.TotalCredit
	return s
}
