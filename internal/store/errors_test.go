package store

import (
	"errors"
	"testing"

	"neodukaan-backend/internal/models"
)

func TestCheckAppend(t *testing.T) {
	tests := []struct {
		name      string
		balance   models.Money
		entryType models.LedgerEntryType
		amount    models.Money
		wantErr   bool
		exceeds   bool
	}{
		{"debit on empty ledger", 0, models.LedgerEntryTypeDebit, models.Rupees(100), false, false},
		{"credit within balance", models.Rupees(100), models.LedgerEntryTypeCredit, models.Rupees(40), false, false},
		{"credit equal to balance", models.Rupees(100), models.LedgerEntryTypeCredit, models.Rupees(100), false, false},
		{"credit above balance", models.Rupees(100), models.LedgerEntryTypeCredit, models.Rupees(150), true, true},
		{"zero amount", models.Rupees(100), models.LedgerEntryTypeDebit, 0, true, false},
		{"negative amount", models.Rupees(100), models.LedgerEntryTypeCredit, -1, true, false},
		{"unknown type", 0, models.LedgerEntryType("REFUND"), 1, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAppend(tt.balance, tt.entryType, tt.amount)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckAppend() error = %v, wantErr %v", err, tt.wantErr)
			}
			var exceeds *ExceedsBalanceError
			if errors.As(err, &exceeds) != tt.exceeds {
				t.Fatalf("ExceedsBalanceError = %v, want %v", errors.As(err, &exceeds), tt.exceeds)
			}
		})
	}
}
