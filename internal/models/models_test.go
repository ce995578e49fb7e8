package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{"150", 15000, false},
		{"99.5", 9950, false},
		{"12.25", 1225, false},
		{"0.1", 10, false},
		{"-3", -300, false},
		{"1.005", 0, true},
		{"abc", 0, true},
		{"100000000000000", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMoney(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMoney(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseMoney("0.001"); !errors.Is(err, ErrMoneyPrecision) {
		t.Errorf("sub-paisa error = %v, want ErrMoneyPrecision", err)
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Money `json:"a"`
	}{Rupees(12) + 5})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"a":12.05}` {
		t.Errorf("Marshal = %s", data)
	}

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":120.5,"b":"75","c":null}`), &in); err != nil {
		t.Fatal(err)
	}
	if in.A != 12050 || in.B != 7500 || in.C != 0 {
		t.Errorf("Unmarshal = %+v", in)
	}
	if err := json.Unmarshal([]byte(`{"a":1.999}`), &in); err == nil {
		t.Error("Unmarshal accepted a fraction of a paisa")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	price := Rupees(45) + 50
	if got := price.Times(3); got != 13650 {
		t.Errorf("Times = %d", got)
	}
	if price.String() != "45.50" {
		t.Errorf("String = %s", price.String())
	}

	line := SaleLine{Quantity: 4, UnitSellingPrice: Rupees(30), UnitCost: Rupees(22)}
	if line.Amount() != Rupees(120) || line.Profit() != Rupees(32) {
		t.Errorf("line amount = %s profit = %s", line.Amount(), line.Profit())
	}

	split := PaymentSplit{Cash: Rupees(50), UPI: Rupees(20), Credit: Rupees(50)}
	if split.Total() != Rupees(120) {
		t.Errorf("split total = %s", split.Total())
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"9876543210":      "9876543210",
		"+91 98765-43210": "9876543210",
		"(0) 98765 43210": "9876543210",
		"12345":           "12345",
		"":                "",
	}
	for in, want := range tests {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSummarizeLedger(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	c := &Customer{
		ID:   "c1",
		Name: "Meena",
		Ledger: []LedgerEntry{
			{EntryType: LedgerEntryTypeDebit, Amount: Rupees(500), CreatedAt: t0},
			{EntryType: LedgerEntryTypeCredit, Amount: Rupees(200), CreatedAt: t0.Add(48 * time.Hour)},
			{EntryType: LedgerEntryTypeDebit, Amount: Rupees(50), CreatedAt: t0.Add(24 * time.Hour)},
		},
	}

	s := SummarizeLedger(c)
	if s.TotalDebit != Rupees(550) || s.TotalCredit != Rupees(200) || s.Balance != Rupees(350) {
		t.Errorf("summary = %+v", s)
	}
	if s.Balance != FoldBalance(c.Ledger) {
		t.Errorf("Balance %s != FoldBalance %s", s.Balance, FoldBalance(c.Ledger))
	}
	if s.LastActivity == nil || !s.LastActivity.Equal(t0.Add(48*time.Hour)) {
		t.Errorf("LastActivity = %v", s.LastActivity)
	}
	if s.EntryCount != 3 {
		t.Errorf("EntryCount = %d", s.EntryCount)
	}
}

func TestItemStock(t *testing.T) {
	item := &Item{AlertQuantity: 10, Batches: []Batch{{ID: "b1", Quantity: 4}, {ID: "b2", Quantity: 6}}}
	if item.TotalStock() != 10 || !item.IsLowStock() {
		t.Errorf("stock = %d low = %v", item.TotalStock(), item.IsLowStock())
	}

	clone := item.Clone()
	clone.Batches[0].Quantity = 0
	if item.Batch("b1").Quantity != 4 {
		t.Error("Clone shares batches with the original")
	}
	if item.Batch("missing") != nil {
		t.Error("Batch(missing) is not nil")
	}
}
