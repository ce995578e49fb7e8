package reports

import (
	"sort"
	"time"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/timeutil"
)

const (
	// ExpiryWindowDays is how far ahead batches are reported as expiring.
	ExpiryWindowDays = 30
	// DeadStockDays is how long an item in stock may go unsold before it is dead stock.
	DeadStockDays = 30
)

type ExpiryStatus string

const (
	ExpiryExpired  ExpiryStatus = "expired"
	ExpiryCritical ExpiryStatus = "critical" // 3 days or less
	ExpiryWarning  ExpiryStatus = "warning"  // 7 days or less
	ExpirySoon     ExpiryStatus = "soon"
)

// StatusForDays classifies a batch by the days left until it expires.
func StatusForDays(days int) ExpiryStatus {
	switch {
	case days < 0:
		return ExpiryExpired
	case days <= 3:
		return ExpiryCritical
	case days <= 7:
		return ExpiryWarning
	default:
		return ExpirySoon
	}
}

type StockAlert struct {
	ItemID        string `json:"item_id"`
	Name          string `json:"name"`
	Stock         int    `json:"stock"`
	AlertQuantity int    `json:"alert_quantity"`
}

type ExpiryAlert struct {
	ItemID      string       `json:"item_id"`
	Name        string       `json:"name"`
	BatchID     string       `json:"batch_id"`
	BatchNumber string       `json:"batch_number,omitempty"`
	Quantity    int          `json:"quantity"`
	ExpiryDate  time.Time    `json:"expiry_date"`
	DaysLeft    int          `json:"days_left"`
	Status      ExpiryStatus `json:"status"`
}

type InventorySummary struct {
	ItemCount   int           `json:"item_count"`
	TotalStock  int           `json:"total_stock"`
	StockValue  models.Money  `json:"stock_value"`  // at purchase price
	RetailValue models.Money  `json:"retail_value"` // at selling price
	LowStock    []StockAlert  `json:"low_stock"`
	Expiring    []ExpiryAlert `json:"expiring"`
	DeadStock   []StockAlert  `json:"dead_stock"`
}

// InventoryView summarizes stock. recentSales should cover at least the last
// DeadStockDays; an item in stock that appears in none of them is dead stock.
func InventoryView(items []*models.Item, recentSales []*models.Sale, now time.Time) InventorySummary {
	s := InventorySummary{ItemCount: len(items)}

	deadCutoff := now.AddDate(0, 0, -DeadStockDays)
	soldRecently := make(map[string]bool)
	for _, sale := range recentSales {
		if sale.CreatedAt.Before(deadCutoff) {
			continue
		}
		for _, l := range sale.Lines {
			soldRecently[l.ItemID] = true
		}
	}

	for _, item := range items {
		stock := item.TotalStock()
		s.TotalStock += stock
		alert := StockAlert{ItemID: item.ID, Name: item.Name, Stock: stock, AlertQuantity: item.AlertQuantity}
		if item.IsLowStock() {
			s.LowStock = append(s.LowStock, alert)
		}
		if stock > 0 && !soldRecently[item.ID] {
			s.DeadStock = append(s.DeadStock, alert)
		}

		for _, b := range item.Batches {
			s.StockValue += b.PurchasePrice.Times(b.Quantity)
			s.RetailValue += b.SellingPrice.Times(b.Quantity)
			if b.ExpiryDate == nil || b.Quantity == 0 {
				continue
			}
			days := timeutil.DaysBetween(now, *b.ExpiryDate)
			if days > ExpiryWindowDays {
				continue
			}
			s.Expiring = append(s.Expiring, ExpiryAlert{
				ItemID:      item.ID,
				Name:        item.Name,
				BatchID:     b.ID,
				BatchNumber: b.BatchNumber,
				Quantity:    b.Quantity,
				ExpiryDate:  *b.ExpiryDate,
				DaysLeft:    days,
				Status:      StatusForDays(days),
			})
		}
	}

	sort.Slice(s.LowStock, func(i, j int) bool { return s.LowStock[i].Stock < s.LowStock[j].Stock })
	sort.Slice(s.Expiring, func(i, j int) bool { return s.Expiring[i].DaysLeft < s.Expiring[j].DaysLeft })
	return s
}
