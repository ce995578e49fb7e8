package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/timeutil"
)

// ChartDays is the length of the dashboard revenue chart.
const ChartDays = 7

type DaySummary struct {
	SaleCount int          `json:"sale_count"`
	Revenue   models.Money `json:"revenue"`
	Profit    models.Money `json:"profit"`
	Cash      models.Money `json:"cash"`
	UPI       models.Money `json:"upi"`
	Credit    models.Money `json:"credit"`
}

func (d *DaySummary) add(s *models.Sale) {
	d.SaleCount++
	d.Revenue += s.TotalAmount
	d.Profit += s.Profit
	d.Cash += s.Payment.Cash
	d.UPI += s.Payment.UPI
	d.Credit += s.Payment.Credit
}

// Trend compares today with yesterday, e.g. "+12.5%".
type Trend struct {
	Change string `json:"change"`
	Up     bool   `json:"up"`
}

func TrendOf(today, yesterday models.Money) Trend {
	if yesterday == 0 {
		if today == 0 {
			return Trend{Change: "0%", Up: true}
		}
		return Trend{Change: "+100%", Up: true}
	}
	pct := today.Decimal().Sub(yesterday.Decimal()).
		Div(yesterday.Decimal()).
		Mul(decimal.NewFromInt(100)).
		Round(1)
	up := !pct.IsNegative()
	sign := ""
	if up {
		sign = "+"
	}
	return Trend{Change: sign + pct.StringFixed(1) + "%", Up: up}
}

type DashboardSummary struct {
	Today          DaySummary    `json:"today"`
	Yesterday      DaySummary    `json:"yesterday"`
	RevenueTrend   Trend         `json:"revenue_trend"`
	ProfitTrend    Trend         `json:"profit_trend"`
	Outstanding    models.Money  `json:"outstanding_udhaar"`
	InventoryValue models.Money  `json:"inventory_value"`
	LowStockCount  int           `json:"low_stock_count"`
	ExpiringCount  int           `json:"expiring_count"`
	Chart          []DailyBucket `json:"chart"`
}

// DashboardWindow is the span of sales Dashboard needs.
func DashboardWindow(now time.Time) (time.Time, time.Time) {
	return timeutil.StartOfDay(now).AddDate(0, 0, -(ChartDays - 1)), timeutil.NextDay(now)
}

// Dashboard builds the home screen. sales should cover DashboardWindow and
// customers need not carry ledgers, only TotalUdhaar.
func Dashboard(sales []*models.Sale, items []*models.Item, customers []*models.Customer, now time.Time) DashboardSummary {
	var d DashboardSummary

	todayKey := timeutil.DayKey(now)
	yesterdayKey := timeutil.DayKey(timeutil.StartOfDay(now).AddDate(0, 0, -1))
	for _, s := range sales {
		switch timeutil.DayKey(s.CreatedAt) {
		case todayKey:
			d.Today.add(s)
		case yesterdayKey:
			d.Yesterday.add(s)
		}
	}
	d.RevenueTrend = TrendOf(d.Today.Revenue, d.Yesterday.Revenue)
	d.ProfitTrend = TrendOf(d.Today.Profit, d.Yesterday.Profit)

	for _, c := range customers {
		if c.TotalUdhaar > 0 {
			d.Outstanding += c.TotalUdhaar
		}
	}

	inv := InventoryView(items, nil, now)
	d.InventoryValue = inv.StockValue
	d.LowStockCount = len(inv.LowStock)
	d.ExpiringCount = len(inv.Expiring)

	from, to := DashboardWindow(now)
	d.Chart = SummarizeSales(sales, nil, from, to).Daily
	return d
}
