// Package reports derives read-only views from sales, items and customers.
// Every function is pure: it reads the snapshot it is given and never writes.
package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/timeutil"
)

type Range string

const (
	Range7D     Range = "7d"
	Range30D    Range = "30d"
	Range6M     Range = "6m"
	Range1Y     Range = "1y"
	RangeCustom Range = "custom"
)

// Window resolves a report range to [from, to) at IST day boundaries. For a
// custom range both dates are inclusive days.
func Window(r Range, now time.Time, customFrom, customTo string) (time.Time, time.Time, error) {
	to := timeutil.NextDay(now)
	today := timeutil.StartOfDay(now)
	switch r {
	case Range7D:
		return today.AddDate(0, 0, -7), to, nil
	case Range30D, "":
		return today.AddDate(0, 0, -30), to, nil
	case Range6M:
		return today.AddDate(0, -6, 0), to, nil
	case Range1Y:
		return today.AddDate(-1, 0, 0), to, nil
	case RangeCustom:
		from, err := timeutil.ParseDate(customFrom)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q", customFrom)
		}
		end, err := timeutil.ParseDate(customTo)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q", customTo)
		}
		if end.Before(from) {
			return time.Time{}, time.Time{}, fmt.Errorf("to date is before from date")
		}
		return from, timeutil.NextDay(end), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown range %q", r)
	}
}

type DailyBucket struct {
	Date      string       `json:"date"`
	Revenue   models.Money `json:"revenue"`
	Profit    models.Money `json:"profit"`
	SaleCount int          `json:"sale_count"`
}

type ItemSales struct {
	ItemID   string       `json:"item_id"`
	Name     string       `json:"name"`
	Quantity int          `json:"quantity"`
	Revenue  models.Money `json:"revenue"`
}

type SalesSummary struct {
	From        time.Time     `json:"from"`
	To          time.Time     `json:"to"`
	SaleCount   int           `json:"sale_count"`
	Revenue     models.Money  `json:"revenue"`
	Profit      models.Money  `json:"profit"`
	Cash        models.Money  `json:"cash"`
	UPI         models.Money  `json:"upi"`
	Credit      models.Money  `json:"credit"`
	AverageBill models.Money  `json:"average_bill"`
	Daily       []DailyBucket `json:"daily"`
	TopItems    []ItemSales   `json:"top_items"`
}

// topItemsLimit caps SalesSummary.TopItems.
const topItemsLimit = 5

// SummarizeSales totals the sales created in [from, to). Daily has one bucket
// per IST day of the window, including days without sales. items supplies
// names for TopItems and may be nil.
func SummarizeSales(sales []*models.Sale, items []*models.Item, from, to time.Time) SalesSummary {
	s := SalesSummary{From: from, To: to}

	s.Daily = dailyBuckets(from, to)
	buckets := make(map[string]*DailyBucket, len(s.Daily))
	for i := range s.Daily {
		buckets[s.Daily[i].Date] = &s.Daily[i]
	}

	names := make(map[string]string, len(items))
	for _, it := range items {
		names[it.ID] = it.Name
	}
	perItem := make(map[string]*ItemSales)

	for _, sale := range sales {
		if sale.CreatedAt.Before(from) || !sale.CreatedAt.Before(to) {
			continue
		}
		s.SaleCount++
		s.Revenue += sale.TotalAmount
		s.Profit += sale.Profit
		s.Cash += sale.Payment.Cash
		s.UPI += sale.Payment.UPI
		s.Credit += sale.Payment.Credit

		if b, ok := buckets[timeutil.DayKey(sale.CreatedAt)]; ok {
			b.Revenue += sale.TotalAmount
			b.Profit += sale.Profit
			b.SaleCount++
		}

		for _, l := range sale.Lines {
			is, ok := perItem[l.ItemID]
			if !ok {
				is = &ItemSales{ItemID: l.ItemID, Name: names[l.ItemID]}
				perItem[l.ItemID] = is
			}
			is.Quantity += l.Quantity
			is.Revenue += l.Amount()
		}
	}

	if s.SaleCount > 0 {
		avg := s.Revenue.Decimal().Div(decimal.NewFromInt(int64(s.SaleCount)))
		s.AverageBill, _ = models.MoneyFromDecimal(avg.Round(2))
	}

	for _, is := range perItem {
		s.TopItems = append(s.TopItems, *is)
	}
	sort.Slice(s.TopItems, func(i, j int) bool {
		if s.TopItems[i].Quantity != s.TopItems[j].Quantity {
			return s.TopItems[i].Quantity > s.TopItems[j].Quantity
		}
		return s.TopItems[i].ItemID < s.TopItems[j].ItemID
	})
	if len(s.TopItems) > topItemsLimit {
		s.TopItems = s.TopItems[:topItemsLimit]
	}
	return s
}

func dailyBuckets(from, to time.Time) []DailyBucket {
	var days []DailyBucket
	for d := timeutil.StartOfDay(from); d.Before(to); d = d.AddDate(0, 0, 1) {
		days = append(days, DailyBucket{Date: timeutil.DayKey(d)})
	}
	return days
}
