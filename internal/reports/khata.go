package reports

import (
	"sort"
	"time"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/timeutil"
)

// OverdueAfterDays: a customer who owes money and has no ledger activity for
// longer than this is overdue.
const OverdueAfterDays = 15

type Debtor struct {
	CustomerID    string       `json:"customer_id"`
	Name          string       `json:"name"`
	Phone         string       `json:"phone"`
	Due           models.Money `json:"due"`
	LastActivity  *time.Time   `json:"last_activity,omitempty"`
	DaysSinceLast int          `json:"days_since_last"`
	Overdue       bool         `json:"overdue"`
}

type KhataSummary struct {
	TotalOutstanding models.Money `json:"total_outstanding"`
	DebtorCount      int          `json:"debtor_count"`
	OverdueCount     int          `json:"overdue_count"`
	OverdueAmount    models.Money `json:"overdue_amount"`
	Debtors          []Debtor     `json:"debtors"`
}

// KhataView lists customers with a positive balance, largest due first. The
// customers must carry their ledgers.
func KhataView(customers []*models.Customer, now time.Time) KhataSummary {
	var s KhataSummary
	for _, c := range customers {
		bal := models.SummarizeLedger(c)
		if bal.Balance <= 0 {
			continue
		}
		d := Debtor{
			CustomerID:   c.ID,
			Name:         c.Name,
			Phone:        c.Phone,
			Due:          bal.Balance,
			LastActivity: bal.LastActivity,
		}
		if bal.LastActivity != nil {
			d.DaysSinceLast = timeutil.DaysBetween(*bal.LastActivity, now)
			d.Overdue = now.Sub(*bal.LastActivity) > OverdueAfterDays*24*time.Hour
		}

		s.TotalOutstanding += d.Due
		s.DebtorCount++
		if d.Overdue {
			s.OverdueCount++
			s.OverdueAmount += d.Due
		}
		s.Debtors = append(s.Debtors, d)
	}

	sort.Slice(s.Debtors, func(i, j int) bool {
		if s.Debtors[i].Due != s.Debtors[j].Due {
			return s.Debtors[i].Due > s.Debtors[j].Due
		}
		return s.Debtors[i].CustomerID < s.Debtors[j].CustomerID
	})
	return s
}
