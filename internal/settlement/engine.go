// Package settlement turns a checkout cart into a sale. One settlement
// decrements the batches it sells from, records the sale and, when part of
// the bill is on udhaar, debits the customer's khata, all in one transaction.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"neodukaan-backend/internal/metrics"
	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
)

// maxAttempts is the first try plus one retry after a concurrent modification.
const maxAttempts = 2

// Request is a checkout cart with its payment split.
type Request struct {
	CustomerID    string
	CustomerPhone string // used when CustomerID is empty; the customer is created if unknown
	CustomerName  string
	Lines         []LineRequest
	Payment       models.PaymentSplit
	// IdempotencyKey makes a resubmitted checkout return the first sale.
	IdempotencyKey string
}

// LineRequest sells Quantity units of one item. An empty BatchID lets the
// engine pick batches with AllocationOrder.
type LineRequest struct {
	ItemID           string
	BatchID          string
	Quantity         int
	UnitSellingPrice models.Money
}

// Result is a settled sale. Replayed is true when the idempotency key matched
// an earlier sale and nothing was written.
type Result struct {
	Sale     *models.Sale
	Replayed bool
	Attempts int
}

type Engine struct {
	store store.Store
	log   *logrus.Entry
	now   func() time.Time
	newID func() string
}

func NewEngine(s store.Store, log *logrus.Entry) *Engine {
	return &Engine{
		store: s,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Settle validates the request and settles it atomically. On any error no
// stock, ledger or sale was written.
func (e *Engine) Settle(ctx context.Context, shopID string, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	total, err := cartTotal(req.Lines)
	if err != nil {
		return nil, err
	}
	if paid := req.Payment.Total(); paid != total {
		return nil, &PaymentMismatchError{Total: total, Paid: paid}
	}
	if req.Payment.Credit > 0 && req.CustomerID == "" && req.CustomerPhone == "" {
		return nil, ErrCreditRequiresCustomer
	}

	var res *Result
	for attempt := 1; ; attempt++ {
		res, err = e.settleOnce(ctx, shopID, req, total)
		if err == nil {
			res.Attempts = attempt
			return res, nil
		}
		if !errors.Is(err, store.ErrStaleWrite) {
			break
		}
		if attempt >= maxAttempts {
			err = e.recheckStock(ctx, shopID, req, err)
			break
		}
		metrics.SettlementRetriesTotal.Inc()
		e.log.WithFields(logrus.Fields{
			"shop_id": shopID,
			"attempt": attempt,
		}).Warn("concurrent modification during settlement, retrying")
	}
	return nil, classify(err)
}

func (e *Engine) settleOnce(ctx context.Context, shopID string, req Request, total models.Money) (*Result, error) {
	var res *Result
	err := e.store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		if req.IdempotencyKey != "" {
			existing, err := tx.Sales().FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if err == nil {
				res = &Result{Sale: existing, Replayed: true}
				return nil
			}
			if !errors.Is(err, store.ErrSaleNotFound) {
				return err
			}
		}

		if err := lockItems(ctx, tx.Items(), req.Lines); err != nil {
			return err
		}
		st := newStager(tx.Items())
		for _, l := range req.Lines {
			if err := st.stage(ctx, l); err != nil {
				return err
			}
		}
		for _, l := range st.lines {
			if err := tx.Items().DecrementBatch(ctx, l.ItemID, l.BatchID, l.Quantity); err != nil {
				return err
			}
		}

		customerID, err := resolveCustomer(ctx, tx, req, e.newID)
		if err != nil {
			return err
		}

		invoiceNumber, err := tx.Sales().NextInvoiceNumber(ctx)
		if err != nil {
			return err
		}
		sale := &models.Sale{
			ID:             e.newID(),
			InvoiceNumber:  invoiceNumber,
			CustomerID:     customerID,
			Lines:          st.lines,
			TotalAmount:    total,
			Payment:        req.Payment,
			IdempotencyKey: req.IdempotencyKey,
			CreatedAt:      e.now(),
		}
		for _, l := range sale.Lines {
			sale.Profit += l.Profit()
		}

		if req.Payment.Credit > 0 {
			if _, err := tx.Ledger().AppendDebit(ctx, customerID, req.Payment.Credit, "Invoice "+invoiceNumber, sale.ID); err != nil {
				return err
			}
		}
		if err := tx.Sales().Create(ctx, sale); err != nil {
			return err
		}
		res = &Result{Sale: sale}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// lockItems takes the row locks of every item in the cart in id order, so two
// carts naming the same items in different orders queue instead of
// deadlocking. Unknown items are left for staging to report in line order.
func lockItems(ctx context.Context, items store.ItemAccessor, lines []LineRequest) error {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if !seen[l.ItemID] {
			seen[l.ItemID] = true
			ids = append(ids, l.ItemID)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := items.GetForUpdate(ctx, id); err != nil && !errors.Is(err, store.ErrItemNotFound) {
			return err
		}
	}
	return nil
}

// recheckStock runs after the retry also lost a race. If the cart no longer
// fits the stock that error is reported; otherwise the conflict stands.
func (e *Engine) recheckStock(ctx context.Context, shopID string, req Request, conflict error) error {
	err := e.store.WithTransaction(ctx, shopID, func(tx store.Tx) error {
		st := newStager(tx.Items())
		for _, l := range req.Lines {
			if err := st.stage(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
	var stock *InsufficientStockError
	if errors.As(err, &stock) {
		return err
	}
	return conflict
}

// resolveCustomer returns the id of the customer the sale belongs to, or ""
// for an anonymous sale.
func resolveCustomer(ctx context.Context, tx store.Tx, req Request, newID func() string) (string, error) {
	if req.CustomerID != "" {
		c, err := tx.Customers().Get(ctx, req.CustomerID)
		if errors.Is(err, store.ErrCustomerNotFound) {
			return "", &CustomerNotFoundError{CustomerID: req.CustomerID}
		}
		if err != nil {
			return "", err
		}
		return c.ID, nil
	}
	if req.CustomerPhone == "" {
		return "", nil
	}

	phone := models.NormalizePhone(req.CustomerPhone)
	c, err := tx.Customers().GetByPhone(ctx, phone)
	if err == nil {
		return c.ID, nil
	}
	if !errors.Is(err, store.ErrCustomerNotFound) {
		return "", err
	}

	name := req.CustomerName
	if name == "" {
		name = models.DefaultCustomerName(phone)
	}
	c = &models.Customer{ID: newID(), Name: name, Phone: phone}
	if err := tx.Customers().Create(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicatePhone) {
			return "", store.ErrStaleWrite
		}
		return "", err
	}
	return c.ID, nil
}

func validate(req Request) error {
	if len(req.Lines) == 0 {
		return &ValidationError{Field: "lines", Reason: "cart is empty"}
	}
	for i, l := range req.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		switch {
		case l.ItemID == "":
			return &ValidationError{Field: field + ".item_id", Reason: "is required"}
		case l.Quantity <= 0:
			return &ValidationError{Field: field + ".quantity", Reason: "must be greater than zero"}
		case l.UnitSellingPrice < 0:
			return &ValidationError{Field: field + ".unit_selling_price", Reason: "must not be negative"}
		}
	}
	p := req.Payment
	switch {
	case p.Cash < 0:
		return &ValidationError{Field: "payment_split.cash", Reason: "must not be negative"}
	case p.UPI < 0:
		return &ValidationError{Field: "payment_split.upi", Reason: "must not be negative"}
	case p.Credit < 0:
		return &ValidationError{Field: "payment_split.credit", Reason: "must not be negative"}
	case p.Cash > models.MaxAmount:
		return &ValidationError{Field: "payment_split.cash", Reason: "amount out of range"}
	case p.UPI > models.MaxAmount:
		return &ValidationError{Field: "payment_split.upi", Reason: "amount out of range"}
	case p.Credit > models.MaxAmount:
		return &ValidationError{Field: "payment_split.credit", Reason: "amount out of range"}
	}
	if req.CustomerPhone != "" && len(models.NormalizePhone(req.CustomerPhone)) != 10 {
		return &ValidationError{Field: "customer_phone", Reason: "must contain at least 10 digits"}
	}
	return nil
}

// cartTotal is Σ quantity × price in paise, refusing totals that overflow.
func cartTotal(lines []LineRequest) (models.Money, error) {
	var total models.Money
	for i, l := range lines {
		if l.UnitSellingPrice > 0 && models.Money(l.Quantity) > models.Money(math.MaxInt64)/l.UnitSellingPrice {
			return 0, &ValidationError{Field: fmt.Sprintf("lines[%d]", i), Reason: "amount out of range"}
		}
		amount := l.UnitSellingPrice.Times(l.Quantity)
		if total > models.Money(math.MaxInt64)-amount {
			return 0, &ValidationError{Field: "lines", Reason: "total out of range"}
		}
		total += amount
	}
	return total, nil
}
