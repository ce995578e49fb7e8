package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"neodukaan-backend/internal/archive"
	"neodukaan-backend/internal/auth"
	"neodukaan-backend/internal/config"
	"neodukaan-backend/internal/logger"
	"neodukaan-backend/internal/memstore"
	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/monitoring"
	"neodukaan-backend/internal/reports"
	"neodukaan-backend/internal/settlement"
	"neodukaan-backend/internal/store"
	"neodukaan-backend/internal/timeutil"
)

const shopID = "shop-1"

type recordedEvent struct {
	shopID string
	typ    string
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Publish(shopID, eventType string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{shopID, eventType})
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.typ)
	}
	return out
}

type env struct {
	store     *memstore.Store
	inventory *InventoryService
	customers *CustomerService
	sales     *SaleService
	reports   *ReportService
	events    *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger.SetOutput(io.Discard)
	st := memstore.New()
	events := &recorder{}
	engine := settlement.NewEngine(st, logger.For("settlement"))
	return &env{
		store:     st,
		inventory: NewInventoryService(st, nil),
		customers: NewCustomerService(st, nil, events),
		sales:     NewSaleService(st, engine, nil, events),
		reports:   NewReportService(st, nil, nil, time.Minute),
		events:    events,
	}
}

func (e *env) item(t *testing.T, qty int) *models.Item {
	t.Helper()
	item, err := e.inventory.CreateItem(context.Background(), shopID, &models.CreateItemRequest{
		Name: "Toor Dal",
		Unit: "kg",
		Batches: []models.CreateBatchRequest{{
			BatchNumber:   "TD-1",
			PurchasePrice: models.Rupees(90),
			SellingPrice:  models.Rupees(120),
			Quantity:      qty,
		}},
	})
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	return item
}

func TestShopRegisterLogin(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "secret"
	cfg.JWT.ExpirationHours = 1
	st := memstore.New()
	svc := NewShopService(st.Shops(), auth.NewJWTManager(cfg))
	ctx := context.Background()

	reg, err := svc.Register(ctx, &models.RegisterRequest{
		OwnerName: "Sunita",
		ShopName:  "Sunita Kirana",
		Email:     "Sunita@Example.com",
		Password:  "kirana123",
		Phone:     "+91 98765 43210",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.Token == "" || reg.Shop.Email != "sunita@example.com" || reg.Shop.Phone != "9876543210" {
		t.Errorf("Register() = %+v", reg.Shop)
	}

	_, err = svc.Register(ctx, &models.RegisterRequest{Email: "sunita@example.com", Password: "x12345", Phone: "9876543210"})
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Errorf("duplicate Register() error = %v", err)
	}

	login, err := svc.Login(ctx, &models.LoginRequest{Email: "SUNITA@example.com", Password: "kirana123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if login.Shop.ID != reg.Shop.ID {
		t.Errorf("Login() shop = %s, want %s", login.Shop.ID, reg.Shop.ID)
	}

	for _, req := range []*models.LoginRequest{
		{Email: "sunita@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "kirana123"},
	} {
		if _, err := svc.Login(ctx, req); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%s) error = %v, want ErrInvalidCredentials", req.Email, err)
		}
	}

	me, err := svc.Me(ctx, reg.Shop.ID)
	if err != nil || me.ShopName != "Sunita Kirana" {
		t.Errorf("Me() = %+v, %v", me, err)
	}
}

func TestInventoryLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	item := e.item(t, 5)

	if item.Category != models.DefaultCategory || item.AlertQuantity != models.DefaultAlertQuantity {
		t.Errorf("defaults not applied: %+v", item)
	}

	restocked, err := e.inventory.AddBatch(ctx, shopID, item.ID, &models.CreateBatchRequest{
		PurchasePrice: models.Rupees(95),
		SellingPrice:  models.Rupees(125),
		Quantity:      20,
		ExpiryDate:    "2030-01-31",
	})
	if err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}
	if restocked.TotalStock() != 25 || len(restocked.Batches) != 2 {
		t.Errorf("after restock stock = %d batches = %d", restocked.TotalStock(), len(restocked.Batches))
	}

	updated, err := e.inventory.UpdateItem(ctx, shopID, item.ID, &models.UpdateItemRequest{Name: "Toor Dal Premium", Unit: "kg", AlertQuantity: 30})
	if err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}
	if updated.Name != "Toor Dal Premium" || updated.TotalStock() != 25 {
		t.Errorf("UpdateItem() = %+v", updated)
	}

	stats, err := e.inventory.Stats(ctx, shopID)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if len(stats.LowStock) != 1 || stats.StockValue != models.Rupees(90*5+95*20) {
		t.Errorf("Stats() = %+v", stats)
	}

	if err := e.inventory.DeleteItem(ctx, shopID, item.ID); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	if _, err := e.inventory.GetItem(ctx, shopID, item.ID); !errors.Is(err, store.ErrItemNotFound) {
		t.Errorf("GetItem() after delete error = %v", err)
	}
}

func TestAddBatchRejectsBadInput(t *testing.T) {
	e := newEnv(t)
	item := e.item(t, 5)

	tests := map[string]models.CreateBatchRequest{
		"zero quantity":  {Quantity: 0},
		"negative price": {Quantity: 1, PurchasePrice: -1},
		"bad expiry":     {Quantity: 1, ExpiryDate: "31/01/2030"},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := e.inventory.AddBatch(context.Background(), shopID, item.ID, &req)
			var verr *settlement.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}

func TestCheckoutOnCreditAndPayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	item := e.item(t, 10)

	res, err := e.sales.Checkout(ctx, shopID, &models.CreateSaleRequest{
		CustomerPhone: "98765 43210",
		CustomerName:  "Ramesh",
		Lines:         []models.CreateSaleLineRequest{{ItemID: item.ID, Quantity: 2, UnitSellingPrice: models.Rupees(120)}},
		Payment:       models.PaymentSplit{Cash: models.Rupees(40), Credit: models.Rupees(200)},
	}, "key-1")
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if res.Replayed || res.Sale.CustomerID == "" {
		t.Fatalf("Checkout() = %+v", res)
	}

	again, err := e.sales.Checkout(ctx, shopID, &models.CreateSaleRequest{
		Lines:   []models.CreateSaleLineRequest{{ItemID: item.ID, Quantity: 2, UnitSellingPrice: models.Rupees(120)}},
		Payment: models.PaymentSplit{Cash: models.Rupees(240)},
	}, "key-1")
	if err != nil {
		t.Fatalf("replayed Checkout() error = %v", err)
	}
	if !again.Replayed || again.Sale.ID != res.Sale.ID {
		t.Errorf("replay = %+v", again)
	}

	customer, err := e.customers.SearchByPhone(ctx, shopID, "+919876543210")
	if err != nil {
		t.Fatalf("SearchByPhone() error = %v", err)
	}
	if customer.TotalUdhaar != models.Rupees(200) {
		t.Errorf("TotalUdhaar = %s, want 200.00", customer.TotalUdhaar)
	}

	_, err = e.customers.ReceivePayment(ctx, shopID, customer.ID, &models.ReceivePaymentRequest{Amount: models.Rupees(500)})
	var exceeds *store.ExceedsBalanceError
	if !errors.As(err, &exceeds) || exceeds.Balance != models.Rupees(200) {
		t.Fatalf("overpayment error = %v", err)
	}

	receipt, err := e.customers.ReceivePayment(ctx, shopID, customer.ID, &models.ReceivePaymentRequest{Amount: models.Rupees(150)})
	if err != nil {
		t.Fatalf("ReceivePayment() error = %v", err)
	}
	if receipt.Balance != models.Rupees(50) || receipt.Entry.Description != "Payment received" {
		t.Errorf("receipt = %+v", receipt)
	}

	bal, err := e.customers.Balance(ctx, shopID, customer.ID)
	if err != nil {
		t.Fatalf("Balance() error = %v", err)
	}
	if bal.TotalDebit != models.Rupees(200) || bal.TotalCredit != models.Rupees(150) || bal.Balance != models.Rupees(50) || bal.EntryCount != 2 {
		t.Errorf("Balance() = %+v", bal)
	}

	got := e.events.types()
	want := []string{monitoring.EventSaleSettled, monitoring.EventKhataPayment}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestCheckoutRejectionPublishesNothing(t *testing.T) {
	e := newEnv(t)
	item := e.item(t, 1)

	_, err := e.sales.Checkout(context.Background(), shopID, &models.CreateSaleRequest{
		Lines:   []models.CreateSaleLineRequest{{ItemID: item.ID, Quantity: 2, UnitSellingPrice: models.Rupees(120)}},
		Payment: models.PaymentSplit{Cash: models.Rupees(240)},
	}, "")
	var stock *settlement.InsufficientStockError
	if !errors.As(err, &stock) {
		t.Fatalf("error = %v, want InsufficientStockError", err)
	}
	if len(e.events.types()) != 0 {
		t.Errorf("events = %v, want none", e.events.types())
	}
}

func TestCustomerRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.customers.CreateCustomer(ctx, shopID, &models.CreateCustomerRequest{Name: "A", Phone: "12345"}); err == nil {
		t.Error("short phone accepted")
	}
	if _, err := e.customers.CreateCustomer(ctx, shopID, &models.CreateCustomerRequest{Name: "A", Phone: "9876543210"}); err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}
	_, err := e.customers.CreateCustomer(ctx, shopID, &models.CreateCustomerRequest{Name: "B", Phone: "+91-98765-43210"})
	if !errors.Is(err, store.ErrDuplicatePhone) {
		t.Errorf("duplicate phone error = %v", err)
	}
	if _, err := e.customers.GetCustomer(ctx, shopID, "missing"); !errors.Is(err, store.ErrCustomerNotFound) {
		t.Errorf("GetCustomer(missing) error = %v", err)
	}
}

func TestReports(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	item := e.item(t, 10)

	_, err := e.sales.Checkout(ctx, shopID, &models.CreateSaleRequest{
		CustomerPhone: "9876543210",
		Lines:         []models.CreateSaleLineRequest{{ItemID: item.ID, Quantity: 3, UnitSellingPrice: models.Rupees(120)}},
		Payment:       models.PaymentSplit{UPI: models.Rupees(160), Credit: models.Rupees(200)},
	}, "")
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	summary, err := e.reports.SalesReport(ctx, shopID, reports.Range7D, "", "")
	if err != nil {
		t.Fatalf("SalesReport() error = %v", err)
	}
	if summary.SaleCount != 1 || summary.Revenue != models.Rupees(360) || summary.Profit != models.Rupees(90) || summary.Credit != models.Rupees(200) {
		t.Errorf("SalesReport() = %+v", summary)
	}

	if _, err := e.reports.SalesReport(ctx, shopID, "fortnight", "", ""); err == nil {
		t.Error("unknown range accepted")
	}

	dash, err := e.reports.Dashboard(ctx, shopID)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if dash.Today.Revenue != models.Rupees(360) || dash.Outstanding != models.Rupees(200) {
		t.Errorf("Dashboard() today = %s outstanding = %s", dash.Today.Revenue, dash.Outstanding)
	}

	khata, err := e.reports.Khata(ctx, shopID)
	if err != nil {
		t.Fatalf("Khata() error = %v", err)
	}
	if khata.DebtorCount != 1 || khata.TotalOutstanding != models.Rupees(200) || khata.Debtors[0].Overdue {
		t.Errorf("Khata() = %+v", khata)
	}
}

type memPutter struct {
	keys []string
}

func (m *memPutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.keys = append(m.keys, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.reports.ArchiveDay(ctx, shopID, ""); !errors.Is(err, ErrArchiveDisabled) {
		t.Fatalf("ArchiveDay() without archiver error = %v", err)
	}

	put := &memPutter{}
	e.reports.Archiver = archive.NewArchiver(put, "bucket")

	today := timeutil.DayKey(timeutil.Now())
	res, err := e.reports.ArchiveDay(ctx, shopID, today)
	if err != nil {
		t.Fatalf("ArchiveDay() error = %v", err)
	}
	if res.Key != "reports/"+shopID+"/sales/"+today+".csv" || len(put.keys) != 1 {
		t.Errorf("ArchiveDay() = %+v, uploads %v", res, put.keys)
	}

	if _, err := e.reports.ArchiveDay(ctx, shopID, "yesterday"); err == nil {
		t.Error("bad date accepted")
	}
}
