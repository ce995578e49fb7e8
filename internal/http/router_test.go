package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"neodukaan-backend/internal/auth"
	"neodukaan-backend/internal/config"
	"neodukaan-backend/internal/handlers"
	"neodukaan-backend/internal/health"
	"neodukaan-backend/internal/logger"
	"neodukaan-backend/internal/memstore"
	"neodukaan-backend/internal/middleware"
	"neodukaan-backend/internal/monitoring"
	"neodukaan-backend/internal/services"
	"neodukaan-backend/internal/settlement"
)

type client struct {
	t      *testing.T
	router *mux.Router
	token  string
}

func newClient(t *testing.T) *client {
	t.Helper()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{}
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.Issuer = "neodukaan"
	cfg.JWT.ExpirationHours = 1

	st := memstore.New()
	jwtManager := auth.NewJWTManager(cfg)
	hub := monitoring.NewHub(logger.For("live"))
	engine := settlement.NewEngine(st, logger.For("settlement"))

	router := NewRouter(Handlers{
		Auth:      handlers.NewAuthHandler(services.NewShopService(st.Shops(), jwtManager)),
		Items:     handlers.NewItemHandler(services.NewInventoryService(st, nil)),
		Customers: handlers.NewCustomerHandler(services.NewCustomerService(st, nil, hub)),
		Sales:     handlers.NewSaleHandler(services.NewSaleService(st, engine, nil, hub)),
		Reports:   handlers.NewReportHandler(services.NewReportService(st, nil, nil, time.Minute)),
		Health:    handlers.NewHealthHandler(health.NewHealthChecker(st, nil)),
		Live:      handlers.NewLiveHandler(hub),
	}, middleware.NewAuthMiddleware(jwtManager, st.Shops()), nil)

	return &client{t: t, router: router}
}

func (c *client) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func (c *client) expect(rec *httptest.ResponseRecorder, status int, dst any) {
	c.t.Helper()
	if rec.Code != status {
		c.t.Fatalf("status = %d, want %d, body = %s", rec.Code, status, rec.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
			c.t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
}

func (c *client) register() {
	c.t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	c.expect(c.do("POST", "/api/v1/auth/register", map[string]string{
		"owner_name": "Ramesh",
		"shop_name":  "Ramesh General Store",
		"email":      "ramesh@example.com",
		"password":   "dukaan123",
		"phone":      "9812345678",
	}, nil), http.StatusCreated, &resp)
	c.token = resp.Token
}

type itemResponse struct {
	ID      string `json:"id"`
	Batches []struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	} `json:"batches"`
}

func (c *client) createItem(qty int) itemResponse {
	c.t.Helper()
	var item itemResponse
	c.expect(c.do("POST", "/api/v1/items", map[string]any{
		"name": "Basmati Rice",
		"unit": "kg",
		"batches": []map[string]any{{
			"batch_number":   "BR-01",
			"purchase_price": 80,
			"selling_price":  100,
			"quantity":       qty,
		}},
	}, nil), http.StatusCreated, &item)
	return item
}

func TestPublicAndProtectedRoutes(t *testing.T) {
	c := newClient(t)

	c.expect(c.do("GET", "/health", nil, nil), http.StatusOK, nil)
	c.expect(c.do("GET", "/health/ready", nil, nil), http.StatusOK, nil)
	c.expect(c.do("GET", "/metrics", nil, nil), http.StatusOK, nil)
	c.expect(c.do("GET", "/api/v1/items", nil, nil), http.StatusUnauthorized, nil)
	c.expect(c.do("GET", "/api/v1/live", nil, nil), http.StatusUnauthorized, nil)

	c.register()
	var me struct {
		ShopName string `json:"shop_name"`
	}
	c.expect(c.do("GET", "/api/v1/auth/me", nil, nil), http.StatusOK, &me)
	if me.ShopName != "Ramesh General Store" {
		t.Errorf("me = %+v", me)
	}

	c.token = ""
	var login struct {
		Token string `json:"token"`
	}
	c.expect(c.do("POST", "/api/v1/auth/login", map[string]string{
		"email": "ramesh@example.com", "password": "dukaan123",
	}, nil), http.StatusOK, &login)
	if login.Token == "" {
		t.Error("login returned no token")
	}
	c.expect(c.do("POST", "/api/v1/auth/login", map[string]string{
		"email": "ramesh@example.com", "password": "wrong-pass",
	}, nil), http.StatusUnauthorized, nil)
}

func TestCheckoutFlow(t *testing.T) {
	c := newClient(t)
	c.register()
	item := c.createItem(10)
	batchID := item.Batches[0].ID

	sale := map[string]any{
		"customer_phone": "9876500001",
		"customer_name":  "Meena",
		"lines": []map[string]any{{
			"item_id": item.ID, "batch_id": batchID, "quantity": 3, "unit_selling_price": 100,
		}},
		"payment_split": map[string]any{"cash": 100, "upi": 50, "credit": 150},
	}
	key := map[string]string{handlers.IdempotencyKeyHeader: "till-1-0001"}

	var first struct {
		ID            string  `json:"id"`
		InvoiceNumber string  `json:"invoice_number"`
		CustomerID    string  `json:"customer_id"`
		TotalAmount   float64 `json:"total_amount"`
	}
	c.expect(c.do("POST", "/api/v1/sales", sale, key), http.StatusCreated, &first)
	if first.TotalAmount != 300 || first.CustomerID == "" {
		t.Fatalf("sale = %+v", first)
	}

	replay := c.do("POST", "/api/v1/sales", sale, key)
	var second struct {
		ID string `json:"id"`
	}
	c.expect(replay, http.StatusOK, &second)
	if second.ID != first.ID || replay.Header().Get(handlers.ReplayedHeader) != "true" {
		t.Errorf("replay id = %s header = %q", second.ID, replay.Header().Get(handlers.ReplayedHeader))
	}

	var stocked itemResponse
	c.expect(c.do("GET", "/api/v1/items/"+item.ID, nil, nil), http.StatusOK, &stocked)
	if stocked.Batches[0].Quantity != 7 {
		t.Errorf("stock after sale and replay = %d, want 7", stocked.Batches[0].Quantity)
	}

	var balance struct {
		Balance float64 `json:"balance"`
	}
	c.expect(c.do("GET", "/api/v1/customers/"+first.CustomerID+"/balance", nil, nil), http.StatusOK, &balance)
	if balance.Balance != 150 {
		t.Errorf("balance = %v, want 150", balance.Balance)
	}

	var receipt struct {
		Balance float64 `json:"balance"`
	}
	c.expect(c.do("POST", "/api/v1/customers/"+first.CustomerID+"/payments",
		map[string]any{"amount": 100}, nil), http.StatusCreated, &receipt)
	if receipt.Balance != 50 {
		t.Errorf("balance after payment = %v, want 50", receipt.Balance)
	}
	c.expect(c.do("POST", "/api/v1/customers/"+first.CustomerID+"/payments",
		map[string]any{"amount": 80}, nil), http.StatusUnprocessableEntity, nil)

	var found struct {
		ID string `json:"id"`
	}
	c.expect(c.do("GET", "/api/v1/customers/search?phone=%2B91%2098765%2000001", nil, nil), http.StatusOK, &found)
	if found.ID != first.CustomerID {
		t.Errorf("search by phone found %q", found.ID)
	}

	var list struct {
		Count int `json:"count"`
	}
	c.expect(c.do("GET", "/api/v1/sales", nil, nil), http.StatusOK, &list)
	if list.Count != 1 {
		t.Errorf("sales today = %d, want 1", list.Count)
	}
	c.expect(c.do("GET", "/api/v1/sales/"+first.ID, nil, nil), http.StatusOK, nil)

	c.expect(c.do("GET", "/api/v1/reports/dashboard", nil, nil), http.StatusOK, nil)
	c.expect(c.do("GET", "/api/v1/reports/sales?range=7d", nil, nil), http.StatusOK, nil)
	var khata struct {
		DebtorCount int `json:"debtor_count"`
	}
	c.expect(c.do("GET", "/api/v1/reports/khata", nil, nil), http.StatusOK, &khata)
	if khata.DebtorCount != 1 {
		t.Errorf("debtors = %d, want 1", khata.DebtorCount)
	}
}

func TestCheckoutRejections(t *testing.T) {
	c := newClient(t)
	c.register()
	item := c.createItem(2)
	line := func(qty int) []map[string]any {
		return []map[string]any{{"item_id": item.ID, "batch_id": item.Batches[0].ID, "quantity": qty, "unit_selling_price": 100}}
	}

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"empty cart", map[string]any{"lines": []any{}}, http.StatusBadRequest},
		{"split mismatch", map[string]any{"lines": line(1), "payment_split": map[string]any{"cash": 90}}, http.StatusUnprocessableEntity},
		{"credit without customer", map[string]any{"lines": line(1), "payment_split": map[string]any{"credit": 100}}, http.StatusUnprocessableEntity},
		{"insufficient stock", map[string]any{"lines": line(3), "payment_split": map[string]any{"cash": 300}}, http.StatusConflict},
		{"unknown item", map[string]any{
			"lines":         []map[string]any{{"item_id": "6f1c1a5e-3a56-4a3e-9d4e-1f3f8c2b7a10", "quantity": 1, "unit_selling_price": 10}},
			"payment_split": map[string]any{"cash": 10},
		}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.t = t
			c.expect(c.do("POST", "/api/v1/sales", tt.body, nil), tt.status, nil)
		})
	}

	c.t = t
	var stocked itemResponse
	c.expect(c.do("GET", "/api/v1/items/"+item.ID, nil, nil), http.StatusOK, &stocked)
	if stocked.Batches[0].Quantity != 2 {
		t.Errorf("stock after rejections = %d, want 2", stocked.Batches[0].Quantity)
	}
	c.expect(c.do("POST", "/api/v1/reports/archive", nil, nil), http.StatusServiceUnavailable, nil)
}
