package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"neodukaan-backend/internal/handlers"
	"neodukaan-backend/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Items     *handlers.ItemHandler
	Customers *handlers.CustomerHandler
	Sales     *handlers.SaleHandler
	Reports   *handlers.ReportHandler
	Health    *handlers.HealthHandler
	Live      *handlers.LiveHandler
}

func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware, apiLogging *middleware.APILoggingMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.PanicRecovery)
	r.Use(middleware.MetricsMiddleware)
	if apiLogging != nil {
		r.Use(apiLogging.Handler)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public API routes - Authentication
	api.HandleFunc("/auth/register", h.Auth.Register).Methods("POST")
	api.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")

	// Live feed authenticates via ?token= since browsers cannot set headers on websockets
	if h.Live != nil {
		api.Handle("/live", authMiddleware.AuthenticateQuery(http.HandlerFunc(h.Live.Connect))).Methods("GET")
	}

	// Protected API routes
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware.Authenticate)

	protected.HandleFunc("/auth/me", h.Auth.Me).Methods("GET")

	// Inventory
	protected.HandleFunc("/items", h.Items.ListItems).Methods("GET")
	protected.HandleFunc("/items", h.Items.CreateItem).Methods("POST")
	protected.HandleFunc("/items/stats", h.Items.Stats).Methods("GET")
	protected.HandleFunc("/items/{id}", h.Items.GetItem).Methods("GET")
	protected.HandleFunc("/items/{id}", h.Items.UpdateItem).Methods("PUT")
	protected.HandleFunc("/items/{id}", h.Items.DeleteItem).Methods("DELETE")
	protected.HandleFunc("/items/{id}/batches", h.Items.AddBatch).Methods("POST")

	// Customers and khata
	protected.HandleFunc("/customers", h.Customers.ListCustomers).Methods("GET")
	protected.HandleFunc("/customers", h.Customers.CreateCustomer).Methods("POST")
	protected.HandleFunc("/customers/search", h.Customers.SearchByPhone).Methods("GET")
	protected.HandleFunc("/customers/{id}", h.Customers.GetCustomer).Methods("GET")
	protected.HandleFunc("/customers/{id}/balance", h.Customers.GetBalance).Methods("GET")
	protected.HandleFunc("/customers/{id}/payments", h.Customers.ReceivePayment).Methods("POST")

	// Sales
	protected.HandleFunc("/sales", h.Sales.CreateSale).Methods("POST")
	protected.HandleFunc("/sales", h.Sales.ListSales).Methods("GET")
	protected.HandleFunc("/sales/{id}", h.Sales.GetSale).Methods("GET")

	// Reports
	protected.HandleFunc("/reports/sales", h.Reports.SalesReport).Methods("GET")
	protected.HandleFunc("/reports/dashboard", h.Reports.Dashboard).Methods("GET")
	protected.HandleFunc("/reports/khata", h.Reports.Khata).Methods("GET")
	protected.HandleFunc("/reports/archive", h.Reports.Archive).Methods("POST")

	// Health check endpoints (no auth required)
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
