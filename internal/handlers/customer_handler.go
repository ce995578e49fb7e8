package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/services"
	"neodukaan-backend/pkg/utils"
)

type CustomerHandler struct {
	Service *services.CustomerService
}

func NewCustomerHandler(s *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{Service: s}
}

func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCustomerRequest
	if !decode(w, r, &req) {
		return
	}

	customer, err := h.Service.CreateCustomer(r.Context(), shopID(r), &req)
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, customer)
}

func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.Service.GetCustomer(r.Context(), shopID(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, customer)
}

func (h *CustomerHandler) SearchByPhone(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		utils.RespondErrorKind(w, http.StatusBadRequest, "validation_error", "phone parameter is required", nil)
		return
	}

	customer, err := h.Service.SearchByPhone(r.Context(), shopID(r), phone)
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, customer)
}

func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Service.ListCustomers(r.Context(), shopID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	if customers == nil {
		customers = []*models.Customer{}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"count":     len(customers),
		"customers": customers,
	})
}

func (h *CustomerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Service.Balance(r.Context(), shopID(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, balance)
}

// ReceivePayment records money received against the customer's udhaar
func (h *CustomerHandler) ReceivePayment(w http.ResponseWriter, r *http.Request) {
	var req models.ReceivePaymentRequest
	if !decode(w, r, &req) {
		return
	}

	receipt, err := h.Service.ReceivePayment(r.Context(), shopID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, receipt)
}
