package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/services"
	"neodukaan-backend/internal/timeutil"
	"neodukaan-backend/pkg/utils"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 128
)

type SaleHandler struct {
	Service *services.SaleService
}

func NewSaleHandler(s *services.SaleService) *SaleHandler {
	return &SaleHandler{Service: s}
}

// CreateSale settles a checkout. A repeated Idempotency-Key returns the
// original sale with 200 instead of 201.
func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLen {
		utils.RespondErrorKind(w, http.StatusBadRequest, "validation_error", "Idempotency-Key is too long", nil)
		return
	}

	var req models.CreateSaleRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.Service.Checkout(r.Context(), shopID(r), &req, key)
	if err != nil {
		respondError(w, err)
		return
	}

	if res.Replayed {
		w.Header().Set(ReplayedHeader, "true")
		utils.RespondJSON(w, http.StatusOK, res.Sale)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, res.Sale)
}

// ListSales lists sales between ?from= and ?to= (inclusive IST dates,
// default today).
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	now := timeutil.Now()
	from, err := parseDay(r.URL.Query().Get("from"), now)
	if err != nil {
		utils.RespondErrorKind(w, http.StatusBadRequest, "validation_error", "from must be YYYY-MM-DD", nil)
		return
	}
	to, err := parseDay(r.URL.Query().Get("to"), now)
	if err != nil {
		utils.RespondErrorKind(w, http.StatusBadRequest, "validation_error", "to must be YYYY-MM-DD", nil)
		return
	}

	sales, err := h.Service.ListSales(r.Context(), shopID(r), from, timeutil.NextDay(to))
	if err != nil {
		respondError(w, err)
		return
	}
	if sales == nil {
		sales = []*models.Sale{}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"count": len(sales),
		"sales": sales,
	})
}

func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Service.GetSale(r.Context(), shopID(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sale)
}

func parseDay(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return timeutil.StartOfDay(fallback), nil
	}
	return timeutil.ParseDate(value)
}
