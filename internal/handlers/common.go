package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"neodukaan-backend/internal/cache"
	"neodukaan-backend/internal/logger"
	"neodukaan-backend/internal/middleware"
	"neodukaan-backend/internal/services"
	"neodukaan-backend/internal/settlement"
	"neodukaan-backend/internal/store"
	"neodukaan-backend/pkg/utils"
)

var validate = validator.New()

// decode reads a JSON body into dst and runs its validate tags. On failure
// it has already written the 400 response.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondErrorKind(w, http.StatusBadRequest, "validation_error", "Invalid request body: "+err.Error(), nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			utils.RespondErrorKind(w, http.StatusBadRequest, "validation_error", "Invalid request", map[string]any{
				"fields": processValidationErrors(verrs),
			})
			return false
		}
		utils.RespondErrorKind(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return false
	}
	return true
}

// processValidationErrors maps "CreateSaleRequest.Lines[0].Quantity" style
// namespaces to the failed tag.
func processValidationErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		field := ve.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		out[field] = ve.Tag()
	}
	return out
}

func shopID(r *http.Request) string {
	id, _ := middleware.GetShopIDFromContext(r.Context())
	return id
}

// respondError maps domain errors to HTTP statuses and the error body.
func respondError(w http.ResponseWriter, err error) {
	var (
		validation *settlement.ValidationError
		mismatch   *settlement.PaymentMismatchError
		stock      *settlement.InsufficientStockError
		exceeds    *store.ExceedsBalanceError
		item       *settlement.ItemNotFoundError
		batch      *settlement.BatchNotFoundError
		customer   *settlement.CustomerNotFoundError
	)
	kind := settlement.Kind(err)

	switch {
	case errors.As(err, &validation):
		utils.RespondErrorKind(w, http.StatusBadRequest, kind, err.Error(), map[string]any{
			"field":  validation.Field,
			"reason": validation.Reason,
		})
	case errors.As(err, &mismatch):
		utils.RespondErrorKind(w, http.StatusUnprocessableEntity, kind, err.Error(), map[string]any{
			"total": mismatch.Total,
			"paid":  mismatch.Paid,
		})
	case errors.Is(err, settlement.ErrCreditRequiresCustomer):
		utils.RespondErrorKind(w, http.StatusUnprocessableEntity, kind, err.Error(), nil)
	case errors.As(err, &exceeds):
		utils.RespondErrorKind(w, http.StatusUnprocessableEntity, kind, err.Error(), map[string]any{
			"balance": exceeds.Balance,
			"amount":  exceeds.Amount,
		})
	case errors.As(err, &stock):
		details := map[string]any{
			"item_id":   stock.ItemID,
			"available": stock.Available,
			"requested": stock.Requested,
		}
		if stock.BatchID != "" {
			details["batch_id"] = stock.BatchID
		}
		utils.RespondErrorKind(w, http.StatusConflict, kind, err.Error(), details)
	case errors.As(err, &item):
		utils.RespondErrorKind(w, http.StatusNotFound, kind, err.Error(), map[string]any{"item_id": item.ItemID})
	case errors.As(err, &batch):
		utils.RespondErrorKind(w, http.StatusNotFound, kind, err.Error(), map[string]any{"item_id": batch.ItemID, "batch_id": batch.BatchID})
	case errors.As(err, &customer):
		utils.RespondErrorKind(w, http.StatusNotFound, kind, err.Error(), map[string]any{"customer_id": customer.CustomerID})
	case errors.Is(err, store.ErrItemNotFound):
		utils.RespondErrorKind(w, http.StatusNotFound, "item_not_found", "Item not found", nil)
	case errors.Is(err, store.ErrBatchNotFound):
		utils.RespondErrorKind(w, http.StatusNotFound, "batch_not_found", "Batch not found", nil)
	case errors.Is(err, store.ErrCustomerNotFound):
		utils.RespondErrorKind(w, http.StatusNotFound, "customer_not_found", "Customer not found", nil)
	case errors.Is(err, store.ErrSaleNotFound):
		utils.RespondErrorKind(w, http.StatusNotFound, "sale_not_found", "Sale not found", nil)
	case errors.Is(err, store.ErrShopNotFound):
		utils.RespondErrorKind(w, http.StatusNotFound, "shop_not_found", "Shop not found", nil)
	case errors.Is(err, store.ErrDuplicatePhone), errors.Is(err, store.ErrDuplicateEmail):
		utils.RespondErrorKind(w, http.StatusConflict, "duplicate", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondErrorKind(w, http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
	case errors.Is(err, services.ErrCheckoutInProgress), errors.Is(err, cache.ErrLockNotObtained):
		utils.RespondErrorKind(w, http.StatusConflict, "checkout_in_progress", err.Error(), map[string]any{"retryable": true})
	case errors.Is(err, store.ErrStaleWrite):
		utils.RespondErrorKind(w, http.StatusConflict, "stale_write", "The data changed while saving, please retry", map[string]any{"retryable": true})
	case errors.Is(err, services.ErrArchiveDisabled):
		utils.RespondErrorKind(w, http.StatusServiceUnavailable, "archive_disabled", err.Error(), nil)
	case kind == "persistence_error", errors.Is(err, store.ErrPersistence):
		utils.RespondErrorKind(w, http.StatusServiceUnavailable, "persistence_error", "Storage unavailable, please retry", map[string]any{"retryable": true})
	default:
		logger.LogError(logger.For("handlers"), "respondError", "unhandled error", nil, err)
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
