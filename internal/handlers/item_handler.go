package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/services"
	"neodukaan-backend/pkg/utils"
)

type ItemHandler struct {
	Service *services.InventoryService
}

func NewItemHandler(s *services.InventoryService) *ItemHandler {
	return &ItemHandler{Service: s}
}

func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req models.CreateItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.Service.CreateItem(r.Context(), shopID(r), &req)
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListItems(r.Context(), shopID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	if items == nil {
		items = []*models.Item{}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"count": len(items),
		"items": items,
	})
}

func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.GetItem(r.Context(), shopID(r), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.Service.UpdateItem(r.Context(), shopID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteItem(r.Context(), shopID(r), mux.Vars(r)["id"]); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddBatch restocks an item
func (h *ItemHandler) AddBatch(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBatchRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.Service.AddBatch(r.Context(), shopID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, item)
}

// Stats returns low stock, expiring batches and stock value
func (h *ItemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context(), shopID(r))
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, stats)
}
