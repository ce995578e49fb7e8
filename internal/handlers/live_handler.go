package handlers

import (
	"net/http"

	"neodukaan-backend/internal/monitoring"
)

// LiveHandler streams sale and khata events to the shop's open dashboards.
type LiveHandler struct {
	hub *monitoring.Hub
}

func NewLiveHandler(hub *monitoring.Hub) *LiveHandler {
	return &LiveHandler{hub: hub}
}

func (h *LiveHandler) Connect(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r, shopID(r))
}
