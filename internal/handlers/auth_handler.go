package handlers

import (
	"net/http"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/services"
	"neodukaan-backend/pkg/utils"
)

type AuthHandler struct {
	Service *services.ShopService
}

func NewAuthHandler(s *services.ShopService) *AuthHandler {
	return &AuthHandler{Service: s}
}

// Register creates a shop and returns a token for its owner
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	authResp, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, authResp)
}

// Login handles shop owner authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	authResp, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, authResp)
}

// Me returns the authenticated shop
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	shop, err := h.Service.Me(r.Context(), shopID(r))
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, shop)
}
