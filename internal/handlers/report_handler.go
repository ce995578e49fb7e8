package handlers

import (
	"net/http"

	"neodukaan-backend/internal/reports"
	"neodukaan-backend/internal/services"
	"neodukaan-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(s *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: s}
}

// SalesReport handles ?range=7d|30d|6m|1y|custom&from=&to=
func (h *ReportHandler) SalesReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := h.Service.SalesReport(r.Context(), shopID(r), reports.Range(q.Get("range")), q.Get("from"), q.Get("to"))
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, summary)
}

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Dashboard(r.Context(), shopID(r))
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, summary)
}

func (h *ReportHandler) Khata(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Khata(r.Context(), shopID(r))
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, summary)
}

// Archive uploads ?date= (default yesterday) to R2 as CSV
func (h *ReportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.ArchiveDay(r.Context(), shopID(r), r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, res)
}
