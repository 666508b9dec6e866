package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/app"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
	"github.com/nikhileshnr/mess-rebate-system/internal/rebate"
)

type Handler struct {
	service *app.Service
}

func NewHandler(service *app.Service) *Handler {
	return &Handler{
		service: service,
	}
}

type rebateResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Rebate  *models.Rebate `json:"rebate"`
}

type rebatesResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Rebates []models.Rebate `json:"rebates"`
}

type updateRequest struct {
	Rebates []rebate.Edit `json:"rebates"`
}

type updateResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Updated []models.Rebate `json:"updated"`
	Error   *errorBody      `json:"error,omitempty"`
}

func (h *Handler) CreateRebate(w http.ResponseWriter, r *http.Request) {
	var req rebate.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Debug.Printf("Invalid rebate body: %v", err)
		writeBadRequest(w, "Invalid request body")
		return
	}

	created, err := h.service.Rebates.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if session := SessionFrom(r.Context()); session != nil {
		logger.Info.Printf("Rebate %s recorded by %s", created.PublicID, session.Manager)
	}

	writeJSON(w, http.StatusCreated, rebateResponse{
		Success: true,
		Message: "Rebate created successfully",
		Rebate:  created,
	})
}

func (h *Handler) ListRebates(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := queryInt(r, "month")
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	rebates, err := h.service.Rebates.List(r.Context(), models.RebateFilter{
		RollNo: strings.TrimSpace(q.Get("roll_no")),
		Year:   year,
		Month:  month,
		Branch: strings.TrimSpace(q.Get("branch")),
		Batch:  models.NormalizeBatch(q.Get("batch")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRebates(w, rebates)
}

func (h *Handler) ListMonthlyRebates(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := queryInt(r, "month")
	if err != nil {
		writeError(w, r, err)
		return
	}

	rebates, err := h.service.Rebates.ListForMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRebates(w, rebates)
}

func (h *Handler) ListStudentRebates(w http.ResponseWriter, r *http.Request) {
	rebates, err := h.service.Rebates.ListForStudent(r.Context(), chi.URLParam(r, "rollNo"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRebates(w, rebates)
}

func (h *Handler) CheckOverlap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	overlap, err := h.service.Rebates.CheckOverlap(r.Context(), q.Get("roll_no"), q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"hasOverlap": overlap,
	})
}

func (h *Handler) UpdateRebates(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Debug.Printf("Invalid update body: %v", err)
		writeBadRequest(w, "Invalid request body")
		return
	}

	updated, err := h.service.Rebates.Update(r.Context(), req.Rebates)
	if updated == nil {
		updated = []models.Rebate{}
	}
	if err != nil {
		status, body := classify(err)
		if status == http.StatusInternalServerError {
			logger.Error.Printf("Rebate update failed: %v", err)
		}
		writeJSON(w, status, updateResponse{Updated: updated, Error: &body})
		return
	}

	writeJSON(w, http.StatusOK, updateResponse{
		Success: true,
		Message: "Rebates updated successfully",
		Updated: updated,
	})
}

func writeRebates(w http.ResponseWriter, rebates []models.Rebate) {
	if rebates == nil {
		rebates = []models.Rebate{}
	}
	writeJSON(w, http.StatusOK, rebatesResponse{
		Success: true,
		Count:   len(rebates),
		Rebates: rebates,
	})
}
