package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	students, err := h.service.Store.ListStudents(r.Context(), models.StudentFilter{
		Branch: strings.TrimSpace(q.Get("branch")),
		Batch:  models.NormalizeBatch(q.Get("batch")),
	})
	if err != nil {
		writeError(w, r, apperrors.Database("list students", err))
		return
	}
	if students == nil {
		students = []models.Student{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"count":    len(students),
		"students": students,
	})
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	rollNo := strings.TrimSpace(chi.URLParam(r, "rollNo"))
	student, err := h.service.Store.GetStudent(r.Context(), rollNo)
	if err != nil {
		writeError(w, r, apperrors.Database("get student", err))
		return
	}
	if student == nil {
		writeError(w, r, apperrors.NotFound("student", apperrors.CodeStudentNotFound, rollNo))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"student": student,
	})
}
