package handlers

import (
	"net/http"
	"strings"

	"github.com/nikhileshnr/mess-rebate-system/internal/models"
	"github.com/nikhileshnr/mess-rebate-system/internal/stats"
)

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	filter := stats.Filter{
		Branch: strings.TrimSpace(r.URL.Query().Get("branch")),
		Batch:  models.NormalizeBatch(r.URL.Query().Get("batch")),
	}

	params := []struct {
		name string
		dst  *int
	}{
		{"year", &filter.Year},
		{"page", &filter.Page},
		{"limit", &filter.Limit},
	}
	var err error
	for _, p := range params {
		if *p.dst, err = queryInt(r, p.name); err != nil {
			writeError(w, r, err)
			return
		}
	}

	report, err := h.service.Stats.Statistics(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    report,
	})
}

func (h *Handler) ClearStatisticsCache(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Stats.ClearCache(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Statistics cache cleared",
	})
}
