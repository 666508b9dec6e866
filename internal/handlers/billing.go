package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/billing"
	"github.com/nikhileshnr/mess-rebate-system/internal/calendar"
	"github.com/nikhileshnr/mess-rebate-system/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// billingRequest reads month=YYYY-MM, batch, and either feast_date or
// no_feast=true.
func billingRequest(r *http.Request) (billing.Request, error) {
	q := r.URL.Query()

	year, month, err := billing.ParseMonth(q.Get("month"))
	if err != nil {
		return billing.Request{}, err
	}

	req := billing.Request{
		Year:  year,
		Month: month,
		Batch: models.NormalizeBatch(q.Get("batch")),
	}
	if raw := q.Get("no_feast"); raw != "" {
		req.NoFeast, _ = strconv.ParseBool(raw)
	}
	if !req.NoFeast && q.Get("feast_date") != "" {
		if req.FeastDate, err = calendar.ParseField("feast_date", q.Get("feast_date")); err != nil {
			return billing.Request{}, err
		}
	}
	return req, nil
}

func (h *Handler) ExportBilling(w http.ResponseWriter, r *http.Request) {
	req, err := billingRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.service.Billing.Export(r.Context(), req, &buf); err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info.Printf("Exported billing workbook %s (%d bytes)", req.FileName(), buf.Len())

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Error.Printf("Failed to send billing workbook: %v", err)
	}
}

func (h *Handler) BillingStatement(w http.ResponseWriter, r *http.Request) {
	req, err := billingRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	statement, err := h.service.Billing.Statement(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"month":     req.Label(),
		"statement": statement,
	})
}
