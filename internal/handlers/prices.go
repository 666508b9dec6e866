package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/billing"
)

type pricesBody struct {
	PricePerDay    float64 `json:"price_per_day"`
	GalaDinnerCost float64 `json:"gala_dinner_cost"`
}

func toPricesBody(p billing.Prices) pricesBody {
	return pricesBody{
		PricePerDay:    p.PricePerDay.InexactFloat64(),
		GalaDinnerCost: p.GalaDinnerCost.InexactFloat64(),
	}
}

func (h *Handler) GetPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.service.Prices.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"prices":  toPricesBody(prices),
	})
}

func (h *Handler) UpdatePrices(w http.ResponseWriter, r *http.Request) {
	var update billing.PriceUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.Debug.Printf("Invalid price body: %v", err)
		writeBadRequest(w, "Invalid request body")
		return
	}

	prices, err := h.service.Prices.Update(update)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Prices updated successfully",
		"prices":  toPricesBody(prices),
	})
}
