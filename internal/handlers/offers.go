package handlers

import (
	"encoding/json"
	"net/http"

	"car-market/internal/logger"
	"car-market/internal/models"
)

// OfferHandler представляет обработчик заявок на покупку
type OfferHandler struct {
	offers OfferProcessor
	log    *logger.Logger
}

// NewOfferHandler создает новый обработчик заявок
func NewOfferHandler(offers OfferProcessor, log *logger.Logger) *OfferHandler {
	return &OfferHandler{offers: offers, log: log}
}

// CustomerOffer принимает заявку покупателя и проводит сделку.
// Отсутствие подходящего предложения возвращается как 200 без решения.
func (h *OfferHandler) CustomerOffer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var offer models.CustomerOffer
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.offers.HandleCustomerOffer(r.Context(), &offer)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to process customer offer")
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

// DealerOffer принимает закупочную заявку дилера и проводит сделку
func (h *OfferHandler) DealerOffer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var offer models.DealerOffer
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.offers.HandleDealerOffer(r.Context(), &offer)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to process dealer offer")
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}
