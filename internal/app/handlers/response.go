package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/domain/models"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/pricing"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/service"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/storage"
)

// errorResponse — единый конверт ошибки для всех обработчиков.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-статус
// и каноническое сообщение. Неизвестные ошибки не протекают наружу.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCart):
		writeError(w, http.StatusBadRequest, service.ErrInvalidCart.Error())
	case errors.Is(err, service.ErrMissingClientID):
		writeError(w, http.StatusBadRequest, service.ErrMissingClientID.Error())
	case errors.Is(err, pricing.ErrInvalidDeliveryOption):
		writeError(w, http.StatusBadRequest, pricing.ErrInvalidDeliveryOption.Error())
	case errors.Is(err, storage.ErrUserNotFound):
		writeError(w, http.StatusNotFound, storage.ErrUserNotFound.Error())
	case errors.Is(err, storage.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, storage.ErrOrderNotFound.Error())
	case errors.Is(err, storage.ErrProductNotFound):
		writeError(w, http.StatusNotFound, storage.ErrProductNotFound.Error())
	case errors.Is(err, models.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, models.ErrAlreadyPaid.Error())
	case errors.Is(err, models.ErrNotPaid):
		writeError(w, http.StatusConflict, models.ErrNotPaid.Error())
	case errors.Is(err, models.ErrAlreadyDelivered):
		writeError(w, http.StatusConflict, models.ErrAlreadyDelivered.Error())
	case errors.Is(err, storage.ErrInsufficientStock):
		writeError(w, http.StatusConflict, storage.ErrInsufficientStock.Error())
	case errors.Is(err, storage.ErrEmailTaken):
		writeError(w, http.StatusConflict, storage.ErrEmailTaken.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
