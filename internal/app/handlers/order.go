package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/domain/models"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/jwt-new/jwtmiddleware"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/service"
	"github.com/go-chi/chi/v5"
)

// CreateOrderResponse — ответ на успешное оформление заказа.
type CreateOrderResponse struct {
	Success bool          `json:"success"`
	OrderID string        `json:"orderId"`
	Order   *models.Order `json:"order"`
}

// CreateOrderHandler обрабатывает запрос POST /api/orders.
// Тело запроса — снимок корзины; цены пересчитываются на сервере.
func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var cart models.CartSnapshot
		if err := json.NewDecoder(r.Body).Decode(&cart); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, service.ErrInvalidCart.Error())
			return
		}

		order, err := orderService.Create(r.Context(), userID, &cart)
		if err != nil {
			logger.Error("failed to create order", slog.Any("error", err))
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreateOrderResponse{
			Success: true,
			OrderID: order.ID,
			Order:   order,
		})
	}
}

// GetOrderHandler обрабатывает запрос GET /api/orders/{id}.
// Заказ виден только владельцу и администраторам.
func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "order id is required")
			return
		}

		order, err := orderService.GetByID(r.Context(), id)
		if err != nil {
			logger.Error("failed to get order", slog.Any("error", err))
			writeServiceError(w, err)
			return
		}

		if order.UserID != userID && !jwtmiddleware.IsAdminFromContext(r.Context()) {
			logger.Warn("access to foreign order denied",
				slog.Int64("userID", userID),
				slog.String("orderID", id),
			)
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

// ListOrdersHandler обрабатывает запрос GET /api/orders: заказы текущего покупателя.
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		orders, err := orderService.ListByUser(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			writeServiceError(w, err)
			return
		}
		if orders == nil {
			orders = []*models.Order{}
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

// requireAdmin оборачивает обработчики административных переходов статуса.
func requireAdmin(logger *slog.Logger, w http.ResponseWriter, r *http.Request) bool {
	if _, ok := jwtmiddleware.FromContext(r.Context()); !ok {
		logger.Error("userID not found in context")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if !jwtmiddleware.IsAdminFromContext(r.Context()) {
		logger.Warn("admin privileges required")
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

// PayOrderHandler обрабатывает запрос POST /api/orders/{id}/pay (только админ).
func PayOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PayOrderHandler"
		logger := log.With(slog.String("op", op))

		if !requireAdmin(logger, w, r) {
			return
		}

		id := chi.URLParam(r, "id")
		order, err := orderService.MarkPaid(r.Context(), id)
		if err != nil {
			logger.Error("failed to mark order as paid", slog.Any("error", err))
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

// DeliverOrderHandler обрабатывает запрос POST /api/orders/{id}/deliver (только админ).
func DeliverOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeliverOrderHandler"
		logger := log.With(slog.String("op", op))

		if !requireAdmin(logger, w, r) {
			return
		}

		id := chi.URLParam(r, "id")
		order, err := orderService.MarkDelivered(r.Context(), id)
		if err != nil {
			logger.Error("failed to mark order as delivered", slog.Any("error", err))
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

// DeleteOrderHandler обрабатывает запрос DELETE /api/orders/{id} (только админ).
func DeleteOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteOrderHandler"
		logger := log.With(slog.String("op", op))

		if !requireAdmin(logger, w, r) {
			return
		}

		id := chi.URLParam(r, "id")
		if err := orderService.Delete(r.Context(), id); err != nil {
			logger.Error("failed to delete order", slog.Any("error", err))
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
