package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/domain/models"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/notify"
	"github.com/stretchr/testify/assert"
)

func testOrder() *models.Order {
	return &models.Order{
		ID:                   "order-1",
		TotalPrice:           52.02,
		ExpectedDeliveryDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Items: []*models.OrderItem{
			{Name: "Paracetamol"},
			{Name: "Vitamin C"},
		},
	}
}

func testUser() *models.User {
	return &models.User{Name: "Ahmed", Phone: "+201001234567"}
}

func TestSendPurchaseReceipt_Success(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gateway := notify.NewSMSGateway(server.URL, "test-key", "pharmacy-store")
	err := gateway.SendPurchaseReceipt(context.Background(), testOrder(), testUser())
	assert.NoError(t, err)

	assert.Equal(t, "+201001234567", received["to"])
	assert.Equal(t, "pharmacy-store", received["from"])
	assert.Contains(t, received["text"], "order-1")
	assert.Contains(t, received["text"], "52.02")
}

func TestSendAskReviewOrderItems_Success(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gateway := notify.NewSMSGateway(server.URL, "", "pharmacy-store")
	err := gateway.SendAskReviewOrderItems(context.Background(), testOrder(), testUser())
	assert.NoError(t, err)

	// текст просьбы об отзыве перечисляет товары заказа
	assert.Contains(t, received["text"], "Paracetamol")
	assert.Contains(t, received["text"], "Vitamin C")
}

func TestSend_NotConfigured(t *testing.T) {
	gateway := notify.NewSMSGateway("", "", "pharmacy-store")
	err := gateway.SendPurchaseReceipt(context.Background(), testOrder(), testUser())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSend_MissingPhone(t *testing.T) {
	gateway := notify.NewSMSGateway("http://localhost:9090", "", "pharmacy-store")
	user := &models.User{Name: "Ahmed"}
	err := gateway.SendPurchaseReceipt(context.Background(), testOrder(), user)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing recipient phone")
}

func TestSend_GatewayRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 4xx не ретраится и возвращается как ошибка
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	gateway := notify.NewSMSGateway(server.URL, "", "pharmacy-store")
	err := gateway.SendPurchaseReceipt(context.Background(), testOrder(), testUser())
	assert.Error(t, err)
}
