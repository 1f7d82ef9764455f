// Package notify отправляет покупателям SMS-уведомления через внешний шлюз.
// Уведомления — best-effort: их сбой не влияет на уже совершённые переходы заказа.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"context"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/domain/models"
	"github.com/hashicorp/go-retryablehttp"
)

// Notifier — коллаборатор уведомлений о событиях заказа.
type Notifier interface {
	// SendPurchaseReceipt отправляет подтверждение оплаты заказа.
	SendPurchaseReceipt(ctx context.Context, order *models.Order, user *models.User) error
	// SendAskReviewOrderItems просит покупателя оценить доставленные товары.
	SendAskReviewOrderItems(ctx context.Context, order *models.Order, user *models.User) error
}

// SMSGateway инкапсулирует HTTP-взаимодействие с SMS-шлюзом.
type SMSGateway struct {
	baseURL    string
	apiKey     string
	sender     string
	httpClient *retryablehttp.Client
}

// NewSMSGateway создаёт клиент шлюза по указанному адресу.
// Пустой адрес допустим: такой клиент сообщает об отсутствии настройки при отправке.
func NewSMSGateway(baseURL, apiKey, sender string) *SMSGateway {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil

	return &SMSGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		sender:     sender,
		httpClient: client,
	}
}

func (g *SMSGateway) SendPurchaseReceipt(ctx context.Context, order *models.Order, user *models.User) error {
	text := fmt.Sprintf("Dear %s, your order %s has been paid. Total: %.2f. Expected delivery: %s.",
		user.Name, order.ID, order.TotalPrice, order.ExpectedDeliveryDate.Format("2006-01-02"))
	return g.send(ctx, user.Phone, text)
}

func (g *SMSGateway) SendAskReviewOrderItems(ctx context.Context, order *models.Order, user *models.User) error {
	names := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		names = append(names, item.Name)
	}
	text := fmt.Sprintf("Dear %s, your order %s was delivered. We would love your review of: %s.",
		user.Name, order.ID, strings.Join(names, ", "))
	return g.send(ctx, user.Phone, text)
}

type smsMessage struct {
	To   string `json:"to"`
	From string `json:"from"`
	Text string `json:"text"`
}

func (g *SMSGateway) send(ctx context.Context, phone, text string) error {
	if g == nil || g.baseURL == "" {
		return fmt.Errorf("sms gateway not configured")
	}
	if phone == "" {
		return fmt.Errorf("missing recipient phone")
	}

	body, err := json.Marshal(smsMessage{To: phone, From: g.sender, Text: text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
