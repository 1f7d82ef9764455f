// Package pricing содержит чистый расчёт стоимости заказа:
// суммы позиций, доставки, налога и ожидаемой даты доставки.
package pricing

import (
	"errors"
	"math"
	"time"
)

const (
	// Плоская ставка налога, применяется только при наличии адреса доставки.
	taxRate = 0.15
	// Срок доставки фиксированный: now + 5 дней.
	deliveryOffsetDays = 5
)

var ErrInvalidDeliveryOption = errors.New("invalid delivery option")

// DeliveryOption — настраиваемый вариант доставки: срок, фиксированная цена
// и порог бесплатной доставки. Список задаётся в конфигурации.
type DeliveryOption struct {
	Name                 string  `yaml:"name"`
	DaysToDeliver        int     `yaml:"days_to_deliver"`
	ShippingPrice        float64 `yaml:"shipping_price"`
	FreeShippingMinPrice float64 `yaml:"free_shipping_min_price"`
}

// LineItem — минимальное представление позиции для расчёта.
type LineItem struct {
	Price    float64
	Quantity int
}

// Quote — результат расчёта. ShippingPrice и TaxPrice отсутствуют,
// пока не указан адрес доставки (состояние "address-pending").
type Quote struct {
	ItemsPrice           float64
	ShippingPrice        *float64
	TaxPrice             *float64
	TotalPrice           float64
	ExpectedDeliveryDate time.Time
	DeliveryDateIndex    int
}

// Engine рассчитывает стоимость по упорядоченному списку вариантов доставки.
type Engine struct {
	options []DeliveryOption
}

func NewEngine(options []DeliveryOption) *Engine {
	return &Engine{options: options}
}

// Round2 округляет денежную величину до 2 знаков (half-up).
// Округление выполняется на каждом шаге расчёта, неокруглённые суммы не накапливаются.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Quote рассчитывает стоимость корзины.
// Если индекс варианта доставки не передан, выбирается последний вариант списка.
// Индекс вне границ списка — ошибка, а не ближайший вариант.
func (e *Engine) Quote(items []LineItem, hasAddress bool, deliveryIndex *int, now time.Time) (*Quote, error) {
	idx := len(e.options) - 1
	if deliveryIndex != nil {
		idx = *deliveryIndex
	}
	if idx < 0 || idx >= len(e.options) {
		return nil, ErrInvalidDeliveryOption
	}
	opt := e.options[idx]

	itemsPrice := 0.0
	for _, it := range items {
		itemsPrice += Round2(it.Price * float64(it.Quantity))
	}
	itemsPrice = Round2(itemsPrice)

	q := &Quote{
		ItemsPrice:        itemsPrice,
		DeliveryDateIndex: idx,
		// TODO: учитывать DaysToDeliver выбранного варианта, сейчас дата не зависит от него
		ExpectedDeliveryDate: now.AddDate(0, 0, deliveryOffsetDays),
	}

	if !hasAddress {
		// без адреса доставка и налог не считаются
		q.TotalPrice = itemsPrice
		return q, nil
	}

	shipping := opt.ShippingPrice
	if opt.FreeShippingMinPrice > 0 && itemsPrice >= opt.FreeShippingMinPrice {
		shipping = 0
	}
	tax := Round2(itemsPrice * taxRate)

	q.ShippingPrice = &shipping
	q.TaxPrice = &tax
	q.TotalPrice = Round2(itemsPrice + shipping + tax)
	return q, nil
}
