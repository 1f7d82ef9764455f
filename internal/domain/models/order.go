package models

import (
	"errors"
	"time"
)

// Ошибки переходов жизненного цикла заказа.
var (
	ErrAlreadyPaid      = errors.New("order is already paid")
	ErrNotPaid          = errors.New("order is not paid")
	ErrAlreadyDelivered = errors.New("order is already delivered")
)

// OrderStatus — состояние жизненного цикла заказа, вычисляется из флагов оплаты и доставки.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
)

// ShippingAddress — адрес доставки, встроенный в заказ.
// Для расчёта стоимости доставки обязательны только street/province/area.
type ShippingAddress struct {
	Street    string `json:"street"`
	Province  string `json:"province"`
	Area      string `json:"area"`
	Apartment string `json:"apartment,omitempty"`
	Building  string `json:"building,omitempty"`
	Floor     string `json:"floor,omitempty"`
	Landmark  string `json:"landmark,omitempty"`
}

// OrderItem — замороженный снимок товара на момент оформления заказа.
// После создания цена, имя и картинка позиции не меняются,
// даже если исходный товар каталога изменился.
type OrderItem struct {
	ID           int64   `json:"id"`
	OrderID      string  `json:"orderId"`
	ProductID    string  `json:"productId,omitempty"` // ссылка на товар каталога, может отсутствовать
	ClientID     string  `json:"clientId"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Category     string  `json:"category"`
	Quantity     int     `json:"quantity"`
	CountInStock int     `json:"countInStock"` // остаток на момент заказа
	Image        string  `json:"image"`
	Price        float64 `json:"price"`
	Size         string  `json:"size,omitempty"`
	Color        string  `json:"color,omitempty"`
}

// Order — оплачиваемый заказ, создаётся из снимка корзины и проходит
// жизненный цикл created -> paid -> delivered строго в этом порядке.
type Order struct {
	ID                   string           `json:"id"`
	UserID               int64            `json:"userId"`
	PaymentMethod        string           `json:"paymentMethod"`
	ItemsPrice           float64          `json:"itemsPrice"`
	ShippingPrice        *float64         `json:"shippingPrice,omitempty"`
	TaxPrice             *float64         `json:"taxPrice,omitempty"`
	TotalPrice           float64          `json:"totalPrice"`
	IsPaid               bool             `json:"isPaid"`
	PaidAt               *time.Time       `json:"paidAt,omitempty"`
	IsDelivered          bool             `json:"isDelivered"`
	DeliveredAt          *time.Time       `json:"deliveredAt,omitempty"`
	ExpectedDeliveryDate time.Time        `json:"expectedDeliveryDate"`
	CreatedAt            time.Time        `json:"createdAt"`
	ShippingAddress      *ShippingAddress `json:"shippingAddress,omitempty"`
	Items                []*OrderItem     `json:"items"`
}

// Status возвращает текущее состояние жизненного цикла.
func (o *Order) Status() OrderStatus {
	switch {
	case o.IsDelivered:
		return OrderStatusDelivered
	case o.IsPaid:
		return OrderStatusPaid
	default:
		return OrderStatusCreated
	}
}

// MarkPaid переводит заказ в состояние paid. Повторная оплата запрещена.
func (o *Order) MarkPaid(now time.Time) error {
	if o.IsPaid {
		return ErrAlreadyPaid
	}
	o.IsPaid = true
	o.PaidAt = &now
	return nil
}

// MarkDelivered переводит заказ в состояние delivered.
// Доставка возможна только после оплаты, поэтому состояние
// delivered-but-unpaid через переходы недостижимо.
func (o *Order) MarkDelivered(now time.Time) error {
	if !o.IsPaid {
		return ErrNotPaid
	}
	if o.IsDelivered {
		return ErrAlreadyDelivered
	}
	o.IsDelivered = true
	o.DeliveredAt = &now
	return nil
}
