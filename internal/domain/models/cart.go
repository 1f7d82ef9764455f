package models

// CartItem — позиция корзины, присланная клиентом при оформлении заказа.
// Денежные поля клиента нигде не используются как итоговые суммы:
// цена пересчитывается на сервере.
type CartItem struct {
	ClientID     string  `json:"clientId"`
	ProductID    string  `json:"product,omitempty"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Category     string  `json:"category"`
	Quantity     int     `json:"quantity"`
	CountInStock int     `json:"countInStock"`
	Image        string  `json:"image"`
	Price        float64 `json:"price"`
	Size         string  `json:"size,omitempty"`
	Color        string  `json:"color,omitempty"`
}

// CartSnapshot — снимок корзины на момент оформления заказа.
type CartSnapshot struct {
	Items             []CartItem       `json:"items"`
	ShippingAddress   *ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentMethod     string           `json:"paymentMethod"`
	DeliveryDateIndex *int             `json:"deliveryDateIndex,omitempty"`
}
