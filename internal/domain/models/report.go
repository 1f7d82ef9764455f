package models

import "time"

// SalesPoint — точка временного ряда выручки (месяц или день).
type SalesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ProductRank — позиция рейтинга товаров по выручке.
type ProductRank struct {
	Name    string  `json:"label"`
	Revenue float64 `json:"value"`
}

// CategoryRank — позиция рейтинга категорий по количеству проданных единиц.
type CategoryRank struct {
	Category string `json:"label"`
	Units    int64  `json:"value"`
}

// LatestOrder — строка списка последних заказов для дашборда.
type LatestOrder struct {
	ID         string    `json:"id"`
	BuyerName  string    `json:"buyerName"`
	TotalPrice float64   `json:"totalPrice"`
	CreatedAt  time.Time `json:"createdAt"`
}

// OrderSummary — сводка для дашборда за период [from, to].
// Сущность живёт только в кеше, в БД не сохраняется.
// LatestOrders намеренно не ограничен периодом: это всегда свежайшие заказы.
type OrderSummary struct {
	OrdersCount        int64          `json:"ordersCount"`
	ProductsCount      int64          `json:"productsCount"`
	UsersCount         int64          `json:"usersCount"`
	TotalSales         float64        `json:"totalSales"`
	MonthlySales       []SalesPoint   `json:"monthlySales"`
	SalesChartData     []SalesPoint   `json:"salesChartData"`
	TopSalesCategories []CategoryRank `json:"topSalesCategories"`
	TopSalesProducts   []ProductRank  `json:"topSalesProducts"`
	LatestOrders       []LatestOrder  `json:"latestOrders"`
}
