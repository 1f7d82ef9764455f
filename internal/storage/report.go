package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/domain/models"
)

// ReportStorage — запросы агрегации для сводных отчётов.
// Все диапазоны [from, to] включительны.
type ReportStorage interface {
	CountOrders(ctx context.Context, from, to time.Time) (int64, error)
	CountProducts(ctx context.Context, from, to time.Time) (int64, error)
	CountUsers(ctx context.Context, from, to time.Time) (int64, error)
	TotalSales(ctx context.Context, from, to time.Time) (float64, error)
	// MonthlySales — выручка по месяцам за шесть календарных месяцев,
	// заканчивающихся месяцем from.
	MonthlySales(ctx context.Context, from time.Time) ([]models.SalesPoint, error)
	DailySales(ctx context.Context, from, to time.Time) ([]models.SalesPoint, error)
	TopProductsByRevenue(ctx context.Context, from, to time.Time, limit int) ([]models.ProductRank, error)
	TopCategoriesByUnits(ctx context.Context, from, to time.Time, limit int) ([]models.CategoryRank, error)
	// LatestOrders не ограничен диапазоном: всегда свежайшие заказы.
	LatestOrders(ctx context.Context, limit int) ([]models.LatestOrder, error)
}

type reportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) ReportStorage {
	return &reportRepository{db: db}
}

func (r *reportRepository) countRange(ctx context.Context, table string, from, to time.Time) (int64, error) {
	var count int64
	query := "SELECT COUNT(*) FROM " + table + " WHERE created_at BETWEEN $1 AND $2"
	if err := r.db.QueryRowContext(ctx, query, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *reportRepository) CountOrders(ctx context.Context, from, to time.Time) (int64, error) {
	return r.countRange(ctx, "orders", from, to)
}

func (r *reportRepository) CountProducts(ctx context.Context, from, to time.Time) (int64, error) {
	return r.countRange(ctx, "products", from, to)
}

func (r *reportRepository) CountUsers(ctx context.Context, from, to time.Time) (int64, error) {
	return r.countRange(ctx, "users", from, to)
}

func (r *reportRepository) TotalSales(ctx context.Context, from, to time.Time) (float64, error) {
	var total float64
	query := "SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE created_at BETWEEN $1 AND $2"
	if err := r.db.QueryRowContext(ctx, query, from, to).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *reportRepository) MonthlySales(ctx context.Context, from time.Time) ([]models.SalesPoint, error) {
	query := `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, SUM(total_price)
		FROM orders
		WHERE created_at >= date_trunc('month', $1::timestamptz) - interval '5 months'
		  AND created_at < date_trunc('month', $1::timestamptz) + interval '1 month'
		GROUP BY month
		ORDER BY month`
	return r.salesSeries(ctx, query, from)
}

func (r *reportRepository) DailySales(ctx context.Context, from, to time.Time) ([]models.SalesPoint, error) {
	query := `
		SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD') AS day, SUM(total_price)
		FROM orders
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY day
		ORDER BY day`
	return r.salesSeries(ctx, query, from, to)
}

func (r *reportRepository) salesSeries(ctx context.Context, query string, args ...any) ([]models.SalesPoint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := []models.SalesPoint{}
	for rows.Next() {
		var p models.SalesPoint
		if err := rows.Scan(&p.Label, &p.Value); err != nil {
			return nil, err
		}
		series = append(series, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return series, nil
}

// TopProductsByRevenue считает выручку по позициям заказов,
// привязывая их к периоду через created_at родительского заказа.
func (r *reportRepository) TopProductsByRevenue(ctx context.Context, from, to time.Time, limit int) ([]models.ProductRank, error) {
	query := `
		SELECT oi.name, SUM(oi.price * oi.quantity) AS revenue
		FROM order_items oi
		JOIN orders o ON oi.order_id = o.id
		WHERE o.created_at BETWEEN $1 AND $2
		GROUP BY oi.name
		ORDER BY revenue DESC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranks := []models.ProductRank{}
	for rows.Next() {
		var p models.ProductRank
		if err := rows.Scan(&p.Name, &p.Revenue); err != nil {
			return nil, err
		}
		ranks = append(ranks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ranks, nil
}

func (r *reportRepository) TopCategoriesByUnits(ctx context.Context, from, to time.Time, limit int) ([]models.CategoryRank, error) {
	query := `
		SELECT oi.category, SUM(oi.quantity) AS units
		FROM order_items oi
		JOIN orders o ON oi.order_id = o.id
		WHERE o.created_at BETWEEN $1 AND $2
		GROUP BY oi.category
		ORDER BY units DESC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranks := []models.CategoryRank{}
	for rows.Next() {
		var c models.CategoryRank
		if err := rows.Scan(&c.Category, &c.Units); err != nil {
			return nil, err
		}
		ranks = append(ranks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ranks, nil
}

func (r *reportRepository) LatestOrders(ctx context.Context, limit int) ([]models.LatestOrder, error) {
	query := `
		SELECT o.id, u.name, o.total_price, o.created_at
		FROM orders o
		JOIN users u ON o.user_id = u.id
		ORDER BY o.created_at DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.LatestOrder{}
	for rows.Next() {
		var o models.LatestOrder
		if err := rows.Scan(&o.ID, &o.BuyerName, &o.TotalPrice, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
