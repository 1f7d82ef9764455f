package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/domain/models"
	"github.com/lib/pq"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrder сохраняет заказ вместе с позициями и адресом одной транзакцией.
	CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	// LockOrderByIDTx читает заказ с блокировкой строки для перехода состояния.
	LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id string) (*models.Order, error)
	// UpdateOrderStatusTx записывает флаги оплаты и доставки.
	UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, order *models.Order) error
	// DeleteOrder жёстко удаляет заказ вместе с позициями (каскад).
	DeleteOrder(ctx context.Context, id string) error
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

// querier покрывает *sql.DB и *sql.Tx для чтения позиций заказа.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const orderColumns = `id, user_id, payment_method, items_price, shipping_price, tax_price, total_price,
	is_paid, paid_at, is_delivered, delivered_at, expected_delivery_date,
	street, province, area, apartment, building, floor, landmark, created_at`

func (r *orderRepository) CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	var street, province, area, apartment, building, floor, landmark sql.NullString
	if addr := order.ShippingAddress; addr != nil {
		street = sql.NullString{String: addr.Street, Valid: true}
		province = sql.NullString{String: addr.Province, Valid: true}
		area = sql.NullString{String: addr.Area, Valid: true}
		apartment = sql.NullString{String: addr.Apartment, Valid: true}
		building = sql.NullString{String: addr.Building, Valid: true}
		floor = sql.NullString{String: addr.Floor, Valid: true}
		landmark = sql.NullString{String: addr.Landmark, Valid: true}
	}

	query := `INSERT INTO orders (id, user_id, payment_method, items_price, shipping_price, tax_price, total_price,
		is_paid, is_delivered, expected_delivery_date,
		street, province, area, apartment, building, floor, landmark, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := tx.ExecContext(ctx, query,
		order.ID, order.UserID, order.PaymentMethod,
		order.ItemsPrice, order.ShippingPrice, order.TaxPrice, order.TotalPrice,
		order.IsPaid, order.IsDelivered, order.ExpectedDeliveryDate,
		street, province, area, apartment, building, floor, landmark, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, client_id, name, slug, category,
		quantity, count_in_stock, image, price, size, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	for _, item := range order.Items {
		var productID sql.NullString
		if item.ProductID != "" {
			productID = sql.NullString{String: item.ProductID, Valid: true}
		}
		err := tx.QueryRowContext(ctx, itemQuery,
			order.ID, productID, item.ClientID, item.Name, item.Slug, item.Category,
			item.Quantity, item.CountInStock, item.Image, item.Price,
			nullable(item.Size), nullable(item.Color),
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
		item.OrderID = order.ID
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	items, err := loadOrderItems(ctx, r.db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE user_id = $1 ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, order := range orders {
		items, err := loadOrderItems(ctx, r.db, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (r *orderRepository) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id string) (*models.Order, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE NOWAIT", id)
	order, err := scanOrder(row)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "55P03" { // lock
				return nil, fmt.Errorf("order is locked, please try again: %w", err)
			}
		}
		return nil, err
	}
	items, err := loadOrderItems(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET is_paid = $1, paid_at = $2, is_delivered = $3, delivered_at = $4 WHERE id = $5",
		order.IsPaid, order.PaidAt, order.IsDelivered, order.DeliveredAt, order.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// DeleteOrder удаляет заказ безвозвратно. Списанные при оплате остатки
// намеренно не восстанавливаются.
func (r *orderRepository) DeleteOrder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var (
		shippingPrice, taxPrice                                    sql.NullFloat64
		paidAt, deliveredAt                                        sql.NullTime
		street, province, area, apartment, building, floor, landmark sql.NullString
	)
	err := row.Scan(&order.ID, &order.UserID, &order.PaymentMethod,
		&order.ItemsPrice, &shippingPrice, &taxPrice, &order.TotalPrice,
		&order.IsPaid, &paidAt, &order.IsDelivered, &deliveredAt, &order.ExpectedDeliveryDate,
		&street, &province, &area, &apartment, &building, &floor, &landmark, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if shippingPrice.Valid {
		order.ShippingPrice = &shippingPrice.Float64
	}
	if taxPrice.Valid {
		order.TaxPrice = &taxPrice.Float64
	}
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	if deliveredAt.Valid {
		order.DeliveredAt = &deliveredAt.Time
	}
	// адрес считается заполненным, если была указана улица
	if street.Valid {
		order.ShippingAddress = &models.ShippingAddress{
			Street:    street.String,
			Province:  province.String,
			Area:      area.String,
			Apartment: apartment.String,
			Building:  building.String,
			Floor:     floor.String,
			Landmark:  landmark.String,
		}
	}
	return order, nil
}

func loadOrderItems(ctx context.Context, q querier, orderID string) ([]*models.OrderItem, error) {
	query := `SELECT id, order_id, product_id, client_id, name, slug, category,
		quantity, count_in_stock, image, price, size, color
		FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		var productID, size, color sql.NullString
		if err := rows.Scan(&item.ID, &item.OrderID, &productID, &item.ClientID,
			&item.Name, &item.Slug, &item.Category, &item.Quantity, &item.CountInStock,
			&item.Image, &item.Price, &size, &color); err != nil {
			return nil, err
		}
		item.ProductID = productID.String
		item.Size = size.String
		item.Color = color.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
