package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/domain/models"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductStorage описывает работу с остатками товаров каталога.
type ProductStorage interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	// DecrementStock уменьшает остаток товара в рамках транзакции оплаты.
	DecrementStock(ctx context.Context, tx *sql.Tx, productID string, quantity int) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	product := &models.Product{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, slug, category, image, price, count_in_stock, created_at FROM products WHERE id = $1", id)
	if err := row.Scan(&product.ID, &product.Name, &product.Slug, &product.Category,
		&product.Image, &product.Price, &product.CountInStock, &product.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// DecrementStock выполняет атомарное списание одним UPDATE.
// Read-modify-write здесь недопустим: при двух параллельных оплатах
// одного товара одно из списаний потерялось бы. Условие count_in_stock >= quantity
// не даёт остатку уйти в минус.
func (r *productRepository) DecrementStock(ctx context.Context, tx *sql.Tx, productID string, quantity int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET count_in_stock = count_in_stock - $1 WHERE id = $2 AND count_in_stock >= $1",
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// различаем отсутствующий товар и нехватку остатка
		var exists bool
		row := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", productID)
		if err := row.Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrProductNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}
