package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/domain/models"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/notify"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/pricing"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrInvalidCart     = errors.New("invalid cart data")
	ErrMissingClientID = errors.New("missing required information")
)

// таймаут на фоновую отправку уведомления после коммита транзакции
const notifyTimeout = 10 * time.Second

// OrderService — операции жизненного цикла заказа.
type OrderService interface {
	Create(ctx context.Context, userID int64, cart *models.CartSnapshot) (*models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Order, error)
	MarkPaid(ctx context.Context, id string) (*models.Order, error)
	MarkDelivered(ctx context.Context, id string) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

type orderService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	productRepo storage.ProductStorage
	userRepo    storage.UserStorage
	engine      *pricing.Engine
	notifier    notify.Notifier
}

func NewOrderService(
	log *slog.Logger,
	db *sql.DB,
	orderRepo storage.OrderStorage,
	productRepo storage.ProductStorage,
	userRepo storage.UserStorage,
	engine *pricing.Engine,
	notifier notify.Notifier,
) OrderService {
	return &orderService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		engine:      engine,
		notifier:    notifier,
	}
}

// Create оформляет заказ из снимка корзины. Цены пересчитываются на сервере,
// присланные клиентом суммы игнорируются.
func (s *orderService) Create(ctx context.Context, userID int64, cart *models.CartSnapshot) (*models.Order, error) {
	const op = "order.Create"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("userID", userID),
	)

	if cart == nil || len(cart.Items) == 0 {
		logger.Warn("empty cart")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCart)
	}
	for _, item := range cart.Items {
		if item.ClientID == "" {
			logger.Warn("cart item without clientId")
			return nil, fmt.Errorf("%s: %w", op, ErrMissingClientID)
		}
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	lines := make([]pricing.LineItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, pricing.LineItem{Price: item.Price, Quantity: item.Quantity})
	}
	now := time.Now()
	quote, err := s.engine.Quote(lines, cart.ShippingAddress != nil, cart.DeliveryDateIndex, now)
	if err != nil {
		logger.Warn("failed to price cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	order := &models.Order{
		ID:                   uuid.NewString(),
		UserID:               user.ID,
		PaymentMethod:        cart.PaymentMethod,
		ItemsPrice:           quote.ItemsPrice,
		ShippingPrice:        quote.ShippingPrice,
		TaxPrice:             quote.TaxPrice,
		TotalPrice:           quote.TotalPrice,
		ExpectedDeliveryDate: quote.ExpectedDeliveryDate,
		CreatedAt:            now,
		ShippingAddress:      cart.ShippingAddress,
	}
	order.Items = make([]*models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		order.Items = append(order.Items, &models.OrderItem{
			OrderID:      order.ID,
			ProductID:    item.ProductID,
			ClientID:     item.ClientID,
			Name:         item.Name,
			Slug:         item.Slug,
			Category:     item.Category,
			Quantity:     item.Quantity,
			CountInStock: item.CountInStock,
			Image:        item.Image,
			Price:        item.Price,
			Size:         item.Size,
			Color:        item.Color,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		tx.Rollback()
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order created",
		slog.String("orderID", order.ID),
		slog.Float64("totalPrice", order.TotalPrice),
	)
	return order, nil
}

func (s *orderService) GetByID(ctx context.Context, id string) (*models.Order, error) {
	const op = "order.GetByID"

	order, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

func (s *orderService) ListByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "order.ListByUser"

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// MarkPaid переводит заказ в состояние paid и в той же транзакции
// списывает остатки по позициям, привязанным к товарам каталога.
// Списание и смена статуса либо фиксируются вместе, либо откатываются вместе.
func (s *orderService) MarkPaid(ctx context.Context, id string) (*models.Order, error) {
	const op = "order.MarkPaid"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("orderID", id),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock order: %w", op, err)
	}

	if err := order.MarkPaid(time.Now()); err != nil {
		tx.Rollback()
		logger.Warn("payment rejected", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, item := range order.Items {
		if item.ProductID == "" {
			continue
		}
		if err := s.productRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			tx.Rollback()
			logger.Warn("failed to decrement stock",
				slog.String("productID", item.ProductID),
				slog.Any("error", err),
			)
			return nil, fmt.Errorf("%s: failed to decrement stock: %w", op, err)
		}
	}

	if err := s.orderRepo.UpdateOrderStatusTx(ctx, tx, order); err != nil {
		tx.Rollback()
		logger.Error("failed to update order status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update order status: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order paid", slog.Int64("userID", order.UserID))

	s.notifyAsync(logger, order, func(ctx context.Context, order *models.Order, user *models.User) error {
		return s.notifier.SendPurchaseReceipt(ctx, order, user)
	})

	return order, nil
}

// MarkDelivered переводит оплаченный заказ в состояние delivered.
func (s *orderService) MarkDelivered(ctx context.Context, id string) (*models.Order, error) {
	const op = "order.MarkDelivered"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("orderID", id),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderByIDTx(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock order: %w", op, err)
	}

	if err := order.MarkDelivered(time.Now()); err != nil {
		tx.Rollback()
		logger.Warn("delivery rejected", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.orderRepo.UpdateOrderStatusTx(ctx, tx, order); err != nil {
		tx.Rollback()
		logger.Error("failed to update order status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update order status: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order delivered", slog.Int64("userID", order.UserID))

	s.notifyAsync(logger, order, func(ctx context.Context, order *models.Order, user *models.User) error {
		return s.notifier.SendAskReviewOrderItems(ctx, order, user)
	})

	return order, nil
}

// Delete жёстко удаляет заказ. Остатки товаров при этом не возвращаются:
// списание происходит только при оплате, а возвраты оформляются отдельно.
func (s *orderService) Delete(ctx context.Context, id string) error {
	const op = "order.Delete"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("orderID", id),
	)

	if err := s.orderRepo.DeleteOrder(ctx, id); err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found")
			return fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to delete order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete order: %w", op, err)
	}

	logger.Info("order deleted")
	return nil
}

// notifyAsync отправляет SMS в фоне после коммита. Сбой уведомления
// не влияет на результат операции, только пишется в лог.
func (s *orderService) notifyAsync(
	logger *slog.Logger,
	order *models.Order,
	send func(ctx context.Context, order *models.Order, user *models.User) error,
) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		user, err := s.userRepo.GetUserByID(ctx, order.UserID)
		if err != nil {
			logger.Warn("failed to get user for notification", slog.Any("error", err))
			return
		}
		if user.Phone == "" {
			return
		}
		if err := send(ctx, order, user); err != nil {
			logger.Warn("failed to send notification", slog.Any("error", err))
		}
	}()
}
