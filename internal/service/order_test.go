package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/domain/models"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/pricing"
	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	users map[int64]*models.User
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == user.Email {
			return nil, storage.ErrEmailTaken
		}
	}
	created := *user
	created.ID = int64(len(f.users) + 1)
	f.users[created.ID] = &created
	return &created, nil
}

type fakeOrderRepo struct {
	orders      map[string]*models.Order
	created     *models.Order
	updateCalls int
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	f.created = order
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	var result []*models.Order
	for _, order := range f.orders {
		if order.UserID == userID {
			result = append(result, order)
		}
	}
	return result, nil
}

func (f *fakeOrderRepo) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id string) (*models.Order, error) {
	return f.GetOrderByID(ctx, id)
}

func (f *fakeOrderRepo) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	if _, ok := f.orders[order.ID]; !ok {
		return storage.ErrOrderNotFound
	}
	f.orders[order.ID] = order
	f.updateCalls++
	return nil
}

func (f *fakeOrderRepo) DeleteOrder(ctx context.Context, id string) error {
	if _, ok := f.orders[id]; !ok {
		return storage.ErrOrderNotFound
	}
	delete(f.orders, id)
	return nil
}

type fakeProductRepo struct {
	stock          map[string]int
	decrementCalls map[string]int
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	count, ok := f.stock[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return &models.Product{ID: id, CountInStock: count}, nil
}

func (f *fakeProductRepo) DecrementStock(ctx context.Context, tx *sql.Tx, productID string, quantity int) error {
	if f.decrementCalls == nil {
		f.decrementCalls = make(map[string]int)
	}
	f.decrementCalls[productID]++
	count, ok := f.stock[productID]
	if !ok {
		return storage.ErrProductNotFound
	}
	if count < quantity {
		return storage.ErrInsufficientStock
	}
	f.stock[productID] = count - quantity
	return nil
}

type fakeNotifier struct {
	mu          sync.Mutex
	receiptSent bool
	reviewSent  bool
	err         error
}

func (f *fakeNotifier) SendPurchaseReceipt(ctx context.Context, order *models.Order, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptSent = true
	return f.err
}

func (f *fakeNotifier) SendAskReviewOrderItems(ctx context.Context, order *models.Order, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewSent = true
	return f.err
}

func (f *fakeNotifier) gotReceipt() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receiptSent
}

func (f *fakeNotifier) gotReview() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reviewSent
}

func testEngine() *pricing.Engine {
	return pricing.NewEngine([]pricing.DeliveryOption{
		{Name: "standard", DaysToDeliver: 5, ShippingPrice: 4.9, FreeShippingMinPrice: 100},
	})
}

type orderServiceFixture struct {
	svc      OrderService
	mock     sqlmock.Sqlmock
	orders   *fakeOrderRepo
	products *fakeProductRepo
	users    *fakeUserRepo
	notifier *fakeNotifier
}

func newOrderServiceFixture(t *testing.T) *orderServiceFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &orderServiceFixture{
		mock: mock,
		orders: &fakeOrderRepo{
			orders: make(map[string]*models.Order),
		},
		products: &fakeProductRepo{
			stock: make(map[string]int),
		},
		users: &fakeUserRepo{
			users: make(map[int64]*models.User),
		},
		notifier: &fakeNotifier{},
	}
	f.svc = NewOrderService(testLogger(), db, f.orders, f.products, f.users, testEngine(), f.notifier)
	return f
}

func TestOrderService_Create_EmptyCart(t *testing.T) {
	f := newOrderServiceFixture(t)

	_, err := f.svc.Create(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidCart)

	_, err = f.svc.Create(context.Background(), 1, &models.CartSnapshot{})
	assert.ErrorIs(t, err, ErrInvalidCart)
}

func TestOrderService_Create_MissingClientID(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.users.users[1] = &models.User{ID: 1, Name: "Ahmed"}

	cart := &models.CartSnapshot{
		Items: []models.CartItem{
			{ClientID: "line-1", Name: "Paracetamol", Price: 10, Quantity: 1},
			{Name: "Vitamin C", Price: 5, Quantity: 2},
		},
	}
	_, err := f.svc.Create(context.Background(), 1, cart)
	assert.ErrorIs(t, err, ErrMissingClientID)
}

func TestOrderService_Create_UserNotFound(t *testing.T) {
	f := newOrderServiceFixture(t)

	cart := &models.CartSnapshot{
		Items: []models.CartItem{
			{ClientID: "line-1", Name: "Paracetamol", Price: 10, Quantity: 1},
		},
	}
	_, err := f.svc.Create(context.Background(), 404, cart)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestOrderService_Create_RepricesOnServer(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.users.users[1] = &models.User{ID: 1, Name: "Ahmed"}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	cart := &models.CartSnapshot{
		Items: []models.CartItem{
			{ClientID: "line-1", ProductID: "p1", Name: "Paracetamol", Price: 10.49, Quantity: 2},
			{ClientID: "line-2", Name: "Compounded syrup", Price: 20.00, Quantity: 1},
		},
		ShippingAddress: &models.ShippingAddress{Street: "12 Tahrir", Province: "Cairo", Area: "Downtown"},
		PaymentMethod:   "cash",
	}

	order, err := f.svc.Create(context.Background(), 1, cart)
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, int64(1), order.UserID)
	assert.InDelta(t, 40.98, order.ItemsPrice, 1e-9)
	require.NotNil(t, order.ShippingPrice)
	assert.InDelta(t, 4.9, *order.ShippingPrice, 1e-9)
	require.NotNil(t, order.TaxPrice)
	assert.InDelta(t, 6.15, *order.TaxPrice, 1e-9)
	assert.InDelta(t, 52.03, order.TotalPrice, 1e-9)
	assert.Equal(t, models.OrderStatusCreated, order.Status())
	assert.Len(t, order.Items, 2)
	assert.Equal(t, order.ID, order.Items[0].OrderID)

	assert.Same(t, order, f.orders.created)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOrderService_Create_NoAddressSkipsShippingAndTax(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.users.users[1] = &models.User{ID: 1, Name: "Ahmed"}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	cart := &models.CartSnapshot{
		Items: []models.CartItem{
			{ClientID: "line-1", Name: "Paracetamol", Price: 10.49, Quantity: 2},
		},
		PaymentMethod: "cash",
	}

	order, err := f.svc.Create(context.Background(), 1, cart)
	require.NoError(t, err)

	assert.Nil(t, order.ShippingPrice)
	assert.Nil(t, order.TaxPrice)
	assert.InDelta(t, 20.98, order.TotalPrice, 1e-9)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOrderService_MarkPaid_DecrementsStockOnce(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.users.users[1] = &models.User{ID: 1, Name: "Ahmed", Phone: "+201001234567"}
	f.products.stock["p1"] = 10
	f.orders.orders["ord-1"] = &models.Order{
		ID:     "ord-1",
		UserID: 1,
		Items: []*models.OrderItem{
			{ClientID: "line-1", ProductID: "p1", Name: "Paracetamol", Quantity: 3},
			{ClientID: "line-2", Name: "Compounded syrup", Quantity: 1}, // нет товара каталога
		},
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	order, err := f.svc.MarkPaid(context.Background(), "ord-1")
	require.NoError(t, err)

	assert.True(t, order.IsPaid)
	require.NotNil(t, order.PaidAt)
	assert.Equal(t, 7, f.products.stock["p1"])
	assert.Equal(t, 1, f.products.decrementCalls["p1"])
	assert.Equal(t, 1, f.orders.updateCalls)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	assert.Eventually(t, f.notifier.gotReceipt, time.Second, 10*time.Millisecond)
}

func TestOrderService_MarkPaid_AlreadyPaid(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.products.stock["p1"] = 10
	paidAt := time.Now()
	f.orders.orders["ord-1"] = &models.Order{
		ID:     "ord-1",
		UserID: 1,
		IsPaid: true,
		PaidAt: &paidAt,
		Items: []*models.OrderItem{
			{ClientID: "line-1", ProductID: "p1", Quantity: 3},
		},
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.MarkPaid(context.Background(), "ord-1")
	assert.ErrorIs(t, err, models.ErrAlreadyPaid)

	// повторная оплата не трогает остатки
	assert.Equal(t, 10, f.products.stock["p1"])
	assert.Zero(t, f.products.decrementCalls["p1"])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOrderService_MarkPaid_InsufficientStock(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.products.stock["p1"] = 2
	f.orders.orders["ord-1"] = &models.Order{
		ID:     "ord-1",
		UserID: 1,
		Items: []*models.OrderItem{
			{ClientID: "line-1", ProductID: "p1", Quantity: 3},
		},
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.MarkPaid(context.Background(), "ord-1")
	assert.ErrorIs(t, err, storage.ErrInsufficientStock)
	assert.Equal(t, 2, f.products.stock["p1"])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOrderService_MarkPaid_NotFound(t *testing.T) {
	f := newOrderServiceFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.MarkPaid(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOrderService_MarkPaid_NotificationFailureDoesNotFailPayment(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.notifier.err = assert.AnError
	f.users.users[1] = &models.User{ID: 1, Name: "Ahmed", Phone: "+201001234567"}
	f.products.stock["p1"] = 10
	f.orders.orders["ord-1"] = &models.Order{
		ID:     "ord-1",
		UserID: 1,
		Items: []*models.OrderItem{
			{ClientID: "line-1", ProductID: "p1", Quantity: 1},
		},
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	order, err := f.svc.MarkPaid(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.True(t, order.IsPaid)

	assert.Eventually(t, f.notifier.gotReceipt, time.Second, 10*time.Millisecond)
}

func TestOrderService_MarkDelivered_NotPaid(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.orders.orders["ord-1"] = &models.Order{ID: "ord-1", UserID: 1}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.MarkDelivered(context.Background(), "ord-1")
	assert.ErrorIs(t, err, models.ErrNotPaid)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOrderService_MarkDelivered_AlreadyDelivered(t *testing.T) {
	f := newOrderServiceFixture(t)
	now := time.Now()
	f.orders.orders["ord-1"] = &models.Order{
		ID:          "ord-1",
		UserID:      1,
		IsPaid:      true,
		PaidAt:      &now,
		IsDelivered: true,
		DeliveredAt: &now,
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.MarkDelivered(context.Background(), "ord-1")
	assert.ErrorIs(t, err, models.ErrAlreadyDelivered)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOrderService_MarkDelivered_Success(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.users.users[1] = &models.User{ID: 1, Name: "Ahmed", Phone: "+201001234567"}
	paidAt := time.Now()
	f.orders.orders["ord-1"] = &models.Order{
		ID:     "ord-1",
		UserID: 1,
		IsPaid: true,
		PaidAt: &paidAt,
		Items: []*models.OrderItem{
			{ClientID: "line-1", Name: "Paracetamol", Quantity: 1},
		},
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	order, err := f.svc.MarkDelivered(context.Background(), "ord-1")
	require.NoError(t, err)

	assert.True(t, order.IsDelivered)
	require.NotNil(t, order.DeliveredAt)
	assert.Equal(t, models.OrderStatusDelivered, order.Status())
	assert.NoError(t, f.mock.ExpectationsWereMet())

	assert.Eventually(t, f.notifier.gotReview, time.Second, 10*time.Millisecond)
}

func TestOrderService_MarkDelivered_NoPhoneSkipsNotification(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.users.users[1] = &models.User{ID: 1, Name: "Ahmed"}
	paidAt := time.Now()
	f.orders.orders["ord-1"] = &models.Order{
		ID:     "ord-1",
		UserID: 1,
		IsPaid: true,
		PaidAt: &paidAt,
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.MarkDelivered(context.Background(), "ord-1")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.False(t, f.notifier.gotReview())
}

func TestOrderService_Delete_DoesNotRestoreStock(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.users.users[1] = &models.User{ID: 1, Name: "Ahmed", Phone: "+201001234567"}
	f.products.stock["p1"] = 10
	f.orders.orders["ord-1"] = &models.Order{
		ID:     "ord-1",
		UserID: 1,
		Items: []*models.OrderItem{
			{ClientID: "line-1", ProductID: "p1", Quantity: 3},
		},
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.svc.MarkPaid(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Equal(t, 7, f.products.stock["p1"])

	err = f.svc.Delete(context.Background(), "ord-1")
	require.NoError(t, err)

	// удаление заказа не возвращает списанные остатки
	assert.Equal(t, 7, f.products.stock["p1"])

	_, err = f.svc.GetByID(context.Background(), "ord-1")
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestOrderService_Delete_NotFound(t *testing.T) {
	f := newOrderServiceFixture(t)

	err := f.svc.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestOrderService_ListByUser(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.orders.orders["ord-1"] = &models.Order{ID: "ord-1", UserID: 1}
	f.orders.orders["ord-2"] = &models.Order{ID: "ord-2", UserID: 2}

	orders, err := f.svc.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ord-1", orders[0].ID)
}
