package usecase_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/logger"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"
)

// =====================
// Mocks
// =====================

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListAll(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *ProductRepoMock) ListByCategory(ctx context.Context, category string) ([]model.Product, error) {
	args := m.Called(ctx, category)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *ProductRepoMock) Search(ctx context.Context, q string) ([]model.Product, error) {
	args := m.Called(ctx, q)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProductRepoMock) ListAllViaProcedure(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByUserID(ctx context.Context, userID string) ([]model.CartItem, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) UpsertByUserAndProduct(ctx context.Context, userID string, productID int64, addQty int64, newID string) (model.CartItem, error) {
	args := m.Called(ctx, userID, productID, addQty, newID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, userID string, cartItemID string, qty int64) error {
	args := m.Called(ctx, userID, cartItemID, qty)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, userID string, cartItemID string) error {
	args := m.Called(ctx, userID, cartItemID)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteAllByUserID(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID string, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	os, _ := args.Get(0).([]model.Order)
	return os, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	os, _ := args.Get(0).([]model.Order)
	return os, args.Get(1).(int64), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	args := m.Called(ctx, productID, newStock)
	return args.Error(0)
}

func (m *InventoryRepoMock) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	args := m.Called(ctx, adj)
	return args.Error(0)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type DiscountRepoMock struct{ mock.Mock }

func (m *DiscountRepoMock) List(ctx context.Context) ([]model.DiscountCode, error) {
	args := m.Called(ctx)
	ds, _ := args.Get(0).([]model.DiscountCode)
	return ds, args.Error(1)
}

func (m *DiscountRepoMock) FindByID(ctx context.Context, id int64) (model.DiscountCode, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(model.DiscountCode)
	return d, args.Error(1)
}

func (m *DiscountRepoMock) FindByCode(ctx context.Context, code string) (model.DiscountCode, error) {
	args := m.Called(ctx, code)
	d, _ := args.Get(0).(model.DiscountCode)
	return d, args.Error(1)
}

func (m *DiscountRepoMock) Create(ctx context.Context, d model.DiscountCode) (model.DiscountCode, error) {
	args := m.Called(ctx, d)
	created, _ := args.Get(0).(model.DiscountCode)
	return created, args.Error(1)
}

func (m *DiscountRepoMock) Update(ctx context.Context, d model.DiscountCode) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *DiscountRepoMock) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *DiscountRepoMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type SubscriberRepoMock struct{ mock.Mock }

func (m *SubscriberRepoMock) CreateIfAbsent(ctx context.Context, s model.Subscriber) (model.Subscriber, bool, error) {
	args := m.Called(ctx, s)
	out, _ := args.Get(0).(model.Subscriber)
	return out, args.Bool(1), args.Error(2)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) FindByID(ctx context.Context, userID string) (model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Upsert(ctx context.Context, user model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) SetRole(ctx context.Context, userID string, role model.Role) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) OrderConfirmation(ctx context.Context, o model.Order, items []model.OrderItem) error {
	args := m.Called(ctx, o, items)
	return args.Error(0)
}

func (m *NotifierMock) NewsletterWelcome(ctx context.Context, email string, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

type ValidatorMock struct{ mock.Mock }

func (m *ValidatorMock) ValidateShipping(in usecase.ShippingInfo) usecase.FieldErrors {
	args := m.Called(in)
	fe, _ := args.Get(0).(usecase.FieldErrors)
	return fe
}

func (m *ValidatorMock) ValidEmail(email string) bool {
	args := m.Called(email)
	return args.Bool(0)
}

// =====================
// Fakes
// =====================

// fakeTx はロールバックを記録するだけのトランザクション
type fakeTx struct {
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
	products   *ProductRepoMock
	inventory  *InventoryRepoMock
	audit      *AuditRepoMock

	calls      int
	rolledBack bool
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		orders:     new(OrderRepoMock),
		orderItems: new(OrderItemRepoMock),
		products:   new(ProductRepoMock),
		inventory:  new(InventoryRepoMock),
		audit:      new(AuditRepoMock),
	}
}

func (f *fakeTx) Orders() repo.OrderRepository         { return f.orders }
func (f *fakeTx) OrderItems() repo.OrderItemRepository { return f.orderItems }
func (f *fakeTx) Products() repo.ProductRepository     { return f.products }
func (f *fakeTx) Inventory() repo.InventoryRepository  { return f.inventory }
func (f *fakeTx) AuditLogs() repo.AuditLogRepository   { return f.audit }

func (f *fakeTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	f.calls++
	err := fn(f)
	if err != nil {
		f.rolledBack = true
	}
	return err
}

type seqIDs struct {
	mu  sync.Mutex
	ids []string
	n   int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	if s.n <= len(s.ids) {
		return s.ids[s.n-1]
	}
	return "id-" + string(rune('a'+s.n-1))
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixedCodes struct{ codes []string }

func (f *fixedCodes) NewCode() string {
	c := f.codes[0]
	if len(f.codes) > 1 {
		f.codes = f.codes[1:]
	}
	return c
}

// =====================
// Helpers
// =====================

func testLogger() *slog.Logger {
	return logger.Discard()
}

func product(id int64, name string, price int64, category string) model.Product {
	return model.Product{
		ID:          id,
		Name:        name,
		Description: name + " description",
		Price:       price,
		Stock:       10,
		Category:    category,
		ImageURL:    "/images/products/" + name + ".jpg",
	}
}

func assertHTTPError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "expected HTTPError, got %v", err) {
		assert.Equal(t, status, he.Status)
		assert.Equal(t, msg, he.Message)
	}
}
