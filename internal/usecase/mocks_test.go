package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/gateway"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock はWithinTxの中で渡すreposを固定してunitテストを回す
type TxManagerMock struct {
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(m.Repos)
}

type TxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	menuItems  repo.MenuItemRepository
	payments   repo.PaymentRepository
	promotions repo.PromotionRepository
	loyalty    repo.LoyaltyRepository
	addresses  repo.AddressRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *TxReposMock) MenuItems() repo.MenuItemRepository   { return r.menuItems }
func (r *TxReposMock) Payments() repo.PaymentRepository     { return r.payments }
func (r *TxReposMock) Promotions() repo.PromotionRepository { return r.promotions }
func (r *TxReposMock) Loyalty() repo.LoyaltyRepository      { return r.loyalty }
func (r *TxReposMock) Addresses() repo.AddressRepository    { return r.addresses }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) GetOrCreateDraftByUserID(ctx context.Context, userID int64) (model.Order, error) {
	args := m.Called(ctx, userID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindDraftByUserIDForUpdate(ctx context.Context, userID int64) (model.Order, error) {
	args := m.Called(ctx, userID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserIDInStatuses(ctx context.Context, userID int64, statuses []model.OrderStatus, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, statuses, page, limit)
	items, _ := args.Get(0).([]model.Order)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) Update(ctx context.Context, order model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	items, _ := args.Get(0).([]model.Order)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) DeleteByID(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) FindByID(ctx context.Context, itemID int64) (model.OrderItem, error) {
	args := m.Called(ctx, itemID)
	it, _ := args.Get(0).(model.OrderItem)
	return it, args.Error(1)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrderItemRepoMock) Create(ctx context.Context, item model.OrderItem) (int64, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderItemRepoMock) Update(ctx context.Context, item model.OrderItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *OrderItemRepoMock) DeleteByID(ctx context.Context, itemID int64) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

func (m *OrderItemRepoMock) DeleteByOrderID(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type MenuItemRepoMock struct{ mock.Mock }

func (m *MenuItemRepoMock) FindByID(ctx context.Context, menuItemID int64) (model.MenuItem, error) {
	args := m.Called(ctx, menuItemID)
	mi, _ := args.Get(0).(model.MenuItem)
	return mi, args.Error(1)
}

type PaymentRepoMock struct{ mock.Mock }

func (m *PaymentRepoMock) Create(ctx context.Context, p model.Payment) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PaymentRepoMock) FindByTransactionID(ctx context.Context, transactionID string) (model.Payment, error) {
	args := m.Called(ctx, transactionID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) FindByTransactionIDForUpdate(ctx context.Context, transactionID string) (model.Payment, error) {
	args := m.Called(ctx, transactionID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) UpdateStatusDetails(ctx context.Context, paymentID int64, status model.PaymentStatus, details string) error {
	args := m.Called(ctx, paymentID, status, details)
	return args.Error(0)
}

func (m *PaymentRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.Payment)
	return items, args.Error(1)
}

func (m *PaymentRepoMock) ListAdmin(ctx context.Context, page int, limit int) ([]model.Payment, int64, error) {
	args := m.Called(ctx, page, limit)
	items, _ := args.Get(0).([]model.Payment)
	return items, args.Get(1).(int64), args.Error(2)
}

type PromotionRepoMock struct{ mock.Mock }

func (m *PromotionRepoMock) FindByCode(ctx context.Context, code string) (model.Promotion, error) {
	args := m.Called(ctx, code)
	p, _ := args.Get(0).(model.Promotion)
	return p, args.Error(1)
}

func (m *PromotionRepoMock) Create(ctx context.Context, p model.Promotion) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PromotionRepoMock) IncrementUses(ctx context.Context, promotionID int64) error {
	args := m.Called(ctx, promotionID)
	return args.Error(0)
}

func (m *PromotionRepoMock) ListActive(ctx context.Context, now time.Time) ([]model.Promotion, error) {
	args := m.Called(ctx, now)
	items, _ := args.Get(0).([]model.Promotion)
	return items, args.Error(1)
}

type LoyaltyRepoMock struct{ mock.Mock }

func (m *LoyaltyRepoMock) Append(ctx context.Context, tx model.LoyaltyTransaction) (int64, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *LoyaltyRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.LoyaltyTransaction, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]model.LoyaltyTransaction)
	return items, args.Error(1)
}

func (m *LoyaltyRepoMock) TotalByUserID(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type AddressRepoMock struct{ mock.Mock }

func (m *AddressRepoMock) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	args := m.Called(ctx, addressID)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// =====================
// Gateway mock
// =====================

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) Initiate(ctx context.Context, in gateway.InitiateInput) (gateway.InitiateResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(gateway.InitiateResult)
	return res, args.Error(1)
}

func (m *GatewayMock) Verify(ctx context.Context, transactionID string) (gateway.VerifyResult, error) {
	args := m.Called(ctx, transactionID)
	res, _ := args.Get(0).(gateway.VerifyResult)
	return res, args.Error(1)
}

// =====================
// helpers
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func assertHTTPStatus(t *testing.T, err error, wantStatus int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "err=%v is not HTTPError", err) {
		assert.Equal(t, wantStatus, he.Status)
	}
}
