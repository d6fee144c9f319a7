package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newOrderFixture() (*usecase.OrderUsecase, *OrderRepoMock, *OrderItemRepoMock, *PromotionRepoMock, *AddressRepoMock) {
	orders := new(OrderRepoMock)
	items := new(OrderItemRepoMock)
	promos := new(PromotionRepoMock)
	addrs := new(AddressRepoMock)
	txm := &TxManagerMock{Repos: &TxReposMock{
		orders:     orders,
		orderItems: items,
		promotions: promos,
		addresses:  addrs,
	}}
	return usecase.NewOrderUsecase(txm, orders, items), orders, items, promos, addrs
}

func TestOrderUsecase_Checkout_Success(t *testing.T) {
	uc, orders, items, _, _ := newOrderFixture()

	draft := model.Order{ID: 10, UserID: 1, Status: model.OrderStatusDraft, TotalAmount: 1000}
	orders.On("FindDraftByUserIDForUpdate", mock.Anything, int64(1)).Return(draft, nil)
	items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{
		{ID: 5, OrderID: 10, Subtotal: 600},
		{ID: 6, OrderID: 10, Subtotal: 400},
	}, nil)

	orders.On("Update", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.ID == 10 && o.Status == model.OrderStatusPending && o.TotalAmount == 1000 && !o.IsDelivery
	})).Return(nil)

	out, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{IsDelivery: false})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, out.Status)
	assert.Equal(t, int64(1000), out.TotalAmount)
	orders.AssertExpectations(t)
}

func TestOrderUsecase_Checkout_EmptyCart(t *testing.T) {
	uc, orders, items, _, _ := newOrderFixture()

	draft := model.Order{ID: 10, UserID: 1, Status: model.OrderStatusDraft}
	orders.On("FindDraftByUserIDForUpdate", mock.Anything, int64(1)).Return(draft, nil)
	items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{}, nil)

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{})
	assertHTTPStatus(t, err, http.StatusBadRequest)
	assertErrContains(t, err, "cart is empty")
}

func TestOrderUsecase_Checkout_NoDraft(t *testing.T) {
	uc, orders, _, _, _ := newOrderFixture()

	orders.On("FindDraftByUserIDForUpdate", mock.Anything, int64(1)).Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{})
	assertHTTPStatus(t, err, http.StatusBadRequest)
	assertErrContains(t, err, "cart is empty")
}

func TestOrderUsecase_Checkout_DeliveryRequiresOwnAddress(t *testing.T) {
	uc, orders, items, _, addrs := newOrderFixture()

	draft := model.Order{ID: 10, UserID: 1, Status: model.OrderStatusDraft}
	orders.On("FindDraftByUserIDForUpdate", mock.Anything, int64(1)).Return(draft, nil)
	items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{{Subtotal: 500}}, nil)
	//他人の住所
	addrs.On("FindByID", mock.Anything, int64(3)).Return(model.Address{ID: 3, UserID: 99}, nil)

	addrID := int64(3)
	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{IsDelivery: true, DeliveryAddressID: &addrID})
	assertHTTPStatus(t, err, http.StatusBadRequest)
	assertErrContains(t, err, "invalid delivery address")
}

func TestOrderUsecase_Checkout_DeliveryWithoutAddress(t *testing.T) {
	uc, _, _, _, _ := newOrderFixture()

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{IsDelivery: true})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

// プロモーション適用は割引と使用回数加算が同時に決まる。
func TestOrderUsecase_Checkout_AppliesPromotion(t *testing.T) {
	uc, orders, items, promos, _ := newOrderFixture()

	draft := model.Order{ID: 10, UserID: 1, Status: model.OrderStatusDraft, TotalAmount: 1000}
	orders.On("FindDraftByUserIDForUpdate", mock.Anything, int64(1)).Return(draft, nil)
	items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{{Subtotal: 1000}}, nil)

	promos.On("FindByCode", mock.Anything, "SAVE10").Return(activePromo(), nil)
	promos.On("IncrementUses", mock.Anything, int64(1)).Return(nil)

	orders.On("Update", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Status == model.OrderStatusPending && o.TotalAmount == 900 &&
			o.AppliedPromotionID != nil && *o.AppliedPromotionID == 1
	})).Return(nil)

	out, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{PromoCode: "SAVE10"})
	assert.NoError(t, err)
	assert.Equal(t, int64(900), out.TotalAmount)
	promos.AssertExpectations(t)
}

func TestOrderUsecase_Checkout_InvalidPromoAbortsCheckout(t *testing.T) {
	uc, orders, items, promos, _ := newOrderFixture()

	draft := model.Order{ID: 10, UserID: 1, Status: model.OrderStatusDraft}
	orders.On("FindDraftByUserIDForUpdate", mock.Anything, int64(1)).Return(draft, nil)
	items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{{Subtotal: 1000}}, nil)
	promos.On("FindByCode", mock.Anything, "NOPE").Return(model.Promotion{}, repo.ErrNotFound)

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{PromoCode: "NOPE"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
	//注文は確定されない
	orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// 上限競合でIncrementUsesが0行更新になった場合もcheckoutは失敗する。
func TestOrderUsecase_Checkout_MaxUsesRace(t *testing.T) {
	uc, orders, items, promos, _ := newOrderFixture()

	draft := model.Order{ID: 10, UserID: 1, Status: model.OrderStatusDraft}
	orders.On("FindDraftByUserIDForUpdate", mock.Anything, int64(1)).Return(draft, nil)
	items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{{Subtotal: 1000}}, nil)
	promos.On("FindByCode", mock.Anything, "SAVE10").Return(activePromo(), nil)
	promos.On("IncrementUses", mock.Anything, int64(1)).Return(repo.ErrNotFound)

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{PromoCode: "SAVE10"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
	assertErrContains(t, err, "maximum usage limit")
	orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestOrderUsecase_GetCurrent_NoneIs404(t *testing.T) {
	uc, orders, _, _, _ := newOrderFixture()

	orders.On("ListByUserIDInStatuses", mock.Anything, int64(1), mock.Anything, 1, 1).
		Return([]model.Order{}, int64(0), nil)

	_, err := uc.GetCurrent(context.Background(), 1)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOrderUsecase_GetDetail_OtherUsersOrderHidden(t *testing.T) {
	uc, orders, _, _, _ := newOrderFixture()

	orders.On("FindByID", mock.Anything, int64(10)).Return(model.Order{ID: 10, UserID: 99}, nil)

	_, err := uc.GetDetail(context.Background(), 1, 10)
	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestOrderUsecase_Cancel_PendingOK(t *testing.T) {
	uc, orders, items, _, _ := newOrderFixture()

	o := model.Order{ID: 10, UserID: 1, Status: model.OrderStatusPending}
	orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(o, nil)
	orders.On("Update", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Status == model.OrderStatusCancelledByUser
	})).Return(nil)
	items.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{}, nil)

	out, err := uc.Cancel(context.Background(), 1, 10)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelledByUser, out.Status)
}

func TestOrderUsecase_Cancel_ConfirmedIsConflict(t *testing.T) {
	uc, orders, _, _, _ := newOrderFixture()

	o := model.Order{ID: 10, UserID: 1, Status: model.OrderStatusConfirmed}
	orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(o, nil)

	_, err := uc.Cancel(context.Background(), 1, 10)
	assertHTTPStatus(t, err, http.StatusConflict)
	orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
