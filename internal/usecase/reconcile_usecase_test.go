package usecase_test

import (
	"context"
	"strings"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newReconcileFixture() (*usecase.ReconcileUsecase, *OrderRepoMock, *PaymentRepoMock, *LoyaltyRepoMock) {
	orders := new(OrderRepoMock)
	payments := new(PaymentRepoMock)
	loyalty := new(LoyaltyRepoMock)
	txm := &TxManagerMock{Repos: &TxReposMock{
		orders:   orders,
		payments: payments,
		loyalty:  loyalty,
	}}
	return usecase.NewReconcileUsecase(txm, zap.NewNop()), orders, payments, loyalty
}

func TestReconcileUsecase_Apply_Success(t *testing.T) {
	uc, orders, payments, loyalty := newReconcileFixture()

	p := model.Payment{ID: 77, OrderID: 10, Status: model.PaymentStatusPending, TransactionID: "ws_CO_456"}
	o := model.Order{ID: 10, UserID: 1, Status: model.OrderStatusAwaitingPayment, TotalAmount: 2500}

	payments.On("FindByTransactionIDForUpdate", mock.Anything, "ws_CO_456").Return(p, nil)
	payments.On("UpdateStatusDetails", mock.Anything, int64(77), model.PaymentStatusCompleted, mock.MatchedBy(func(details string) bool {
		//結果コードとレシートがdetailsに残ること
		return strings.Contains(details, `"result_code":"0"`) && strings.Contains(details, "QK12XW9TR0")
	})).Return(nil)
	orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(o, nil)
	orders.On("Update", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Status == model.OrderStatusConfirmed && o.PaymentStatus == "completed"
	})).Return(nil)
	loyalty.On("Append", mock.Anything, mock.MatchedBy(func(lt model.LoyaltyTransaction) bool {
		//2500 → 25ポイント
		return lt.UserID == 1 && lt.Points == 25 && lt.OrderID != nil && *lt.OrderID == 10
	})).Return(int64(1), nil)

	err := uc.Apply(context.Background(), usecase.ReconcileInput{
		TransactionID: "ws_CO_456",
		Status:        model.PaymentStatusCompleted,
		ResultCode:    "0",
		ResultDesc:    "The service request is processed successfully.",
		Extra:         map[string]string{"receipt_number": "QK12XW9TR0"},
	})

	assert.NoError(t, err)
	loyalty.AssertExpectations(t)
}

func TestReconcileUsecase_Apply_FailureNoLoyalty(t *testing.T) {
	uc, orders, payments, loyalty := newReconcileFixture()

	p := model.Payment{ID: 77, OrderID: 10, Status: model.PaymentStatusPending, TransactionID: "ws_CO_456"}
	o := model.Order{ID: 10, UserID: 1, Status: model.OrderStatusAwaitingPayment, TotalAmount: 2500}

	payments.On("FindByTransactionIDForUpdate", mock.Anything, "ws_CO_456").Return(p, nil)
	payments.On("UpdateStatusDetails", mock.Anything, int64(77), model.PaymentStatusFailed, mock.Anything).Return(nil)
	orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(o, nil)
	orders.On("Update", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Status == model.OrderStatusFailed && o.PaymentStatus == "failed"
	})).Return(nil)

	err := uc.Apply(context.Background(), usecase.ReconcileInput{
		TransactionID: "ws_CO_456",
		Status:        model.PaymentStatusFailed,
		ResultCode:    "1032",
		ResultDesc:    "Request cancelled by user",
	})

	assert.NoError(t, err)
	loyalty.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

// 知らない相関IDの報告は落とすだけで失敗にはしない。
func TestReconcileUsecase_Apply_UnknownTransactionDropped(t *testing.T) {
	uc, orders, payments, _ := newReconcileFixture()

	payments.On("FindByTransactionIDForUpdate", mock.Anything, "ghost").Return(model.Payment{}, repo.ErrNotFound)

	err := uc.Apply(context.Background(), usecase.ReconcileInput{
		TransactionID: "ghost",
		Status:        model.PaymentStatusCompleted,
		ResultCode:    "0",
	})

	assert.NoError(t, err)
	payments.AssertNotCalled(t, "UpdateStatusDetails", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// 同じ報告を2回適用しても2回目は何もしない。
func TestReconcileUsecase_Apply_AlreadySettledNoop(t *testing.T) {
	uc, orders, payments, loyalty := newReconcileFixture()

	settled := model.Payment{ID: 77, OrderID: 10, Status: model.PaymentStatusCompleted, TransactionID: "ws_CO_456"}
	payments.On("FindByTransactionIDForUpdate", mock.Anything, "ws_CO_456").Return(settled, nil)

	err := uc.Apply(context.Background(), usecase.ReconcileInput{
		TransactionID: "ws_CO_456",
		Status:        model.PaymentStatusCompleted,
		ResultCode:    "0",
	})

	assert.NoError(t, err)
	payments.AssertNotCalled(t, "UpdateStatusDetails", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	loyalty.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestReconcileUsecase_Apply_PendingReportIgnored(t *testing.T) {
	uc, _, payments, _ := newReconcileFixture()

	err := uc.Apply(context.Background(), usecase.ReconcileInput{
		TransactionID: "ws_CO_456",
		Status:        model.PaymentStatusPending,
	})

	assert.NoError(t, err)
	payments.AssertNotCalled(t, "FindByTransactionIDForUpdate", mock.Anything, mock.Anything)
}

// キャンセル済み注文への遅延コールバックは適用されない。
func TestReconcileUsecase_Apply_LateCallbackOnCancelledOrder(t *testing.T) {
	uc, orders, payments, loyalty := newReconcileFixture()

	p := model.Payment{ID: 77, OrderID: 10, Status: model.PaymentStatusPending, TransactionID: "ws_CO_456"}
	cancelled := model.Order{ID: 10, UserID: 1, Status: model.OrderStatusCancelledByUser}

	payments.On("FindByTransactionIDForUpdate", mock.Anything, "ws_CO_456").Return(p, nil)
	payments.On("UpdateStatusDetails", mock.Anything, int64(77), model.PaymentStatusCompleted, mock.Anything).Return(nil)
	orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(cancelled, nil)

	err := uc.Apply(context.Background(), usecase.ReconcileInput{
		TransactionID: "ws_CO_456",
		Status:        model.PaymentStatusCompleted,
		ResultCode:    "0",
	})

	//Txごと巻き戻す
	assert.Error(t, err)
	orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	loyalty.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}
