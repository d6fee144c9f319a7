package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/gateway"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// PaymentUsecase は決済開始のオーケストレーター。
// ゲートウェイ呼び出しはトランザクションの外、台帳の書き換えは中で行う。
type PaymentUsecase struct {
	txm         repo.TransactionManager
	orderRepo   repo.OrderRepository
	paymentRepo repo.PaymentRepository
	gateways    gateway.Registry
	reconciler  *ReconcileUsecase
	logger      *zap.Logger

	currency string
	timeout  time.Duration
}

func NewPaymentUsecase(
	txm repo.TransactionManager,
	orderRepo repo.OrderRepository,
	paymentRepo repo.PaymentRepository,
	gateways gateway.Registry,
	reconciler *ReconcileUsecase,
	logger *zap.Logger,
	currency string,
	timeout time.Duration,
) *PaymentUsecase {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PaymentUsecase{
		txm:         txm,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		gateways:    gateways,
		reconciler:  reconciler,
		logger:      logger,
		currency:    currency,
		timeout:     timeout,
	}
}

type InitiatePaymentInput struct {
	OrderID     int64
	Method      string
	PhoneNumber string
}

type PaymentResponse struct {
	PaymentID       int64               `json:"payment_id"`
	OrderID         int64               `json:"order_id"`
	Amount          int64               `json:"amount"`
	Method          model.PaymentMethod `json:"method"`
	Status          model.PaymentStatus `json:"status"`
	TransactionID   string              `json:"transaction_id"`
	ClientSecret    string              `json:"client_secret,omitempty"`
	CustomerMessage string              `json:"customer_message,omitempty"`
}

// Initiate は注文の決済を開始する。
//
// ゲートウェイ呼び出しが先、台帳更新が後。逆にするとTx中に外部I/Oを
// 抱えることになる。呼び出し成功後に注文が動いていた場合は409で返し、
// プロバイダ側に浮いたintentはログに残す。
func (u *PaymentUsecase) Initiate(ctx context.Context, userID int64, in InitiatePaymentInput) (PaymentResponse, error) {
	if userID <= 0 {
		return PaymentResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return PaymentResponse{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}
	method, ok := model.ParsePaymentMethod(in.Method)
	if !ok {
		return PaymentResponse{}, NewHTTPError(http.StatusBadRequest, "invalid payment method")
	}
	if method == model.PaymentMethodMobileMoney && in.PhoneNumber == "" {
		return PaymentResponse{}, NewHTTPError(http.StatusBadRequest, "phone_number is required for mobile money")
	}

	//事前チェック。確定はTx内でもう一度行う。
	order, err := u.orderRepo.FindByID(ctx, in.OrderID)
	if err == repo.ErrNotFound {
		return PaymentResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return PaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if order.UserID != userID {
		return PaymentResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if order.Status != model.OrderStatusPending {
		return PaymentResponse{}, NewHTTPError(http.StatusConflict, "order is not payable")
	}
	//100%割引などで合計0になった注文は決済に回さない
	if order.TotalAmount <= 0 {
		return PaymentResponse{}, NewHTTPError(http.StatusBadRequest, "order total must be positive")
	}

	existing, err := u.paymentRepo.ListByOrderID(ctx, order.ID)
	if err != nil {
		return PaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	for _, p := range existing {
		if p.Status == model.PaymentStatusPending {
			return PaymentResponse{}, NewHTTPError(http.StatusConflict, "a payment is already in progress")
		}
	}

	gw, err := u.gateways.For(method)
	if err != nil {
		return PaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "payment method not configured")
	}

	gctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	res, err := gw.Initiate(gctx, gateway.InitiateInput{
		OrderID:     order.ID,
		UserID:      userID,
		Amount:      order.TotalAmount,
		Currency:    u.currency,
		PhoneNumber: in.PhoneNumber,
		Description: fmt.Sprintf("Order #%d", order.ID),
	})
	if err != nil {
		return PaymentResponse{}, gatewayHTTPError(err)
	}

	payment := model.Payment{
		OrderID:       order.ID,
		Amount:        order.TotalAmount,
		Method:        method,
		TransactionID: res.TransactionID,
		Status:        model.PaymentStatusPending,
		Details:       marshalDetails(res.Details),
	}

	err = u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		//ゲートウェイ呼び出し中に注文が動いたら台帳には何も書かない
		if o.Status != model.OrderStatusPending {
			u.logger.Warn("payment initiated for an order that moved on",
				zap.Int64("order_id", o.ID),
				zap.String("order_status", string(o.Status)),
				zap.String("transaction_id", res.TransactionID))
			return NewHTTPError(http.StatusConflict, "order is not payable")
		}

		if err := model.CanTransition(o.Status, model.OrderStatusAwaitingPayment, model.ActorSystem); err != nil {
			return transitionHTTPError(err)
		}

		o.Status = model.OrderStatusAwaitingPayment
		o.PaymentStatus = string(model.PaymentStatusPending)
		if err := r.Orders().Update(ctx, o); err != nil {
			return err
		}

		id, err := r.Payments().Create(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return PaymentResponse{}, he
		}
		return PaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return PaymentResponse{
		PaymentID:       payment.ID,
		OrderID:         order.ID,
		Amount:          payment.Amount,
		Method:          method,
		Status:          payment.Status,
		TransactionID:   res.TransactionID,
		ClientSecret:    res.ClientSecret,
		CustomerMessage: res.CustomerMessage,
	}, nil
}

// Verify は照合用IDで決済の現状を返す。
// まだpendingならゲートウェイに問い合わせ、決着していれば台帳に反映してから返す。
func (u *PaymentUsecase) Verify(ctx context.Context, userID int64, transactionID string) (PaymentResponse, error) {
	if userID <= 0 {
		return PaymentResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if transactionID == "" {
		return PaymentResponse{}, NewHTTPError(http.StatusBadRequest, "invalid transaction id")
	}

	p, err := u.paymentRepo.FindByTransactionID(ctx, transactionID)
	if err == repo.ErrNotFound {
		return PaymentResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return PaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	order, err := u.orderRepo.FindByID(ctx, p.OrderID)
	if err != nil {
		return PaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if order.UserID != userID {
		return PaymentResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	if p.Status.IsTerminal() {
		return paymentView(p), nil
	}

	gw, err := u.gateways.For(p.Method)
	if err != nil {
		return PaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "payment method not configured")
	}

	gctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	vr, err := gw.Verify(gctx, transactionID)
	if err != nil {
		return PaymentResponse{}, gatewayHTTPError(err)
	}

	if !vr.Status.IsTerminal() {
		return paymentView(p), nil
	}

	if err := u.reconciler.Apply(ctx, ReconcileInput{
		TransactionID: transactionID,
		Status:        vr.Status,
		ResultCode:    vr.ResultCode,
		ResultDesc:    vr.ResultDesc,
	}); err != nil {
		if he, ok := AsHTTPError(err); ok {
			return PaymentResponse{}, he
		}
		return PaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	p, err = u.paymentRepo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return PaymentResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return paymentView(p), nil
}

type AdminPaymentListOutput struct {
	Items []model.Payment `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// AdminListPayments は管理者向けの決済一覧。
func (u *PaymentUsecase) AdminListPayments(ctx context.Context, page, limit int) (AdminPaymentListOutput, error) {
	if page < 1 {
		return AdminPaymentListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return AdminPaymentListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	items, total, err := u.paymentRepo.ListAdmin(ctx, page, limit)
	if err != nil {
		return AdminPaymentListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return AdminPaymentListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func paymentView(p model.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:     p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        p.Status,
		TransactionID: p.TransactionID,
	}
}

func marshalDetails(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	b, _ := json.Marshal(m)
	return string(b)
}

// ゲートウェイのエラーをHTTPエラーに写す。
// 拒否は利用者起因の400、到達不能は500。
func gatewayHTTPError(err error) error {
	var rejected *gateway.RejectedError
	if errors.As(err, &rejected) {
		return NewHTTPError(http.StatusBadRequest, rejected.Reason)
	}
	if errors.Is(err, gateway.ErrUnavailable) {
		return NewHTTPError(http.StatusInternalServerError, "payment provider unavailable")
	}
	return NewHTTPError(http.StatusInternalServerError, "payment provider unavailable")
}
