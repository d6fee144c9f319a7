package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// OrderUsecase はcheckoutと注文の参照・キャンセル。
type OrderUsecase struct {
	txm       repo.TransactionManager
	orderRepo repo.OrderRepository
	itemRepo  repo.OrderItemRepository
	now       func() time.Time
}

func NewOrderUsecase(
	txm repo.TransactionManager,
	orderRepo repo.OrderRepository,
	itemRepo repo.OrderItemRepository,
) *OrderUsecase {
	return &OrderUsecase{
		txm:       txm,
		orderRepo: orderRepo,
		itemRepo:  itemRepo,
		now:       time.Now,
	}
}

type CheckoutInput struct {
	IsDelivery        bool
	DeliveryAddressID *int64
	PromoCode         string
}

type OrderItemView struct {
	ID            int64  `json:"id"`
	MenuItemID    int64  `json:"menu_item_id"`
	Quantity      int64  `json:"quantity"`
	Customization string `json:"customization"`
	Subtotal      int64  `json:"subtotal"`
}

type OrderResponse struct {
	ID                 int64             `json:"id"`
	Status             model.OrderStatus `json:"status"`
	TotalAmount        int64             `json:"total_amount"`
	IsDelivery         bool              `json:"is_delivery"`
	DeliveryAddressID  *int64            `json:"delivery_address_id"`
	AppliedPromotionID *int64            `json:"applied_promotion_id"`
	PaymentStatus      string            `json:"payment_status"`
	Items              []OrderItemView   `json:"items"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// 受け付け中（未決着）のステータス。
var activeStatuses = []model.OrderStatus{
	model.OrderStatusPending,
	model.OrderStatusAwaitingPayment,
	model.OrderStatusConfirmed,
	model.OrderStatusPreparing,
	model.OrderStatusReadyForPickup,
	model.OrderStatusOutForDelivery,
}

// Checkout はカート（draft）を注文（pending）に確定する。
// 合計確定・プロモーション適用・使用回数加算を1トランザクションで行う。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (OrderResponse, error) {
	if userID <= 0 {
		return OrderResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.IsDelivery && (in.DeliveryAddressID == nil || *in.DeliveryAddressID <= 0) {
		return OrderResponse{}, NewHTTPError(http.StatusBadRequest, "delivery_address_id is required for delivery")
	}

	var out OrderResponse
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		draft, err := r.Orders().FindDraftByUserIDForUpdate(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "cart is empty")
		}
		if err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, draft.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart is empty")
		}

		var subtotal int64 = 0
		for _, it := range items {
			subtotal += it.Subtotal
		}

		if in.IsDelivery {
			addr, err := r.Addresses().FindByID(ctx, *in.DeliveryAddressID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "invalid delivery address")
			}
			if err != nil {
				return err
			}
			if addr.UserID != userID {
				return NewHTTPError(http.StatusBadRequest, "invalid delivery address")
			}
		}

		total := subtotal
		var promoID *int64
		if in.PromoCode != "" {
			p, err := validatePromotion(ctx, r.Promotions(), in.PromoCode, subtotal, u.now())
			if err != nil {
				return err
			}
			total = subtotal - p.DiscountFor(subtotal)
			promoID = &p.ID

			//同一Tx内で加算するので、上限いっぱいの同時checkoutでも超過しない
			if err := r.Promotions().IncrementUses(ctx, p.ID); err != nil {
				if err == repo.ErrNotFound {
					return NewHTTPError(http.StatusBadRequest, reasonMaxUsesReached)
				}
				return err
			}
		}

		if err := model.CanTransition(draft.Status, model.OrderStatusPending, model.ActorCustomer); err != nil {
			return transitionHTTPError(err)
		}

		draft.Status = model.OrderStatusPending
		draft.TotalAmount = total
		draft.IsDelivery = in.IsDelivery
		draft.DeliveryAddressID = nil
		if in.IsDelivery {
			draft.DeliveryAddressID = in.DeliveryAddressID
		}
		draft.AppliedPromotionID = promoID

		if err := r.Orders().Update(ctx, draft); err != nil {
			return err
		}

		out = buildOrderResponse(draft, items)
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return OrderResponse{}, he
		}
		return OrderResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

// GetCurrent は進行中の最新注文を返す。無ければ404。
func (u *OrderUsecase) GetCurrent(ctx context.Context, userID int64) (OrderResponse, error) {
	if userID <= 0 {
		return OrderResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, _, err := u.orderRepo.ListByUserIDInStatuses(ctx, userID, activeStatuses, 1, 1)
	if err != nil {
		return OrderResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(orders) == 0 {
		return OrderResponse{}, NewHTTPError(http.StatusNotFound, "no active order")
	}

	return u.withItems(ctx, orders[0])
}

type OrderListOutput struct {
	Items []OrderResponse `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// History はdraft以外の注文を新しい順に返す。
func (u *OrderUsecase) History(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	statuses := append([]model.OrderStatus{}, activeStatuses...)
	statuses = append(statuses,
		model.OrderStatusCompleted,
		model.OrderStatusCancelledByUser,
		model.OrderStatusCancelledByAdmin,
		model.OrderStatusFailed,
	)

	orders, total, err := u.orderRepo.ListByUserIDInStatuses(ctx, userID, statuses, page, limit)
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, buildOrderResponse(o, nil))
	}
	return OrderListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// GetDetail は注文詳細（本人のみ）。
func (u *OrderUsecase) GetDetail(ctx context.Context, userID int64, orderID int64) (OrderResponse, error) {
	if userID <= 0 {
		return OrderResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orderRepo.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return OrderResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	//他人の注文は存在ごと隠す
	if o.UserID != userID {
		return OrderResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	return u.withItems(ctx, o)
}

// Cancel は本人によるキャンセル。
// pending / awaiting_paymentの間だけ許される。
func (u *OrderUsecase) Cancel(ctx context.Context, userID int64, orderID int64) (OrderResponse, error) {
	if userID <= 0 {
		return OrderResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderResponse
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if err := model.CanTransition(o.Status, model.OrderStatusCancelledByUser, model.ActorCustomer); err != nil {
			return transitionHTTPError(err)
		}

		o.Status = model.OrderStatusCancelledByUser
		if err := r.Orders().Update(ctx, o); err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return err
		}
		out = buildOrderResponse(o, items)
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return OrderResponse{}, he
		}
		return OrderResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

func (u *OrderUsecase) withItems(ctx context.Context, o model.Order) (OrderResponse, error) {
	items, err := u.itemRepo.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return buildOrderResponse(o, items), nil
}

func buildOrderResponse(o model.Order, items []model.OrderItem) OrderResponse {
	views := make([]OrderItemView, 0, len(items))
	for _, it := range items {
		views = append(views, OrderItemView{
			ID:            it.ID,
			MenuItemID:    it.MenuItemID,
			Quantity:      it.Quantity,
			Customization: it.Customization,
			Subtotal:      it.Subtotal,
		})
	}
	return OrderResponse{
		ID:                 o.ID,
		Status:             o.Status,
		TotalAmount:        o.TotalAmount,
		IsDelivery:         o.IsDelivery,
		DeliveryAddressID:  o.DeliveryAddressID,
		AppliedPromotionID: o.AppliedPromotionID,
		PaymentStatus:      o.PaymentStatus,
		Items:              views,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// 遷移エラーをHTTPエラーに写す。
// 権限外は403、遷移表違反は409。
func transitionHTTPError(err error) error {
	if errors.Is(err, model.ErrTransitionForbidden) {
		return NewHTTPError(http.StatusForbidden, "transition not allowed for this role")
	}
	var ite *model.InvalidTransitionError
	if errors.As(err, &ite) {
		return NewHTTPError(http.StatusConflict, ite.Error())
	}
	return err
}
