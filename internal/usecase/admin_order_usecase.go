package usecase

import (
	"context"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// AdminOrderUsecase はスタッフ・管理者による注文操作。
// 遷移の可否はすべてmodel.CanTransitionに委ねる。
type AdminOrderUsecase struct {
	txm       repo.TransactionManager
	orderRepo repo.OrderRepository
}

func NewAdminOrderUsecase(txm repo.TransactionManager, orderRepo repo.OrderRepository) *AdminOrderUsecase {
	return &AdminOrderUsecase{txm: txm, orderRepo: orderRepo}
}

type AdminOrderListInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// List は管理者向けの全注文一覧（draft除く）。
func (u *AdminOrderUsecase) List(ctx context.Context, in AdminOrderListInput) (OrderListOutput, error) {
	if in.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if in.Status != "" {
		if _, ok := model.ParseOrderStatus(in.Status); !ok {
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}

	orders, total, err := u.orderRepo.ListAdmin(ctx, repo.AdminOrderListFilter{
		Page:   in.Page,
		Limit:  in.Limit,
		Status: in.Status,
		UserID: in.UserID,
		From:   in.From,
		To:     in.To,
	})
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, buildOrderResponse(o, nil))
	}
	return OrderListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// StaffList はスタッフが捌く対象の注文一覧。
// 決済確定後〜受け渡し前の注文だけを出す。
func (u *AdminOrderUsecase) StaffList(ctx context.Context, page, limit int) (OrderListOutput, error) {
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	//スタッフ一覧はユーザー横断なのでListAdminをIN絞り込みで1回だけ使う
	orders, total, err := u.orderRepo.ListAdmin(ctx, repo.AdminOrderListFilter{
		Page:  page,
		Limit: limit,
		Statuses: []model.OrderStatus{
			model.OrderStatusConfirmed,
			model.OrderStatusPreparing,
			model.OrderStatusReadyForPickup,
			model.OrderStatusOutForDelivery,
		},
	})
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, buildOrderResponse(o, nil))
	}
	return OrderListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// UpdateStatus はactorの権限で注文ステータスを変更する。
// スタッフは前進チェーンのみ、管理者はcompleted以外から任意の遷移ができる。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, orderID int64, newStatus string, actor model.Actor) (OrderResponse, error) {
	if orderID <= 0 {
		return OrderResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	to, ok := model.ParseOrderStatus(newStatus)
	if !ok {
		return OrderResponse{}, NewHTTPError(http.StatusBadRequest, "invalid status")
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

		if err := model.CanTransition(o.Status, to, actor); err != nil {
			return transitionHTTPError(err)
		}

		o.Status = to
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

// Delete は管理者による注文削除。
// 決着済み（終端）かdraftだけ消せる。進行中の注文はキャンセルを経由させる。
func (u *AdminOrderUsecase) Delete(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}

		if !o.Status.IsTerminal() && o.Status != model.OrderStatusDraft {
			return NewHTTPError(http.StatusConflict, "order is still in progress")
		}

		if err := r.OrderItems().DeleteByOrderID(ctx, o.ID); err != nil {
			return err
		}
		return r.Orders().DeleteByID(ctx, o.ID)
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return he
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
