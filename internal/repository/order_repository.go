package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string

	//複数ステータスで絞る場合（Statusと併用しない）
	Statuses []model.OrderStatus

	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	//FOR UPDATEで注文行をロックして取得。注文単位の直列化はここで行う。
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)

	//ユーザーのdraft注文（カート）を取得し、無ければ合計0で作成する。
	GetOrCreateDraftByUserID(ctx context.Context, userID int64) (model.Order, error)

	//draft注文をロック付きで取得（カート変更はこの行ロック下で行う）
	FindDraftByUserIDForUpdate(ctx context.Context, userID int64) (model.Order, error)

	ListByUserIDInStatuses(ctx context.Context, userID int64, statuses []model.OrderStatus, page int, limit int) ([]model.Order, int64, error)

	//status + updated_atのみ更新
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//checkout・照合で書き換わる列をまとめて保存する
	Update(ctx context.Context, order model.Order) error

	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	DeleteByID(ctx context.Context, orderID int64) error
}
