package repository

import (
	"context"

	"app/internal/domain/model"
)

type OrderItemRepository interface {
	FindByID(ctx context.Context, itemID int64) (model.OrderItem, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	Create(ctx context.Context, item model.OrderItem) (int64, error)

	//quantity / customization / subtotal を更新
	Update(ctx context.Context, item model.OrderItem) error

	DeleteByID(ctx context.Context, itemID int64) error
	DeleteByOrderID(ctx context.Context, orderID int64) error
}
