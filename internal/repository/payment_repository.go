package repository

import (
	"context"

	"app/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p model.Payment) (int64, error)
	FindByTransactionID(ctx context.Context, transactionID string) (model.Payment, error)

	//コールバック適用はこの行ロック下で行う
	FindByTransactionIDForUpdate(ctx context.Context, transactionID string) (model.Payment, error)

	UpdateStatusDetails(ctx context.Context, paymentID int64, status model.PaymentStatus, details string) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error)
	ListAdmin(ctx context.Context, page int, limit int) ([]model.Payment, int64, error)
}
