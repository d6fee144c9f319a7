package repository

import (
	"context"

	"app/internal/domain/model"
)

// ポイント台帳（外部コラボレーターのデータ。ここでは追記と参照のみ）。
type LoyaltyRepository interface {
	Append(ctx context.Context, tx model.LoyaltyTransaction) (int64, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.LoyaltyTransaction, error)
	TotalByUserID(ctx context.Context, userID int64) (int64, error)
}
