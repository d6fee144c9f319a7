package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type PromotionRepository interface {
	FindByCode(ctx context.Context, code string) (model.Promotion, error)
	Create(ctx context.Context, p model.Promotion) (int64, error)

	//適用成功時のみ呼ぶ。減らすことはない。
	IncrementUses(ctx context.Context, promotionID int64) error

	ListActive(ctx context.Context, now time.Time) ([]model.Promotion, error)
}
