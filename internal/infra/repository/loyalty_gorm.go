package repository

import (
	"context"

	"app/internal/domain/model"

	"gorm.io/gorm"
)

type LoyaltyGormRepository struct {
	db *gorm.DB
}

func NewLoyaltyGormRepository(db *gorm.DB) *LoyaltyGormRepository {
	return &LoyaltyGormRepository{db: db}
}

// 追記のみ。
func (r *LoyaltyGormRepository) Append(ctx context.Context, tx model.LoyaltyTransaction) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&tx).Error; err != nil {
		return 0, err
	}
	return tx.ID, nil
}

func (r *LoyaltyGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.LoyaltyTransaction, error) {
	var items []model.LoyaltyTransaction
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Find(&items).Error; err != nil {
		return []model.LoyaltyTransaction{}, err
	}
	return items, nil
}

func (r *LoyaltyGormRepository) TotalByUserID(ctx context.Context, userID int64) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&model.LoyaltyTransaction{}).
		Select("SUM(points)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
