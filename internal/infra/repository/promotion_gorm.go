package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type PromotionGormRepository struct {
	db *gorm.DB
}

func NewPromotionGormRepository(db *gorm.DB) *PromotionGormRepository {
	return &PromotionGormRepository{db: db}
}

func (r *PromotionGormRepository) FindByCode(ctx context.Context, code string) (model.Promotion, error) {
	var p model.Promotion
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Promotion{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Promotion{}, err
	}
	return p, nil
}

func (r *PromotionGormRepository) Create(ctx context.Context, p model.Promotion) (int64, error) {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return 0, err
	}
	return p.ID, nil
}

// 使用回数を+1。上限はバリデーション済みの前提だが、
// 競合で超えないようにWHEREでもガードする。
func (r *PromotionGormRepository) IncrementUses(ctx context.Context, promotionID int64) error {
	res := r.db.WithContext(ctx).Model(&model.Promotion{}).
		Where("id = ? AND (max_uses IS NULL OR current_uses < max_uses)", promotionID).
		UpdateColumn("current_uses", gorm.Expr("current_uses + ?", 1))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PromotionGormRepository) ListActive(ctx context.Context, now time.Time) ([]model.Promotion, error) {
	var items []model.Promotion
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, now, now).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.Promotion{}, err
	}
	return items, nil
}
