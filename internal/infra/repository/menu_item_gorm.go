package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type MenuItemGormRepository struct {
	db *gorm.DB
}

func NewMenuItemGormRepository(db *gorm.DB) *MenuItemGormRepository {
	return &MenuItemGormRepository{db: db}
}

func (r *MenuItemGormRepository) FindByID(ctx context.Context, menuItemID int64) (model.MenuItem, error) {
	var m model.MenuItem
	err := r.db.WithContext(ctx).Where("id = ?", menuItemID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.MenuItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.MenuItem{}, err
	}
	return m, nil
}
