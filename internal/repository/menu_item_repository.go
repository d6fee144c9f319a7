package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

type MenuItemRepository interface {
	FindByID(ctx context.Context, menuItemID int64) (model.MenuItem, error)
}
