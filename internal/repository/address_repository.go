package repository

import (
	"context"

	"app/internal/domain/model"
)

type AddressRepository interface {
	FindByID(ctx context.Context, addressID int64) (model.Address, error)
}
