package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

func (r *PaymentGormRepository) Create(ctx context.Context, p model.Payment) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (r *PaymentGormRepository) FindByTransactionID(ctx context.Context, transactionID string) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

// コールバックの二重配送に備えてFOR UPDATEで取る。
func (r *PaymentGormRepository) FindByTransactionIDForUpdate(ctx context.Context, transactionID string) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_id = ?", transactionID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (r *PaymentGormRepository) UpdateStatusDetails(ctx context.Context, paymentID int64, status model.PaymentStatus, details string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if details != "" {
		updates["details"] = details
	}

	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ?", paymentID).
		Updates(updates)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PaymentGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error) {
	var items []model.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id desc").
		Find(&items).Error; err != nil {
		return []model.Payment{}, err
	}
	return items, nil
}

func (r *PaymentGormRepository) ListAdmin(ctx context.Context, page int, limit int) ([]model.Payment, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Payment{}).Count(&total).Error; err != nil {
		return []model.Payment{}, 0, err
	}

	var items []model.Payment
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error; err != nil {
		return []model.Payment{}, 0, err
	}

	return items, total, nil
}
