package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgresのunique_violation（23505）かどうか。
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// 注文行をFOR UPDATEでロックして取得。
// ロック待ちはDB側でブロックする（ビジーループしない）。
func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// ユーザーのdraft注文（カート）を取得し、無ければ作成。
// 1ユーザー1draftはここのロック＋作成リトライで守る。
func (r *OrderGormRepository) GetOrCreateDraftByUserID(ctx context.Context, userID int64) (model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND status = ?", userID, model.OrderStatusDraft).
			Order("id desc").
			First(&order).Error

		if findErr == nil {
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		//無ければ合計0で作る
		now := time.Now()
		newOrder := model.Order{
			UserID:        userID,
			Status:        model.OrderStatusDraft,
			TotalAmount:   0,
			PaymentStatus: "pending",
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := tx.Create(&newOrder).Error; err != nil {
			//部分一意インデックス（1ユーザー1draft）に弾かれたら、
			//先行したトランザクションの行をロックして読み直す
			if !isUniqueViolation(err) {
				return err
			}
			retryErr := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id = ? AND status = ?", userID, model.OrderStatusDraft).
				Order("id desc").
				First(&order).Error
			if retryErr == nil {
				return nil
			}
			return err
		}

		order = newOrder
		return nil
	})

	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (r *OrderGormRepository) FindDraftByUserIDForUpdate(ctx context.Context, userID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status = ?", userID, model.OrderStatusDraft).
		Order("id desc").
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) ListByUserIDInStatuses(ctx context.Context, userID int64, statuses []model.OrderStatus, page int, limit int) ([]model.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("user_id = ? AND status IN ?", userID, statuses)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (page - 1) * limit
	err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error
	if err != nil {
		return []model.Order{}, 0, err
	}
	return items, total, nil
}

func (r *OrderGormRepository) DeleteByID(ctx context.Context, orderID int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", orderID).Delete(&model.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// checkout・照合で変わる列をまとめて保存。
func (r *OrderGormRepository) Update(ctx context.Context, order model.Order) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":               order.Status,
			"total_amount":         order.TotalAmount,
			"is_delivery":          order.IsDelivery,
			"delivery_address_id":  order.DeliveryAddressID,
			"applied_promotion_id": order.AppliedPromotionID,
			"payment_status":       order.PaymentStatus,
			"updated_at":           time.Now(),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//draftは一覧に出さない（カートは注文ではない）
	q = q.Where("status <> ?", model.OrderStatusDraft)

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := q.Order("id desc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}
