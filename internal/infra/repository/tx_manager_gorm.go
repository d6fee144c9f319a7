package repository

import (
	"context"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	menuItems  repo.MenuItemRepository
	payments   repo.PaymentRepository
	promotions repo.PromotionRepository
	loyalty    repo.LoyaltyRepository
	addresses  repo.AddressRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *txReposGorm) MenuItems() repo.MenuItemRepository   { return r.menuItems }
func (r *txReposGorm) Payments() repo.PaymentRepository     { return r.payments }
func (r *txReposGorm) Promotions() repo.PromotionRepository { return r.promotions }
func (r *txReposGorm) Loyalty() repo.LoyaltyRepository      { return r.loyalty }
func (r *txReposGorm) Addresses() repo.AddressRepository    { return r.addresses }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:     NewOrderGormRepository(tx),
			orderItems: NewOrderItemGormRepository(tx),
			menuItems:  NewMenuItemGormRepository(tx),
			payments:   NewPaymentGormRepository(tx),
			promotions: NewPromotionGormRepository(tx),
			loyalty:    NewLoyaltyGormRepository(tx),
			addresses:  NewAddressGormRepository(tx),
		}
		return fn(r)
	})
}
