package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	MenuItems() MenuItemRepository
	Payments() PaymentRepository
	Promotions() PromotionRepository
	Loyalty() LoyaltyRepository
	Addresses() AddressRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
