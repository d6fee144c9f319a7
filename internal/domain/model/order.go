package model

import "time"

type OrderStatus string

const (
	//カート状態（確定前）
	OrderStatusDraft            OrderStatus = "draft"
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusAwaitingPayment  OrderStatus = "awaiting_payment"
	OrderStatusConfirmed        OrderStatus = "confirmed"
	OrderStatusPreparing        OrderStatus = "preparing"
	OrderStatusReadyForPickup   OrderStatus = "ready_for_pickup"
	OrderStatusOutForDelivery   OrderStatus = "out_for_delivery"
	OrderStatusCompleted        OrderStatus = "completed"
	OrderStatusCancelledByUser  OrderStatus = "cancelled_by_user"
	OrderStatusCancelledByAdmin OrderStatus = "cancelled_by_admin"
	OrderStatusFailed           OrderStatus = "failed"
)

// 終端ステータスかどうか
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelledByUser, OrderStatusCancelledByAdmin, OrderStatusFailed:
		return true
	}
	return false
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusDraft, OrderStatusPending, OrderStatusAwaitingPayment,
		OrderStatusConfirmed, OrderStatusPreparing, OrderStatusReadyForPickup,
		OrderStatusOutForDelivery, OrderStatusCompleted,
		OrderStatusCancelledByUser, OrderStatusCancelledByAdmin, OrderStatusFailed:
		return OrderStatus(s), true
	}
	return "", false
}

// draftの間はカート、checkout以降は注文。
// TotalAmountは明細subtotalの合計から導出する（独立に書き換えない）。
type Order struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//部分一意インデックスでdraftは1ユーザー1行に制限する
	UserID             int64       `gorm:"not null;index;index:idx_orders_one_draft,unique,where:status = 'draft'" json:"user_id"`
	Status             OrderStatus `gorm:"type:varchar(30);not null;index" json:"status"`
	TotalAmount        int64       `gorm:"not null" json:"total_amount"`
	IsDelivery         bool        `gorm:"not null;default:true" json:"is_delivery"`
	DeliveryAddressID  *int64      `json:"delivery_address_id"`
	AppliedPromotionID *int64      `json:"applied_promotion_id"`

	//直近のPaymentステータスの写し（真実はpaymentsテーブル側）
	PaymentStatus string `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
