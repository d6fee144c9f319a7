package model

import "time"

type PaymentMethod string

const (
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(s) {
	case PaymentMethodCard, PaymentMethodMobileMoney:
		return PaymentMethod(s), true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// 決済試行1回分。リトライで同じ注文に複数行できるが、
// pendingは同時に1行まで（オーケストレーターが保証する）。
type Payment struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64 `gorm:"not null;index" json:"order_id"`

	//開始時点の注文合計の写し。この試行についてはこちらが正。
	Amount int64         `gorm:"not null" json:"amount"`
	Method PaymentMethod `gorm:"type:varchar(20);not null" json:"method"`

	//ゲートウェイ相関ID（Stripe intent id / M-Pesa CheckoutRequestID）
	TransactionID string        `gorm:"type:varchar(100);not null;uniqueIndex" json:"transaction_id"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	//レシート番号・失敗理由などのJSON
	Details string `gorm:"type:jsonb" json:"details"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
