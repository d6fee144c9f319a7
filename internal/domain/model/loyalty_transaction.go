package model

import "time"

const (
	LoyaltySourceOrderCompleted = "order_completed"
)

// ポイント台帳。追記のみで更新・削除はしない。
type LoyaltyTransaction struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	//符号付き。付与はプラス、利用はマイナス。
	Points int64  `gorm:"not null" json:"points"`
	Source string `gorm:"type:varchar(50);not null" json:"source"`

	//きっかけになった注文
	OrderID *int64 `gorm:"index" json:"order_id"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
