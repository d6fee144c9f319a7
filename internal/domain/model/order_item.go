package model

import "time"

// 注文（カート）の明細。
// Subtotalは追加時点の単価×数量で凍結する。メニュー価格が後で変わっても再計算しない。
type OrderItem struct {
	ID         int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64 `gorm:"not null;index" json:"order_id"`
	MenuItemID int64 `gorm:"not null;index" json:"menu_item_id"`
	Quantity   int64 `gorm:"not null" json:"quantity"`

	//sugar_level / add_onsなどのJSON（正規化して保存する）
	Customization string `gorm:"type:jsonb" json:"customization"`

	Subtotal  int64     `gorm:"not null" json:"subtotal"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
