package model

import "time"

// メニュー（カタログ管理自体は対象外。カートが参照するだけ）。
type MenuItem struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	//最小通貨単位
	Price       int64  `gorm:"not null" json:"price"`
	CategoryID  int64  `gorm:"not null;index" json:"category_id"`
	IsAvailable bool   `gorm:"not null;default:true" json:"is_available"`
	ImageURL    string `gorm:"type:varchar(255)" json:"image_url"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// アドオンの追加料金表（最小通貨単位）。
var addOnSurcharges = map[string]int64{
	"extra_shot":    50,
	"whipped_cream": 75,
	"caramel":       50,
	"chocolate":     50,
}

// AddOnSurchargeはアドオン1つの追加料金を返す。未知のアドオンは0。
func AddOnSurcharge(name string) int64 {
	return addOnSurcharges[name]
}
