package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
)

type Promotion struct {
	ID           int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Code         string       `gorm:"type:varchar(20);not null;uniqueIndex" json:"code"`
	Description  string       `gorm:"type:text" json:"description"`
	DiscountType DiscountType `gorm:"type:varchar(20);not null" json:"discount_type"`

	//percentageなら割合（例 10.5）、fixed_amountなら最小通貨単位の額
	DiscountValue decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"discount_value"`

	MinPurchaseAmount int64     `gorm:"not null;default:0" json:"min_purchase_amount"`
	StartDate         time.Time `gorm:"not null" json:"start_date"`
	EndDate           time.Time `gorm:"not null" json:"end_date"`
	IsActive          bool      `gorm:"not null;default:true" json:"is_active"`

	//nilなら無制限
	MaxUses     *int64 `json:"max_uses"`
	CurrentUses int64  `gorm:"not null;default:0" json:"current_uses"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// DiscountForは合計totalに対する割引額（最小通貨単位）を返す。
// 合計を超える割引は合計で打ち切る。端数は切り捨て。
func (p Promotion) DiscountFor(total int64) int64 {
	var d decimal.Decimal
	switch p.DiscountType {
	case DiscountTypePercentage:
		d = decimal.NewFromInt(total).Mul(p.DiscountValue).Div(decimal.NewFromInt(100))
	case DiscountTypeFixedAmount:
		d = p.DiscountValue
	default:
		return 0
	}
	discount := d.Floor().IntPart()
	if discount < 0 {
		return 0
	}
	if discount > total {
		return total
	}
	return discount
}
