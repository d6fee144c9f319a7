package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// PromotionUsecase はプロモーションコードの検証と管理。
// 検証は何度呼んでも副作用なし。使用回数はcheckout成功時にだけ増える。
type PromotionUsecase struct {
	promoRepo repo.PromotionRepository
	now       func() time.Time
}

func NewPromotionUsecase(promoRepo repo.PromotionRepository) *PromotionUsecase {
	return &PromotionUsecase{promoRepo: promoRepo, now: time.Now}
}

// 検証失敗の理由。チェックの順番は固定で、最初に落ちた理由を返す。
const (
	reasonInvalidCode    = "invalid promotion code"
	reasonNotActive      = "this promotion is not active"
	reasonNotStarted     = "this promotion has not started yet"
	reasonExpired        = "this promotion has expired"
	reasonMaxUsesReached = "this promotion has reached its maximum usage limit"
	reasonMinPurchase    = "minimum purchase amount not met"
)

// validatePromotion は合計totalに対してcodeが使えるか判定する。
// 使えるならプロモーションを返す。副作用は一切なし。
func validatePromotion(ctx context.Context, promos repo.PromotionRepository, code string, total int64, now time.Time) (model.Promotion, error) {
	if strings.TrimSpace(code) == "" {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, reasonInvalidCode)
	}

	p, err := promos.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, reasonInvalidCode)
	}
	if err != nil {
		return model.Promotion{}, err
	}

	if !p.IsActive {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, reasonNotActive)
	}
	if now.Before(p.StartDate) {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, reasonNotStarted)
	}
	if now.After(p.EndDate) {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, reasonExpired)
	}
	if p.MaxUses != nil && p.CurrentUses >= *p.MaxUses {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, reasonMaxUsesReached)
	}
	if total < p.MinPurchaseAmount {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, reasonMinPurchase)
	}

	return p, nil
}

type ValidatePromotionOutput struct {
	Code           string `json:"code"`
	Description    string `json:"description"`
	DiscountAmount int64  `json:"discount_amount"`
	FinalTotal     int64  `json:"final_total"`
}

// Validate はGET /promotions/validate用。totalに適用した場合の割引額を返す。
func (u *PromotionUsecase) Validate(ctx context.Context, code string, total int64) (ValidatePromotionOutput, error) {
	if total < 0 {
		return ValidatePromotionOutput{}, NewHTTPError(http.StatusBadRequest, "invalid total")
	}

	p, err := validatePromotion(ctx, u.promoRepo, code, total, u.now())
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return ValidatePromotionOutput{}, he
		}
		return ValidatePromotionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	discount := p.DiscountFor(total)
	return ValidatePromotionOutput{
		Code:           p.Code,
		Description:    p.Description,
		DiscountAmount: discount,
		FinalTotal:     total - discount,
	}, nil
}

// ListActive は現在有効なプロモーション一覧。
func (u *PromotionUsecase) ListActive(ctx context.Context) ([]model.Promotion, error) {
	items, err := u.promoRepo.ListActive(ctx, u.now())
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

type CreatePromotionInput struct {
	Code              string
	Description       string
	DiscountType      string
	DiscountValue     string //decimalのまま受ける
	MinPurchaseAmount int64
	StartDate         time.Time
	EndDate           time.Time
	MaxUses           *int64
	IsActive          bool
}

// AdminCreate は管理者によるプロモーション作成。
func (u *PromotionUsecase) AdminCreate(ctx context.Context, in CreatePromotionInput) (model.Promotion, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" || len(code) > 20 {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, "invalid code")
	}

	dtype := model.DiscountType(in.DiscountType)
	if dtype != model.DiscountTypePercentage && dtype != model.DiscountTypeFixedAmount {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, "invalid discount_type")
	}

	value, err := decimal.NewFromString(in.DiscountValue)
	if err != nil || value.LessThanOrEqual(decimal.Zero) {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, "invalid discount_value")
	}
	if dtype == model.DiscountTypePercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, "invalid discount_value")
	}

	if in.MinPurchaseAmount < 0 {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, "invalid min_purchase_amount")
	}
	if !in.EndDate.After(in.StartDate) {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, "end_date must be after start_date")
	}
	if in.MaxUses != nil && *in.MaxUses < 1 {
		return model.Promotion{}, NewHTTPError(http.StatusBadRequest, "invalid max_uses")
	}

	p := model.Promotion{
		Code:              code,
		Description:       in.Description,
		DiscountType:      dtype,
		DiscountValue:     value,
		MinPurchaseAmount: in.MinPurchaseAmount,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		IsActive:          in.IsActive,
		MaxUses:           in.MaxUses,
	}

	id, err := u.promoRepo.Create(ctx, p)
	if err != nil {
		return model.Promotion{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	p.ID = id
	return p, nil
}
