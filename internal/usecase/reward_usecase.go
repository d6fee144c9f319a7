package usecase

import (
	"context"
	"net/http"
	"time"

	repo "app/internal/repository"
)

// RewardUsecase はポイント残高と履歴の参照。
// 付与は照合エンジン側で行うので、ここは読むだけ。
type RewardUsecase struct {
	loyaltyRepo repo.LoyaltyRepository
}

func NewRewardUsecase(loyaltyRepo repo.LoyaltyRepository) *RewardUsecase {
	return &RewardUsecase{loyaltyRepo: loyaltyRepo}
}

type LoyaltyEntryView struct {
	ID        int64     `json:"id"`
	Points    int64     `json:"points"`
	Source    string    `json:"source"`
	OrderID   *int64    `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

type RewardPointsOutput struct {
	Balance int64              `json:"balance"`
	History []LoyaltyEntryView `json:"history"`
}

func (u *RewardUsecase) GetPoints(ctx context.Context, userID int64) (RewardPointsOutput, error) {
	if userID <= 0 {
		return RewardPointsOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	balance, err := u.loyaltyRepo.TotalByUserID(ctx, userID)
	if err != nil {
		return RewardPointsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	entries, err := u.loyaltyRepo.ListByUserID(ctx, userID)
	if err != nil {
		return RewardPointsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	history := make([]LoyaltyEntryView, 0, len(entries))
	for _, e := range entries {
		history = append(history, LoyaltyEntryView{
			ID:        e.ID,
			Points:    e.Points,
			Source:    e.Source,
			OrderID:   e.OrderID,
			CreatedAt: e.CreatedAt,
		})
	}

	return RewardPointsOutput{Balance: balance, History: history}, nil
}
