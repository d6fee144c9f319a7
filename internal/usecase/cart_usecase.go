package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
// カートはdraftステータスの注文そのもので、専用テーブルは持ちません。
type CartUsecase struct {
	txm repo.TransactionManager
}

func NewCartUsecase(txm repo.TransactionManager) *CartUsecase {
	return &CartUsecase{txm: txm}
}

// sugar_levelとadd_onsのカスタマイズ。
type CustomizationInput struct {
	SugarLevel string   `json:"sugar_level"`
	AddOns     []string `json:"add_ons"`
	Notes      string   `json:"notes"`
}

type AddCartItemInput struct {
	MenuItemID    int64
	Quantity      int64
	Customization CustomizationInput
}

type UpdateCartItemInput struct {
	Quantity int64

	//nilなら既存のカスタマイズを維持する
	Customization *CustomizationInput
}

type CartItemResponse struct {
	ID            int64           `json:"id"`
	MenuItemID    int64           `json:"menu_item_id"`
	Name          string          `json:"name"`
	UnitPrice     int64           `json:"unit_price"`
	Quantity      int64           `json:"quantity"`
	Customization json.RawMessage `json:"customization"`
	Subtotal      int64           `json:"subtotal"`
}

type CartResponse struct {
	OrderID int64              `json:"order_id"`
	Items   []CartItemResponse `json:"items"`
	Total   int64              `json:"total"`
}

// canonicalCustomization は比較可能な正規形JSONを作る。
// add_onsは小文字化・重複排除・ソート。同じ内容なら必ず同じ文字列になる。
func canonicalCustomization(in CustomizationInput) string {
	seen := map[string]bool{}
	addOns := make([]string, 0, len(in.AddOns))
	for _, a := range in.AddOns {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		addOns = append(addOns, a)
	}
	sort.Strings(addOns)

	canonical := CustomizationInput{
		SugarLevel: strings.ToLower(strings.TrimSpace(in.SugarLevel)),
		AddOns:     addOns,
		Notes:      strings.TrimSpace(in.Notes),
	}
	b, _ := json.Marshal(canonical)
	return string(b)
}

// unitPrice はメニュー価格にアドオン追加料金を足した1個あたりの価格。
func unitPrice(menu model.MenuItem, customization string) int64 {
	var c CustomizationInput
	_ = json.Unmarshal([]byte(customization), &c)

	price := menu.Price
	for _, a := range c.AddOns {
		price += model.AddOnSurcharge(a)
	}
	return price
}

// GetCart はカート取得（無ければdraft注文を作って空で返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out CartResponse
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		draft, err := r.Orders().GetOrCreateDraftByUserID(ctx, userID)
		if err != nil {
			return err
		}
		resp, err := u.buildCartResponse(ctx, r, draft)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return CartResponse{}, he
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

// AddToCart はカートに追加。
// 同一メニュー・同一カスタマイズの行は数量を加算し、違えば別行にする。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.MenuItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid menu_item_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	customization := canonicalCustomization(in.Customization)

	var out CartResponse
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		draft, err := r.Orders().GetOrCreateDraftByUserID(ctx, userID)
		if err != nil {
			return err
		}

		menu, err := r.MenuItems().FindByID(ctx, in.MenuItemID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "invalid menu item")
		}
		if err != nil {
			return err
		}
		if !menu.IsAvailable {
			return NewHTTPError(http.StatusBadRequest, "menu item is not available")
		}

		price := unitPrice(menu, customization)

		items, err := r.OrderItems().ListByOrderID(ctx, draft.ID)
		if err != nil {
			return err
		}

		merged := false
		for _, it := range items {
			if it.MenuItemID != in.MenuItemID || it.Customization != customization {
				continue
			}
			it.Quantity += in.Quantity
			it.Subtotal = price * it.Quantity
			if err := r.OrderItems().Update(ctx, it); err != nil {
				return err
			}
			merged = true
			break
		}

		if !merged {
			item := model.OrderItem{
				OrderID:       draft.ID,
				MenuItemID:    in.MenuItemID,
				Quantity:      in.Quantity,
				Customization: customization,
				Subtotal:      price * in.Quantity,
			}
			if _, err := r.OrderItems().Create(ctx, item); err != nil {
				return err
			}
		}

		return u.refreshAndBuild(ctx, r, draft, &out)
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return CartResponse{}, he
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

// 数量・カスタマイズ変更（所有チェック込み）。
// カスタマイズを変えた場合はアドオン分も含めて単価を引き直す。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, itemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	var out CartResponse
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		draft, err := r.Orders().FindDraftByUserIDForUpdate(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}

		item, err := r.OrderItems().FindByID(ctx, itemID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		//draft以外の注文の明細は触らせない
		if item.OrderID != draft.ID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		menu, err := r.MenuItems().FindByID(ctx, item.MenuItemID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "invalid menu item")
		}
		if err != nil {
			return err
		}

		if in.Customization != nil {
			item.Customization = canonicalCustomization(*in.Customization)
		}

		price := unitPrice(menu, item.Customization)
		item.Quantity = in.Quantity
		item.Subtotal = price * in.Quantity
		if err := r.OrderItems().Update(ctx, item); err != nil {
			return err
		}

		return u.refreshAndBuild(ctx, r, draft, &out)
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return CartResponse{}, he
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, itemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out CartResponse
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		draft, err := r.Orders().FindDraftByUserIDForUpdate(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}

		item, err := r.OrderItems().FindByID(ctx, itemID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return err
		}
		if item.OrderID != draft.ID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if err := r.OrderItems().DeleteByID(ctx, itemID); err != nil {
			return err
		}

		return u.refreshAndBuild(ctx, r, draft, &out)
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return CartResponse{}, he
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

// ClearCart は明細を全削除して合計を0に戻す。注文自体は残す。
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out CartResponse
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		draft, err := r.Orders().GetOrCreateDraftByUserID(ctx, userID)
		if err != nil {
			return err
		}

		if err := r.OrderItems().DeleteByOrderID(ctx, draft.ID); err != nil {
			return err
		}

		return u.refreshAndBuild(ctx, r, draft, &out)
	})
	if err != nil {
		if he, ok := AsHTTPError(err); ok {
			return CartResponse{}, he
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

// 合計を明細から計算し直して保存する。
// draftの間はtotal == Σsubtotalを崩さない。
func (u *CartUsecase) refreshAndBuild(ctx context.Context, r repo.TxRepos, draft model.Order, out *CartResponse) error {
	resp, err := u.buildCartResponse(ctx, r, draft)
	if err != nil {
		return err
	}

	if resp.Total != draft.TotalAmount {
		draft.TotalAmount = resp.Total
		if err := r.Orders().Update(ctx, draft); err != nil {
			return err
		}
	}

	*out = resp
	return nil
}

func (u *CartUsecase) buildCartResponse(ctx context.Context, r repo.TxRepos, draft model.Order) (CartResponse, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, draft.ID)
	if err != nil {
		return CartResponse{}, err
	}

	respItems := make([]CartItemResponse, 0, len(items))
	var total int64 = 0

	for _, it := range items {
		name := ""
		var unit int64 = 0
		if menu, err := r.MenuItems().FindByID(ctx, it.MenuItemID); err == nil {
			name = menu.Name
			unit = unitPrice(menu, it.Customization)
		}

		respItems = append(respItems, CartItemResponse{
			ID:            it.ID,
			MenuItemID:    it.MenuItemID,
			Name:          name,
			UnitPrice:     unit,
			Quantity:      it.Quantity,
			Customization: json.RawMessage(it.Customization),
			Subtotal:      it.Subtotal,
		})
		total += it.Subtotal
	}

	return CartResponse{OrderID: draft.ID, Items: respItems, Total: total}, nil
}
