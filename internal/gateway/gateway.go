package gateway

import (
	"context"
	"errors"
	"fmt"

	"app/internal/domain/model"
)

// 決済プロバイダ抽象。実装はカードとモバイルマネーの2つのみ。
type Gateway interface {
	// Initiate は注文に対する決済をプロバイダ側で開始し、照合用IDを返す。
	Initiate(ctx context.Context, in InitiateInput) (InitiateResult, error)
	// Verify は照合用IDでプロバイダへ現在状態を問い合わせる。
	Verify(ctx context.Context, transactionID string) (VerifyResult, error)
}

type InitiateInput struct {
	OrderID     int64
	UserID      int64
	Amount      int64 // 最小通貨単位
	Currency    string
	PhoneNumber string // mobile_moneyのみ必須
	Description string
}

type InitiateResult struct {
	// プロバイダ側の照合キー。カードはPaymentIntent ID、
	// モバイルマネーはCheckoutRequestID。
	TransactionID   string
	ClientSecret    string
	CustomerMessage string
	Details         map[string]string
}

type VerifyResult struct {
	Status     model.PaymentStatus
	ResultCode string
	ResultDesc string
}

// プロバイダに到達できない・応答が壊れている場合。
var ErrUnavailable = errors.New("payment provider unavailable")

// プロバイダが要求自体を拒否した場合(残高不足、不正な番号など)。
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payment rejected: %s", e.Reason)
}

// Registry は決済方法ごとのゲートウェイを固定で持つ。
// フォールバックはしない。未設定の方法はエラー。
type Registry struct {
	Card        Gateway
	MobileMoney Gateway
}

func (r Registry) For(method model.PaymentMethod) (Gateway, error) {
	switch method {
	case model.PaymentMethodCard:
		if r.Card == nil {
			return nil, errors.New("card gateway is not configured")
		}
		return r.Card, nil
	case model.PaymentMethodMobileMoney:
		if r.MobileMoney == nil {
			return nil, errors.New("mobile money gateway is not configured")
		}
		return r.MobileMoney, nil
	default:
		return nil, fmt.Errorf("unsupported payment method: %s", method)
	}
}
