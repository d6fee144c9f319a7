package usecase

import (
	"context"
	"encoding/json"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// ReconcileUsecase はゲートウェイからの結果（コールバック・webhook・ポーリング）を
// 台帳に突き合わせる。入口がどれでも適用ロジックはここの1本だけ。
type ReconcileUsecase struct {
	txm    repo.TransactionManager
	logger *zap.Logger
}

func NewReconcileUsecase(txm repo.TransactionManager, logger *zap.Logger) *ReconcileUsecase {
	return &ReconcileUsecase{txm: txm, logger: logger}
}

// 決済1件分の決着報告。
type ReconcileInput struct {
	TransactionID string
	Status        model.PaymentStatus
	ResultCode    string
	ResultDesc    string

	//レシート番号など、details JSONにマージする追加情報
	Extra map[string]string
}

// Apply は報告を1件適用する。何度呼んでも結果は同じ。
//   - 知らないTransactionIDは警告ログだけ残して捨てる
//   - すでに決着済みの決済には何もしない
//   - pendingの報告は決着ではないので何もしない
func (u *ReconcileUsecase) Apply(ctx context.Context, in ReconcileInput) error {
	if in.TransactionID == "" {
		u.logger.Warn("reconcile: report without transaction id dropped")
		return nil
	}
	if !in.Status.IsTerminal() {
		return nil
	}

	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByTransactionIDForUpdate(ctx, in.TransactionID)
		if err == repo.ErrNotFound {
			u.logger.Warn("reconcile: unknown transaction id dropped",
				zap.String("transaction_id", in.TransactionID),
				zap.String("result_code", in.ResultCode))
			return nil
		}
		if err != nil {
			return err
		}

		if p.Status.IsTerminal() {
			u.logger.Info("reconcile: payment already settled",
				zap.String("transaction_id", in.TransactionID),
				zap.String("status", string(p.Status)))
			return nil
		}

		details := mergeDetails(p.Details, in)
		if err := r.Payments().UpdateStatusDetails(ctx, p.ID, in.Status, details); err != nil {
			return err
		}

		o, err := r.Orders().FindByIDForUpdate(ctx, p.OrderID)
		if err != nil {
			return err
		}

		next := model.OrderStatusFailed
		if in.Status == model.PaymentStatusCompleted {
			next = model.OrderStatusConfirmed
		}

		//注文がすでに動かせない状態なら全体を巻き戻す。
		//決済はpendingのまま残り、ログで追える。
		if err := model.CanTransition(o.Status, next, model.ActorSystem); err != nil {
			u.logger.Warn("reconcile: order cannot accept settlement",
				zap.Int64("order_id", o.ID),
				zap.String("order_status", string(o.Status)),
				zap.String("payment_status", string(in.Status)))
			return err
		}

		o.Status = next
		o.PaymentStatus = string(in.Status)
		if err := r.Orders().Update(ctx, o); err != nil {
			return err
		}

		if in.Status == model.PaymentStatusCompleted {
			if points := o.TotalAmount / 100; points > 0 {
				orderID := o.ID
				_, err := r.Loyalty().Append(ctx, model.LoyaltyTransaction{
					UserID:  o.UserID,
					Points:  points,
					Source:  model.LoyaltySourceOrderCompleted,
					OrderID: &orderID,
				})
				if err != nil {
					return err
				}
			}
		}

		u.logger.Info("reconcile: payment settled",
			zap.String("transaction_id", in.TransactionID),
			zap.Int64("order_id", o.ID),
			zap.String("payment_status", string(in.Status)),
			zap.String("order_status", string(next)))
		return nil
	})
	return err
}

// 既存のdetails JSONに結果コードと追加情報を重ねる。壊れたJSONは捨てて作り直す。
func mergeDetails(existing string, in ReconcileInput) string {
	m := map[string]string{}
	if existing != "" {
		_ = json.Unmarshal([]byte(existing), &m)
	}
	if in.ResultCode != "" {
		m["result_code"] = in.ResultCode
	}
	if in.ResultDesc != "" {
		m["result_desc"] = in.ResultDesc
	}
	for k, v := range in.Extra {
		m[k] = v
	}
	b, _ := json.Marshal(m)
	return string(b)
}
