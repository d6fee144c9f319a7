package model

import (
	"errors"
	"fmt"
)

// ステータス遷移を要求した主体。
type Actor string

const (
	//決済オーケストレーター / コールバック処理
	ActorSystem   Actor = "system"
	ActorCustomer Actor = "customer"
	ActorStaff    Actor = "staff"
	ActorAdmin    Actor = "admin"
)

// 許可されていない遷移。現在と要求先を必ず入れる。
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// staffが権限外の遷移を要求した場合（403相当）。
var ErrTransitionForbidden = errors.New("transition not allowed for this role")

// 遷移表。ここ以外でステータス遷移の可否を判断しない。
var systemTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusAwaitingPayment},
	OrderStatusAwaitingPayment: {OrderStatusConfirmed, OrderStatusFailed},
}

var customerTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:           {OrderStatusPending},
	OrderStatusPending:         {OrderStatusCancelledByUser},
	OrderStatusAwaitingPayment: {OrderStatusCancelledByUser},
}

// staffは前進チェーンのみ
var staffTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusConfirmed:      {OrderStatusPreparing},
	OrderStatusPreparing:      {OrderStatusReadyForPickup, OrderStatusOutForDelivery},
	OrderStatusReadyForPickup: {OrderStatusCompleted},
	OrderStatusOutForDelivery: {OrderStatusCompleted},
}

// CanTransitionはfrom→toをactorが行えるか判定する。
// ダメな場合はエラーを返すだけで、状態は一切変えない。
func CanTransition(from OrderStatus, to OrderStatus, actor Actor) error {
	switch actor {
	case ActorSystem:
		return checkTable(systemTransitions, from, to)
	case ActorCustomer:
		return checkTable(customerTransitions, from, to)
	case ActorStaff:
		//staffは表外の要求をすべて403にする
		if err := checkTable(staffTransitions, from, to); err != nil {
			return ErrTransitionForbidden
		}
		return nil
	case ActorAdmin:
		//completedからだけは動かせない。failed/cancelledは復帰できる。
		//draftへ戻すことも不可。
		if from == OrderStatusCompleted {
			return &InvalidTransitionError{From: from, To: to}
		}
		if to == OrderStatusDraft || to == from {
			return &InvalidTransitionError{From: from, To: to}
		}
		return nil
	}
	return &InvalidTransitionError{From: from, To: to}
}

func checkTable(table map[OrderStatus][]OrderStatus, from OrderStatus, to OrderStatus) error {
	for _, allowed := range table[from] {
		if allowed == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}
