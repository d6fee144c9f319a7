package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"app/internal/domain/model"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"
)

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway はカード決済をStripe PaymentIntentで行う。
type StripeGateway struct {
	intents stripeIntentAPI
	logger  *zap.Logger
}

func NewStripeGateway(apiKey string, logger *zap.Logger) *StripeGateway {
	sc := client.New(apiKey, nil)
	return &StripeGateway{intents: sc.PaymentIntents, logger: logger}
}

func (g *StripeGateway) Initiate(ctx context.Context, in InitiateInput) (InitiateResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(strings.ToLower(in.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"order_id": fmt.Sprintf("%d", in.OrderID),
			"user_id":  fmt.Sprintf("%d", in.UserID),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}

	intent, err := g.intents.New(params)
	if err != nil {
		return InitiateResult{}, g.mapErr(err)
	}

	g.logger.Info("stripe payment intent created",
		zap.String("payment_intent", intent.ID),
		zap.Int64("order_id", in.OrderID))

	return InitiateResult{
		TransactionID: intent.ID,
		ClientSecret:  intent.ClientSecret,
		Details: map[string]string{
			"provider":       "stripe",
			"payment_intent": intent.ID,
		},
	}, nil
}

func (g *StripeGateway) Verify(ctx context.Context, transactionID string) (VerifyResult, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := g.intents.Get(transactionID, params)
	if err != nil {
		return VerifyResult{}, g.mapErr(err)
	}

	return VerifyResult{
		Status:     stripeStatus(intent.Status),
		ResultCode: string(intent.Status),
		ResultDesc: fmt.Sprintf("payment intent is %s", intent.Status),
	}, nil
}

func stripeStatus(s stripe.PaymentIntentStatus) model.PaymentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return model.PaymentStatusCompleted
	case stripe.PaymentIntentStatusCanceled:
		return model.PaymentStatusFailed
	default:
		// requires_payment_method / requires_action / processing など
		return model.PaymentStatusPending
	}
}

// Stripeのエラーは拒否(こちらの要求が悪い)と障害(あちらが落ちている)に分ける。
func (g *StripeGateway) mapErr(err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		switch serr.Type {
		case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
			return &RejectedError{Reason: serr.Msg}
		}
	}
	g.logger.Error("stripe request failed", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
