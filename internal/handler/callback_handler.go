package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"app/internal/domain/model"
	"app/internal/gateway"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"
)

// プロバイダからの非同期報告を受ける公開エンドポイント。
// 認証はプロバイダ方式（Stripe=署名、M-Pesa=コールバックURL秘匿）に任せる。
type CallbackHandler struct {
	reconciler    *usecase.ReconcileUsecase
	webhookSecret string
	logger        *zap.Logger
}

// DI
func NewCallbackHandler(reconciler *usecase.ReconcileUsecase, webhookSecret string, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		reconciler:    reconciler,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func (h *CallbackHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/payments/webhook/stripe", h.stripeWebhook)
	e.POST("/payments/callback/mpesa", h.mpesaCallback)
}

func (h *CallbackHandler) stripeWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	//署名検証に失敗したリクエストは処理しない。
	//イベントはアカウント側のAPIバージョンで届くので、バージョン差異だけでは弾かない。
	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.Request().Header.Get("Stripe-Signature"),
		h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.logger.Warn("stripe webhook signature verification failed", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid signature"})
	}

	var status model.PaymentStatus
	switch string(event.Type) {
	case "payment_intent.succeeded":
		status = model.PaymentStatusCompleted
	case "payment_intent.payment_failed":
		status = model.PaymentStatusFailed
	default:
		//興味のないイベントは受領だけ返す
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		h.logger.Warn("stripe webhook payload unmarshal failed",
			zap.String("event_id", event.ID), zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid payload"})
	}

	in := usecase.ReconcileInput{
		TransactionID: pi.ID,
		Status:        status,
		ResultCode:    string(pi.Status),
		Extra:         map[string]string{"event_id": event.ID},
	}
	if pi.LastPaymentError != nil {
		in.ResultCode = string(pi.LastPaymentError.Code)
		in.ResultDesc = pi.LastPaymentError.Msg
	}

	if err := h.reconciler.Apply(c.Request().Context(), in); err != nil {
		//500を返せばStripeが再送してくれる
		h.logger.Error("stripe webhook reconcile failed",
			zap.String("transaction_id", pi.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

// Daraja STK pushコールバックのボディ。
type mpesaCallbackBody struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type mpesaAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// Darajaへは処理結果にかかわらず200を返す。返さないとリトライが続く。
func (h *CallbackHandler) mpesaCallback(c echo.Context) error {
	ack := mpesaAck{ResultCode: 0, ResultDesc: "Accepted"}

	var body mpesaCallbackBody
	if err := c.Bind(&body); err != nil {
		h.logger.Warn("mpesa callback bind failed", zap.Error(err))
		return c.JSON(http.StatusOK, ack)
	}

	cb := body.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		h.logger.Warn("mpesa callback without checkout request id")
		return c.JSON(http.StatusOK, ack)
	}

	code := strconv.Itoa(cb.ResultCode)
	in := usecase.ReconcileInput{
		TransactionID: cb.CheckoutRequestID,
		Status:        gateway.MapResultCode(code),
		ResultCode:    code,
		ResultDesc:    cb.ResultDesc,
		Extra:         map[string]string{"merchant_request_id": cb.MerchantRequestID},
	}
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			in.Extra["receipt_number"] = fmt.Sprintf("%v", item.Value)
		}
	}

	if err := h.reconciler.Apply(c.Request().Context(), in); err != nil {
		h.logger.Error("mpesa callback reconcile failed",
			zap.String("transaction_id", cb.CheckoutRequestID), zap.Error(err))
	}

	return c.JSON(http.StatusOK, ack)
}
