package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/handler"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"
)

// 照合対象のTransactionIDだけ記録する決済リポジトリスタブ。
type paymentRepoStub struct {
	lookedUp []string
}

func (s *paymentRepoStub) Create(ctx context.Context, p model.Payment) (int64, error) {
	return 0, nil
}

func (s *paymentRepoStub) FindByTransactionID(ctx context.Context, transactionID string) (model.Payment, error) {
	return model.Payment{}, repo.ErrNotFound
}

func (s *paymentRepoStub) FindByTransactionIDForUpdate(ctx context.Context, transactionID string) (model.Payment, error) {
	s.lookedUp = append(s.lookedUp, transactionID)
	return model.Payment{}, repo.ErrNotFound
}

func (s *paymentRepoStub) UpdateStatusDetails(ctx context.Context, paymentID int64, status model.PaymentStatus, details string) error {
	return nil
}

func (s *paymentRepoStub) ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error) {
	return nil, nil
}

func (s *paymentRepoStub) ListAdmin(ctx context.Context, page int, limit int) ([]model.Payment, int64, error) {
	return nil, 0, nil
}

type txReposStub struct {
	payments *paymentRepoStub
}

func (s *txReposStub) Orders() repo.OrderRepository         { return nil }
func (s *txReposStub) OrderItems() repo.OrderItemRepository { return nil }
func (s *txReposStub) MenuItems() repo.MenuItemRepository   { return nil }
func (s *txReposStub) Payments() repo.PaymentRepository     { return s.payments }
func (s *txReposStub) Promotions() repo.PromotionRepository { return nil }
func (s *txReposStub) Loyalty() repo.LoyaltyRepository      { return nil }
func (s *txReposStub) Addresses() repo.AddressRepository    { return nil }

type txManagerStub struct {
	repos repo.TxRepos
}

func (s *txManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(s.repos)
}

const testWebhookSecret = "whsec_test_secret"

func newCallbackFixture() (*echo.Echo, *paymentRepoStub) {
	payments := &paymentRepoStub{}
	txm := &txManagerStub{repos: &txReposStub{payments: payments}}
	reconciler := usecase.NewReconcileUsecase(txm, zap.NewNop())

	e := echo.New()
	handler.NewCallbackHandler(reconciler, testWebhookSecret, zap.NewNop()).RegisterRoutes(e)
	return e, payments
}

func signedStripeHeader(payload string, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, []byte(payload), secret)
	return fmt.Sprintf("t=%d,v1=%x", at.Unix(), sig)
}

func TestCallbackHandler_StripeWebhook_RejectsBadSignature(t *testing.T) {
	e, payments := newCallbackFixture()

	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, payments.lookedUp)
}

func TestCallbackHandler_StripeWebhook_AppliesSucceededIntent(t *testing.T) {
	e, payments := newCallbackFixture()

	//api_versionはアカウント設定で変わるのでSDKの期待値と一致しない前提
	payload := `{"id":"evt_1","api_version":"2023-10-16","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","status":"succeeded"}}}`
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signedStripeHeader(payload, testWebhookSecret, time.Now()))
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	//未知のintentでも受領応答は200（再送を止める）
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"pi_123"}, payments.lookedUp)
}

func TestCallbackHandler_StripeWebhook_IgnoresUnrelatedEvents(t *testing.T) {
	e, payments := newCallbackFixture()

	payload := `{"id":"evt_2","api_version":"2023-10-16","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", signedStripeHeader(payload, testWebhookSecret, time.Now()))
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, payments.lookedUp)
}

func TestCallbackHandler_MpesaCallback_AppliesResult(t *testing.T) {
	e, payments := newCallbackFixture()

	body := `{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_456","ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":450},{"Name":"MpesaReceiptNumber","Value":"QK12XW9TR0"}]}}}}`
	req := httptest.NewRequest(http.MethodPost, "/payments/callback/mpesa", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ResultCode":0`)
	assert.Equal(t, []string{"ws_CO_456"}, payments.lookedUp)
}

// 解釈できないボディでもDarajaには200を返す。
func TestCallbackHandler_MpesaCallback_MalformedBodyStillAccepted(t *testing.T) {
	e, payments := newCallbackFixture()

	req := httptest.NewRequest(http.MethodPost, "/payments/callback/mpesa", strings.NewReader("not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ResultCode":0`)
	assert.Empty(t, payments.lookedUp)
}
