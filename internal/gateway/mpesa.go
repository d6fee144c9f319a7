package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"app/internal/domain/model"

	"go.uber.org/zap"
)

// M-Pesa Daraja API (STK push) クライアント。
// 照合キーはCheckoutRequestID。

type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
}

type MpesaGateway struct {
	cfg    MpesaConfig
	http   *http.Client
	logger *zap.Logger
	clock  func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewMpesaGateway(cfg MpesaConfig, httpClient *http.Client, logger *zap.Logger) *MpesaGateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &MpesaGateway{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
		clock:  time.Now,
	}
}

var phoneDigits = regexp.MustCompile(`^[0-9]+$`)

// NormalizePhone は電話番号を254から始まる12桁の国際形式に揃える。
// 0712345678 / 712345678 / +254712345678 → 254712345678
func NormalizePhone(phone string) (string, error) {
	p := strings.TrimSpace(phone)
	p = strings.TrimPrefix(p, "+")
	p = strings.ReplaceAll(p, " ", "")
	p = strings.ReplaceAll(p, "-", "")

	switch {
	case strings.HasPrefix(p, "0") && len(p) == 10:
		p = "254" + p[1:]
	case (strings.HasPrefix(p, "7") || strings.HasPrefix(p, "1")) && len(p) == 9:
		p = "254" + p
	}

	if len(p) != 12 || !strings.HasPrefix(p, "254") || !phoneDigits.MatchString(p) {
		return "", fmt.Errorf("invalid phone number: %s", phone)
	}
	return p, nil
}

type mpesaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func (g *MpesaGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && g.clock().Before(g.tokenExpiry) {
		return g.accessToken, nil
	}

	url := g.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret)

	res, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: oauth status %d", ErrUnavailable, res.StatusCode)
	}

	var tr mpesaTokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil || tr.AccessToken == "" {
		return "", fmt.Errorf("%w: malformed oauth response", ErrUnavailable)
	}

	// Darajaのトークンは3599秒有効。余裕を持って1分前に捨てる。
	g.accessToken = tr.AccessToken
	g.tokenExpiry = g.clock().Add(58 * time.Minute)
	return g.accessToken, nil
}

func (g *MpesaGateway) password(ts string) string {
	raw := g.cfg.ShortCode + g.cfg.Passkey + ts
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

func (g *MpesaGateway) Initiate(ctx context.Context, in InitiateInput) (InitiateResult, error) {
	phone, err := NormalizePhone(in.PhoneNumber)
	if err != nil {
		return InitiateResult{}, &RejectedError{Reason: err.Error()}
	}

	token, err := g.token(ctx)
	if err != nil {
		return InitiateResult{}, err
	}

	ts := g.clock().Format("20060102150405")
	// Darajaの金額は整数シリング単位。最小通貨単位から切り捨てる。
	// 金額の下限チェックは呼び出し側の責務（0円注文はここまで来ない）。
	amount := in.Amount / 100

	desc := in.Description
	if desc == "" {
		desc = fmt.Sprintf("Order %d", in.OrderID)
	}

	body := stkPushRequest{
		BusinessShortCode: g.cfg.ShortCode,
		Password:          g.password(ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            g.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       g.cfg.CallbackURL,
		AccountReference:  fmt.Sprintf("ORDER-%d", in.OrderID),
		TransactionDesc:   desc,
	}

	var res stkPushResponse
	if err := g.post(ctx, "/mpesa/stkpush/v1/processrequest", token, body, &res); err != nil {
		return InitiateResult{}, err
	}

	if res.ResponseCode != "0" {
		reason := res.ResponseDescription
		if reason == "" {
			reason = res.ErrorMessage
		}
		if reason == "" {
			reason = "stk push was not accepted"
		}
		return InitiateResult{}, &RejectedError{Reason: reason}
	}
	if res.CheckoutRequestID == "" {
		return InitiateResult{}, fmt.Errorf("%w: stk push accepted without CheckoutRequestID", ErrUnavailable)
	}

	g.logger.Info("mpesa stk push accepted",
		zap.String("checkout_request_id", res.CheckoutRequestID),
		zap.Int64("order_id", in.OrderID))

	return InitiateResult{
		TransactionID:   res.CheckoutRequestID,
		CustomerMessage: res.CustomerMessage,
		Details: map[string]string{
			"provider":            "mpesa",
			"merchant_request_id": res.MerchantRequestID,
			"phone_number":        phone,
		},
	}, nil
}

type stkQueryResponse struct {
	ResponseCode      string `json:"ResponseCode"`
	ResultCode        string `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ErrorCode         string `json:"errorCode"`
	ErrorMessage      string `json:"errorMessage"`
}

func (g *MpesaGateway) Verify(ctx context.Context, transactionID string) (VerifyResult, error) {
	token, err := g.token(ctx)
	if err != nil {
		return VerifyResult{}, err
	}

	ts := g.clock().Format("20060102150405")
	body := map[string]string{
		"BusinessShortCode": g.cfg.ShortCode,
		"Password":          g.password(ts),
		"Timestamp":         ts,
		"CheckoutRequestID": transactionID,
	}

	var res stkQueryResponse
	if err := g.post(ctx, "/mpesa/stkpushquery/v1/query", token, body, &res); err != nil {
		return VerifyResult{}, err
	}

	// 利用者がまだPINを入れていない間、Darajaはエラー形で
	// "transaction is being processed" を返す。
	if res.ErrorCode != "" {
		if strings.Contains(strings.ToLower(res.ErrorMessage), "being processed") {
			return VerifyResult{
				Status:     model.PaymentStatusPending,
				ResultCode: res.ErrorCode,
				ResultDesc: res.ErrorMessage,
			}, nil
		}
		return VerifyResult{}, fmt.Errorf("%w: %s", ErrUnavailable, res.ErrorMessage)
	}

	return VerifyResult{
		Status:     MapResultCode(res.ResultCode),
		ResultCode: res.ResultCode,
		ResultDesc: res.ResultDesc,
	}, nil
}

// STK pushの結果コードを決済状態に写す。
//
//	0    成功
//	1    残高不足
//	1032 利用者がキャンセル
//	1037 タイムアウト(応答なし)
func MapResultCode(code string) model.PaymentStatus {
	switch code {
	case "0":
		return model.PaymentStatusCompleted
	case "":
		return model.PaymentStatusPending
	default:
		return model.PaymentStatusFailed
	}
}

func (g *MpesaGateway) post(ctx context.Context, path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := g.http.Do(req)
	if err != nil {
		g.logger.Error("mpesa request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	// 処理中のSTK pushへの問い合わせはHTTP 500でJSONのエラー形が返る。
	// ステータスではなくボディが読めるかで切り分ける。
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if res.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: daraja status %d", ErrUnavailable, res.StatusCode)
		}
		return fmt.Errorf("%w: malformed daraja response", ErrUnavailable)
	}
	return nil
}
