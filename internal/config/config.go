package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5433）
	PostgresSSLMode  string // sslmode（disableなど）

	JWTSecret   string        // JWT署名シークレット
	JWTTokenTTL time.Duration // アクセストークンの有効期間

	Currency string // 決済通貨（KESなど）

	StripeSecretKey     string // Stripe APIキー
	StripeWebhookSecret string // webhook署名検証シークレット

	MpesaBaseURL        string // DarajaのベースURL
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaShortCode      string
	MpesaPasskey        string
	MpesaCallbackURL    string // STK pushコールバックの公開URL

	GatewayTimeout time.Duration // ゲートウェイ呼び出しの上限時間

	GoEnv string // dev/prod
	FEURL string // フロントURL（CORSなどで使う）
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  stringOr("POSTGRES_SSLMODE", "disable"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTTokenTTL: durationOr("JWT_TOKEN_TTL", 24*time.Hour),

		Currency: stringOr("CURRENCY", "KES"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		MpesaBaseURL:        stringOr("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		MpesaConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		MpesaConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		MpesaShortCode:      os.Getenv("MPESA_SHORTCODE"),
		MpesaPasskey:        os.Getenv("MPESA_PASSKEY"),
		MpesaCallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),

		GatewayTimeout: durationOr("GATEWAY_TIMEOUT", 30*time.Second),

		GoEnv: os.Getenv("GO_ENV"),
		FEURL: os.Getenv("FE_URL"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.StripeSecretKey == "" {
		return Config{}, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return Config{}, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if cfg.MpesaConsumerKey == "" {
		return Config{}, fmt.Errorf("MPESA_CONSUMER_KEY is required")
	}
	if cfg.MpesaConsumerSecret == "" {
		return Config{}, fmt.Errorf("MPESA_CONSUMER_SECRET is required")
	}
	if cfg.MpesaShortCode == "" {
		return Config{}, fmt.Errorf("MPESA_SHORTCODE is required")
	}
	if cfg.MpesaPasskey == "" {
		return Config{}, fmt.Errorf("MPESA_PASSKEY is required")
	}
	if cfg.MpesaCallbackURL == "" {
		return Config{}, fmt.Errorf("MPESA_CALLBACK_URL is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func stringOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
