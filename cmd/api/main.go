package main

import (
	"log"
	"net/http"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/gateway"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/logger"
	"app/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	//.envは任意（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.GoEnv)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		zlog.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Address{},
		&model.MenuItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.Promotion{},
		&model.LoyaltyTransaction{},
	); err != nil {
		zlog.Fatal("auto migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	txm := infraRepo.NewTxManagerGorm(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	paymentRepo := infraRepo.NewPaymentGormRepository(gormDB)
	promoRepo := infraRepo.NewPromotionGormRepository(gormDB)
	loyaltyRepo := infraRepo.NewLoyaltyGormRepository(gormDB)

	//決済ゲートウェイ
	stripeGW := gateway.NewStripeGateway(cfg.StripeSecretKey, zlog)
	mpesaGW := gateway.NewMpesaGateway(gateway.MpesaConfig{
		BaseURL:        cfg.MpesaBaseURL,
		ConsumerKey:    cfg.MpesaConsumerKey,
		ConsumerSecret: cfg.MpesaConsumerSecret,
		ShortCode:      cfg.MpesaShortCode,
		Passkey:        cfg.MpesaPasskey,
		CallbackURL:    cfg.MpesaCallbackURL,
	}, nil, zlog)
	gateways := gateway.Registry{Card: stripeGW, MobileMoney: mpesaGW}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, cfg.JWTSecret, cfg.JWTTokenTTL)
	cartUC := usecase.NewCartUsecase(txm)
	promoUC := usecase.NewPromotionUsecase(promoRepo)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderItemRepo)
	reconcileUC := usecase.NewReconcileUsecase(txm, zlog)
	paymentUC := usecase.NewPaymentUsecase(
		txm, orderRepo, paymentRepo, gateways, reconcileUC,
		zlog, cfg.Currency, cfg.GatewayTimeout,
	)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo)
	rewardUC := usecase.NewRewardUsecase(loyaltyRepo)

	//echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	if cfg.FEURL != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: []string{cfg.FEURL},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		}))
	}

	//Handler生成とルート登録
	handler.NewAuthHandler(authUC).RegisterRoutes(e)
	handler.NewCartHandler(cartUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewOrderHandler(orderUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewPaymentHandler(paymentUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewCallbackHandler(reconcileUC, cfg.StripeWebhookSecret, zlog).RegisterRoutes(e)
	handler.NewPromotionHandler(promoUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewAdminOrderHandler(adminOrderUC, paymentUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewRewardHandler(rewardUC).RegisterRoutes(e, cfg, userRepo)

	zlog.Info("server starting", zap.String("port", cfg.Port))
	if err := e.Start(":" + cfg.Port); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
