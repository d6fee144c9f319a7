package handler

import (
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PromotionHandler struct {
	uc *usecase.PromotionUsecase
}

// DI
func NewPromotionHandler(uc *usecase.PromotionUsecase) *PromotionHandler {
	return &PromotionHandler{uc: uc}
}

type CreatePromotionRequest struct {
	Code              string `json:"code"`
	Description       string `json:"description"`
	DiscountType      string `json:"discount_type"`
	DiscountValue     string `json:"discount_value"`
	MinPurchaseAmount int64  `json:"min_purchase_amount"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	MaxUses           *int64 `json:"max_uses"`
	IsActive          bool   `json:"is_active"`
}

func (h *PromotionHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/promotions")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("/validate", h.validate)
	g.GET("/active", h.listActive)

	admin := e.Group("/admin/promotions")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("", h.create)
}

func (h *PromotionHandler) validate(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "code is required"})
	}

	total, err := strconv.ParseInt(c.QueryParam("total"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid total"})
	}

	out, err := h.uc.Validate(c.Request().Context(), code, total)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *PromotionHandler) listActive(c echo.Context) error {
	promos, err := h.uc.ListActive(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, promos)
}

func (h *PromotionHandler) create(c echo.Context) error {
	var req CreatePromotionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid start_date"})
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid end_date"})
	}

	promo, err := h.uc.AdminCreate(c.Request().Context(), usecase.CreatePromotionInput{
		Code:              req.Code,
		Description:       req.Description,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MinPurchaseAmount: req.MinPurchaseAmount,
		StartDate:         start,
		EndDate:           end,
		MaxUses:           req.MaxUses,
		IsActive:          req.IsActive,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, promo)
}
