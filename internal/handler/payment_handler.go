package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /paymentsのHTTP（顧客向け）
type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

// DI
func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type InitiatePaymentRequest struct {
	OrderID     int64  `json:"order_id"`
	Method      string `json:"method"`
	PhoneNumber string `json:"phone_number"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/payments")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("/initiate", h.initiate)
	g.GET("/verify/:checkout_request_id", h.verify)
}

func (h *PaymentHandler) initiate(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req InitiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Initiate(c.Request().Context(), userID, usecase.InitiatePaymentInput{
		OrderID:     req.OrderID,
		Method:      req.Method,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *PaymentHandler) verify(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	transactionID := c.Param("checkout_request_id")
	if transactionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid transaction id"})
	}

	out, err := h.uc.Verify(c.Request().Context(), userID, transactionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
