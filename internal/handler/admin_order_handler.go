package handler

import (
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// スタッフ/管理者向けの注文オペレーション
type AdminOrderHandler struct {
	uc        *usecase.AdminOrderUsecase
	paymentUC *usecase.PaymentUsecase
}

// DI
func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase, paymentUC *usecase.PaymentUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc, paymentUC: paymentUC}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	staff := e.Group("/staff")
	staff.Use(middleware.AuthJWT(cfg))
	staff.Use(middleware.TokenVersionGuard(userRepo))
	staff.Use(middleware.StaffRoleGuard())

	staff.GET("/orders", h.staffList)
	staff.PUT("/orders/:id/status", h.staffUpdateStatus)

	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/orders", h.adminList)
	admin.PUT("/orders/:id/status", h.adminUpdateStatus)
	admin.DELETE("/orders/:id", h.adminDelete)
	admin.GET("/payments", h.adminListPayments)
}

// 進行中（confirmed〜out_for_delivery）の注文だけを返す
func (h *AdminOrderHandler) staffList(c echo.Context) error {
	page, limit, err := pageLimit(c, 1, 50)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	out, err := h.uc.StaffList(c.Request().Context(), page, limit)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) staffUpdateStatus(c echo.Context) error {
	return h.updateStatus(c, model.ActorStaff)
}

func (h *AdminOrderHandler) adminUpdateStatus(c echo.Context) error {
	return h.updateStatus(c, model.ActorAdmin)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context, actor model.Actor) error {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), orderID, req.Status, actor)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) adminList(c echo.Context) error {
	page, limit, err := pageLimit(c, 1, 50)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	in := usecase.AdminOrderListInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	}

	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
		}
		in.UserID = &id
	}

	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
		}
		in.From = &tm
	}

	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
		}
		in.To = &tm
	}

	out, err := h.uc.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) adminDelete(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.Delete(c.Request().Context(), orderID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminOrderHandler) adminListPayments(c echo.Context) error {
	page, limit, err := pageLimit(c, 1, 50)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	out, err := h.paymentUC.AdminListPayments(c.Request().Context(), page, limit)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
