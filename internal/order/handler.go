package order

import (
	"net/http"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/AgriDirect/AgriDirect/internal/common/middleware"
	"github.com/AgriDirect/AgriDirect/internal/user"
	"github.com/gin-gonic/gin"
)

// Handler 订单相关 HTTP 接口。
type Handler struct {
	svc   *Service
	users *user.Service
}

func NewHandler(svc *Service, users *user.Service) *Handler {
	return &Handler{svc: svc, users: users}
}

// MyOrders GET /api/orders/my-orders 买家订单列表。
func (h *Handler) MyOrders(c *gin.Context) {
	orders, err := h.svc.ListByBuyer(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// MyFarmerOrders GET /api/orders/my-farmer-orders 农户订单列表。
func (h *Handler) MyFarmerOrders(c *gin.Context) {
	orders, err := h.svc.ListByFarmer(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// Get GET /api/orders/:id
func (h *Handler) Get(c *gin.Context) {
	o, err := h.svc.Get(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Receipt GET /api/orders/:id/receipt
func (h *Handler) Receipt(c *gin.Context) {
	r, err := h.svc.BuildReceipt(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Drivers GET /api/orders/drivers 可邀请的司机列表。
func (h *Handler) Drivers(c *gin.Context) {
	drivers, err := h.users.ListDrivers(c.Request.Context())
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, drivers)
}

type payRequest struct {
	Method string `json:"method"`
}

// Pay PATCH /api/orders/:id/pay
func (h *Handler) Pay(c *gin.Context) {
	var req payRequest
	_ = c.ShouldBindJSON(&req)

	o, err := h.svc.Pay(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Method)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel PUT /api/orders/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.JSON(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	o, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.Reason)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type assignDriverRequest struct {
	DriverIDs []string `json:"driverIds"`
}

// AssignDriver PATCH /api/orders/:id/assign-driver
func (h *Handler) AssignDriver(c *gin.Context) {
	var req assignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.JSON(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	o, err := h.svc.AssignDrivers(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.DriverIDs)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type verifyOTPRequest struct {
	OTP string `json:"otp"`
}

// VerifyOTP PATCH /api/orders/:id/verify-otp
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.JSON(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	o, err := h.svc.VerifyOTP(c.Request.Context(), c.Param("id"), middleware.UserID(c), req.OTP)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// ReleasePayment PATCH /api/orders/:id/release-payment
func (h *Handler) ReleasePayment(c *gin.Context) {
	o, err := h.svc.ReleasePayment(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
