package delivery

import (
	"net/http"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/AgriDirect/AgriDirect/internal/common/middleware"
	"github.com/AgriDirect/AgriDirect/internal/order"
	"github.com/gin-gonic/gin"
)

// Handler 司机侧 HTTP 接口。
type Handler struct {
	broker *Broker
	orders *order.Service
}

func NewHandler(broker *Broker, orders *order.Service) *Handler {
	return &Handler{broker: broker, orders: orders}
}

// Available GET /api/driver/available 待接单列表。
func (h *Handler) Available(c *gin.Context) {
	rows, err := h.broker.Available(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// MyDeliveries GET /api/driver/my-deliveries
func (h *Handler) MyDeliveries(c *gin.Context) {
	rows, err := h.broker.MyDeliveries(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Accept PATCH /api/driver/accept/:id
func (h *Handler) Accept(c *gin.Context) {
	o, err := h.broker.Accept(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Decline PATCH /api/driver/decline/:id
func (h *Handler) Decline(c *gin.Context) {
	o, err := h.broker.Decline(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Complete PATCH /api/driver/complete/:id 送达确认。
func (h *Handler) Complete(c *gin.Context) {
	o, err := h.orders.CompleteDelivery(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
