package offer

import (
	"net/http"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/AgriDirect/AgriDirect/internal/common/middleware"
	"github.com/gin-gonic/gin"
)

// Handler 报价谈判 HTTP 接口。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Submit POST /api/buyer/offers 买家首次报价。
func (h *Handler) Submit(c *gin.Context) {
	var in SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.JSON(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	o, err := h.svc.Submit(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// My GET /api/offers/my 买家的报价列表。
func (h *Handler) My(c *gin.Context) {
	rows, err := h.svc.ListByBuyer(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Farmer GET /api/offers/farmer 农户收到的报价列表。
func (h *Handler) Farmer(c *gin.Context) {
	rows, err := h.svc.ListByFarmer(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type counterRequest struct {
	CounterOfferPrice int64 `json:"counterOfferPrice"`
}

// FarmerCounter PATCH /api/offers/:id/counter
func (h *Handler) FarmerCounter(c *gin.Context) {
	var req counterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.JSON(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	o, err := h.svc.Counter(c.Request.Context(), c.Param("id"), middleware.UserID(c), ActorFarmer, req.CounterOfferPrice)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type buyerCounterRequest struct {
	ListingID         string `json:"listingId"`
	CounterOfferPrice int64  `json:"counterOfferPrice"`
	Quantity          int64  `json:"quantity"`
}

// BuyerCounter PATCH /api/offers/buyer/counter 买家按商品还价（无在谈报价则新建）。
func (h *Handler) BuyerCounter(c *gin.Context) {
	var req buyerCounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.JSON(c, apperr.Validationf("invalid request body: %v", err))
		return
	}

	o, err := h.svc.CounterByListing(c.Request.Context(), middleware.UserID(c), req.ListingID, req.CounterOfferPrice, req.Quantity)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// FarmerAccept PATCH /api/offers/:id/accept 成交，生成待支付订单。
func (h *Handler) FarmerAccept(c *gin.Context) {
	h.accept(c, ActorFarmer)
}

// BuyerAccept PATCH /api/offers/:id/buyer-accept 买家接受农户还价。
func (h *Handler) BuyerAccept(c *gin.Context) {
	h.accept(c, ActorBuyer)
}

func (h *Handler) accept(c *gin.Context, actor Actor) {
	o, ord, err := h.svc.Accept(c.Request.Context(), c.Param("id"), middleware.UserID(c), actor)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offer": o, "order": ord})
}

// FarmerReject PATCH /api/offers/:id/reject
func (h *Handler) FarmerReject(c *gin.Context) {
	h.reject(c, ActorFarmer)
}

// BuyerReject PATCH /api/offers/:id/buyer-reject
func (h *Handler) BuyerReject(c *gin.Context) {
	h.reject(c, ActorBuyer)
}

func (h *Handler) reject(c *gin.Context, actor Actor) {
	o, err := h.svc.Reject(c.Request.Context(), c.Param("id"), middleware.UserID(c), actor)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// Remove DELETE /api/offers/:id 清理已拒绝报价。
func (h *Handler) Remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
