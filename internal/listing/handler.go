package listing

import (
	"net/http"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
	"github.com/AgriDirect/AgriDirect/internal/common/middleware"
	"github.com/gin-gonic/gin"
)

// Handler 货品相关 HTTP 入口（农户管理 + 买家浏览）。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create POST /api/farmer/add
func (h *Handler) Create(c *gin.Context) {
	var in CreateListingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.JSON(c, apperr.Validationf("invalid request body"))
		return
	}
	in.FarmerID = middleware.UserID(c)

	l, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"listing": l})
}

// MyListings GET /api/farmer/my-listings
func (h *Handler) MyListings(c *gin.Context) {
	listings, err := h.svc.ListByFarmer(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// Update PUT /api/farmer/update/:id
func (h *Handler) Update(c *gin.Context) {
	var in CreateListingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apperr.JSON(c, apperr.Validationf("invalid request body"))
		return
	}

	l, err := h.svc.Update(c.Request.Context(), c.Param("id"), middleware.UserID(c), in)
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l})
}

// Delete DELETE /api/farmer/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "listing deleted"})
}

// Browse GET /api/buyer/listings
func (h *Handler) Browse(c *gin.Context) {
	listings, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// Get GET /api/buyer/listings/:id
func (h *Handler) Get(c *gin.Context) {
	l, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.JSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l})
}
